// Package fsops implements the file operations behind the built-in tools.
// Every path is relative to a Sandbox root and checked by the safety policy.
package fsops

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/petasbytes/toolbridge/internal/safety"
)

// Sandbox confines file access to a read root and a write root.
type Sandbox struct {
	readRoot  string
	writeRoot string
}

// New resolves the roots to absolute, symlink-free paths. An empty readRoot
// means the working directory; an empty writeRoot follows readRoot.
func New(readRoot, writeRoot string) (*Sandbox, error) {
	r, w, err := safety.InitSandboxRoot(readRoot, writeRoot)
	if err != nil {
		return nil, err
	}
	return &Sandbox{readRoot: r, writeRoot: w}, nil
}

// FromEnv is New with roots from AGT_READ_ROOT and AGT_WRITE_ROOT.
func FromEnv() (*Sandbox, error) {
	return New(os.Getenv("AGT_READ_ROOT"), os.Getenv("AGT_WRITE_ROOT"))
}

// Roots returns the absolute read and write roots.
func (s *Sandbox) Roots() (read, write string) { return s.readRoot, s.writeRoot }

// ReadFile returns the content of the file at rel under the read root.
func (s *Sandbox) ReadFile(rel string) (string, error) {
	abs, err := safety.ValidateRelPath(s.readRoot, rel)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ListDir returns the entries of the directory at rel, sorted by name.
// Directory names end in "/".
func (s *Sandbox) ListDir(rel string) ([]string, error) {
	abs, err := s.ResolveDir(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ResolveDir returns the absolute path of the directory at rel under the read
// root. An empty rel is the root itself.
func (s *Sandbox) ResolveDir(rel string) (string, error) {
	if rel == "" {
		rel = "."
	}
	abs, err := safety.ValidateRelPath(s.readRoot, rel)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotADir, Message: "path is not a directory"}
	}
	return abs, nil
}

// WriteFile replaces the file at rel under the write root with content,
// creating parent directories as needed.
func (s *Sandbox) WriteFile(rel, content string) error {
	abs, err := safety.ValidateWritePath(s.writeRoot, rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}
