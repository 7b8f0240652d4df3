// Package safety keeps file tools inside their sandbox roots.
//
// Policy:
//   - Inputs must be relative; ".." traversal and symlink escapes are rejected.
//   - Reads and writes under .git/ and .agent/ are denied.
//   - Writes to go.mod and go.sum are denied at any depth.
package safety

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Error codes carried by ToolError.
const (
	CodeOutsideSandbox = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedRead     = "ERR_DENIED_READ"
	CodeDeniedWrite    = "ERR_DENIED_WRITE"
	CodeNotAFile       = "ERR_NOT_A_FILE"
	CodeNotADir        = "ERR_NOT_A_DIR"
)

// ToolError is a machine-readable error body surfaced back to the model as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error renders e as single-line JSON so the model can parse the code.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// CodeOf returns the ToolError code carried by err, or "" when there is none.
func CodeOf(err error) string {
	var te ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

var (
	deniedDirs        = []string{".git", ".agent"}
	deniedWriteLeaves = []string{"go.mod", "go.sum"}
)

// InitSandboxRoot resolves absolute sandbox roots for read and write operations.
// An empty readRoot means the working directory; an empty writeRoot follows readRoot.
func InitSandboxRoot(readRoot, writeRoot string) (absRead string, absWrite string, err error) {
	if readRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("getwd: %w", err)
		}
		readRoot = cwd
	}
	if writeRoot == "" {
		writeRoot = readRoot
	}
	if absRead, err = absResolved(readRoot); err != nil {
		return "", "", fmt.Errorf("abs(readRoot): %w", err)
	}
	if absWrite, err = absResolved(writeRoot); err != nil {
		return "", "", fmt.Errorf("abs(writeRoot): %w", err)
	}
	return absRead, absWrite, nil
}

// absResolved makes p absolute and resolves symlinks when p exists.
func absResolved(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateRelPath resolves relPath against absRoot for reading and returns an
// absolute path inside the sandbox, or a ToolError.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	candidate, rel, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if underDeniedDir(rel) {
		return "", ToolError{Code: CodeDeniedRead, Message: "reads under .git/ or .agent/ are not allowed"}
	}
	return candidate, nil
}

// ValidateWritePath resolves relPath against absRoot for writing. On top of the
// read policy it blocks protected module files at any depth.
func ValidateWritePath(absRoot, relPath string) (string, error) {
	candidate, rel, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if underDeniedDir(rel) {
		return "", ToolError{Code: CodeDeniedWrite, Message: "writes under .git/ or .agent/ are not allowed"}
	}
	if slices.Contains(deniedWriteLeaves, filepath.Base(rel)) {
		return "", ToolError{Code: CodeDeniedWrite, Message: fmt.Sprintf("writes to %s are not allowed", filepath.Base(rel))}
	}
	return candidate, nil
}

// resolve joins relPath onto absRoot, resolves symlinks on the deepest existing
// ancestor, and checks the result stays under absRoot. It returns the absolute
// candidate and its slash-separated path relative to the root.
func resolve(absRoot, relPath string) (string, string, error) {
	if filepath.IsAbs(relPath) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}
	cleaned := filepath.Clean(relPath)
	candidate := filepath.Join(absRoot, cleaned)

	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else {
		// Leaf may not exist yet; a symlinked parent can still escape.
		parent := filepath.Dir(candidate)
		if resolvedParent, err := filepath.EvalSymlinks(parent); err == nil {
			candidate = filepath.Join(resolvedParent, filepath.Base(candidate))
		}
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "requested path resolves outside the sandbox root"}
	}
	return candidate, filepath.ToSlash(rel), nil
}

func underDeniedDir(rel string) bool {
	for _, d := range deniedDirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}
