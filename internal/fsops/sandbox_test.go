package fsops_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/petasbytes/toolbridge/internal/fsops"
	"github.com/petasbytes/toolbridge/internal/safety"
)

func newSandbox(t *testing.T, files map[string]string) (*fsops.Sandbox, string) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sb, err := fsops.New(dir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sb, dir
}

func TestReadFile(t *testing.T) {
	sb, _ := newSandbox(t, map[string]string{"notes/a.txt": "hello world"})

	got, err := sb.ReadFile("notes/a.txt")
	if err != nil || got != "hello world" {
		t.Fatalf("ReadFile = %q, %v", got, err)
	}

	if _, err := sb.ReadFile("notes"); safety.CodeOf(err) != safety.CodeNotAFile {
		t.Fatalf("directory: want %s, got %v", safety.CodeNotAFile, err)
	}
	if _, err := sb.ReadFile("missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing: want ErrNotExist, got %v", err)
	}
	if _, err := sb.ReadFile("../outside.txt"); safety.CodeOf(err) != safety.CodeOutsideSandbox {
		t.Fatalf("traversal: want %s, got %v", safety.CodeOutsideSandbox, err)
	}
}

func TestListDir_SortedWithDirMarkers(t *testing.T) {
	sb, _ := newSandbox(t, map[string]string{
		"b.txt":       "",
		"a.txt":       "",
		"sub/c.txt":   "",
		"sub/d/e.txt": "",
	})

	got, err := sb.ListDir("")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.txt", "b.txt", "sub/"}; !slices.Equal(got, want) {
		t.Fatalf("root = %v, want %v", got, want)
	}

	got, err = sb.ListDir("sub")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"c.txt", "d/"}; !slices.Equal(got, want) {
		t.Fatalf("sub = %v, want %v", got, want)
	}

	if _, err := sb.ListDir("a.txt"); safety.CodeOf(err) != safety.CodeNotADir {
		t.Fatalf("file: want %s, got %v", safety.CodeNotADir, err)
	}
}

func TestWriteFile_CreatesParents(t *testing.T) {
	sb, dir := newSandbox(t, nil)

	if err := sb.WriteFile("x/y/z.txt", "data"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "x", "y", "z.txt"))
	if err != nil || string(b) != "data" {
		t.Fatalf("on disk = %q, %v", b, err)
	}

	if err := sb.WriteFile("go.mod", "module x"); safety.CodeOf(err) != safety.CodeDeniedWrite {
		t.Fatalf("go.mod: want %s, got %v", safety.CodeDeniedWrite, err)
	}
}

func TestSeparateWriteRoot(t *testing.T) {
	readDir := t.TempDir()
	writeDir := t.TempDir()
	sb, err := fsops.New(readDir, writeDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := sb.WriteFile("out.txt", "w"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(writeDir, "out.txt")); err != nil {
		t.Fatalf("file should land in write root: %v", err)
	}
	if _, err := sb.ReadFile("out.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("read root should not see it: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGT_READ_ROOT", dir)
	t.Setenv("AGT_WRITE_ROOT", "")
	sb, err := fsops.FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if r, w := sb.Roots(); r != want || w != want {
		t.Fatalf("roots = %q,%q want %q", r, w, want)
	}
}
