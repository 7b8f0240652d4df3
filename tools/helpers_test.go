package tools_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/toolbridge/internal/fsops"
	"github.com/petasbytes/toolbridge/tools"
)

// newSandbox returns a sandbox rooted in a fresh temp dir seeded with files.
func newSandbox(t *testing.T, files map[string]string) *fsops.Sandbox {
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
		t.Fatal(err)
	}
	return sb
}

// invoke marshals in and calls def's handler directly, bypassing validation.
func invoke(t *testing.T, def tools.ToolDefinition, in any) (any, error) {
	t.Helper()
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	return def.Function(context.Background(), b)
}

// readBack returns the content of rel inside sb's write root.
func readBack(t *testing.T, sb *fsops.Sandbox, rel string) string {
	t.Helper()
	_, root := sb.Roots()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read back %s: %v", rel, err)
	}
	return string(b)
}
