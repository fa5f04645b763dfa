package staging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClearRemovesStaleTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "stage")
	if err := os.MkdirAll(filepath.Join(root, "old", "deep"), 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "old", "deep", "x.js"), []byte("x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := Clear(root); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("staging root missing after clear: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty staging root, found %d entries", len(entries))
	}
}

func TestRemoveMissingRoot(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "never-created")); err != nil {
		t.Fatalf("remove of a missing root should be a no-op, got: %v", err)
	}
}

func TestPathFor(t *testing.T) {
	got, err := PathFor("/tmp/stage", "/repo/src", "/repo/src/core/math.js")
	if err != nil {
		t.Fatalf("pathFor failed: %v", err)
	}
	want := filepath.Join("/tmp/stage", "core", "math.js")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
