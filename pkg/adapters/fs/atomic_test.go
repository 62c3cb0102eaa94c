package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Creates State File", func(t *testing.T) {
		dir := t.TempDir()
		filename := filepath.Join(dir, "local.json")

		if err := WriteFileAtomic(filename, []byte(`{"version":1}`), 0600); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(got) != `{"version":1}` {
			t.Errorf("unexpected content %q", got)
		}
	})

	t.Run("Replaces Previous State", func(t *testing.T) {
		dir := t.TempDir()
		filename := filepath.Join(dir, "local.json")
		if err := os.WriteFile(filename, []byte("old"), 0600); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		if err := WriteFileAtomic(filename, []byte("new"), 0600); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}

		got, _ := os.ReadFile(filename)
		if string(got) != "new" {
			t.Errorf("expected 'new', got %q", got)
		}
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		dir := t.TempDir()
		if err := WriteFileAtomic(filepath.Join(dir, "local.json"), []byte("x"), 0600); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), TempFilePrefix) {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("Fails if Directory Missing", func(t *testing.T) {
		dir := t.TempDir()
		err := WriteFileAtomic(filepath.Join(dir, "missing", "local.json"), []byte("x"), 0600)
		if err == nil {
			t.Error("expected error when directory is missing")
		}
	})
}
