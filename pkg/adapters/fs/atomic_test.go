package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Creates New File", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "annotated.docx")
		content := []byte("PK fake")

		if err := WriteFileAtomic(filename, content, 0644); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != string(content) {
			t.Errorf("Expected content %q, got %q", content, got)
		}
	})

	t.Run("Overwrites Existing File", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "rules.csv")

		if err := os.WriteFile(filename, []byte("initial"), 0644); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
		if err := WriteFileAtomic(filename, []byte("overwritten"), 0644); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != "overwritten" {
			t.Errorf("Expected content 'overwritten', got '%s'", got)
		}
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		tmpDir := t.TempDir()
		if err := WriteFileAtomic(filepath.Join(tmpDir, "out.docx"), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}

		entries, err := os.ReadDir(tmpDir)
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
		filename := filepath.Join(t.TempDir(), "missing_folder", "out.docx")
		if err := WriteFileAtomic(filename, []byte("fail"), 0644); err == nil {
			t.Error("Expected error when directory is missing, got nil")
		}
	})
}
