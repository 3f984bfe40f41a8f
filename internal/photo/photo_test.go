package photo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "balcony.JPG")
	if err := os.WriteFile(src, []byte("jpeg bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(filepath.Join(root, "Photos"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	stored, err := m.Save(src)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(stored) != m.Dir() || !strings.HasSuffix(stored, ".jpg") {
		t.Fatalf("stored path = %s", stored)
	}
	data, err := os.ReadFile(stored)
	if err != nil || string(data) != "jpeg bytes" {
		t.Fatalf("copy content = %q, err = %v", data, err)
	}

	if err := m.Delete(stored); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(stored); !os.IsNotExist(err) {
		t.Fatalf("file still exists: %v", err)
	}
	// Deleting twice is fine.
	if err := m.Delete(stored); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestDeleteRefusesOutsidePaths(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(filepath.Join(root, "Photos"))
	if err != nil {
		t.Fatal(err)
	}
	victim := filepath.Join(root, "keep.txt")
	os.WriteFile(victim, []byte("x"), 0o600)

	if err := m.Delete(victim); err == nil {
		t.Fatal("expected refusal for path outside photo dir")
	}
	if _, err := os.Stat(victim); err != nil {
		t.Fatalf("victim removed: %v", err)
	}
}
