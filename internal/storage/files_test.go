package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_SaveAndRemove(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	name, err := fs.Save("p1", "image/jpeg", []byte{0xFF, 0xD8, 0xFF})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(name, "-p1.jpg") {
		t.Errorf("unexpected file name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(fs.Dir(), name))
	if err != nil {
		t.Fatalf("saved file not readable: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("unexpected file contents: %v", data)
	}

	if err := fs.Remove(name); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fs.Dir(), name)); !os.IsNotExist(err) {
		t.Error("file still exists after Remove")
	}
}

func TestFileStore_RemoveMissingFile(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := fs.Remove("does-not-exist.jpg"); err != nil {
		t.Errorf("removing a missing file should not error, got %v", err)
	}
}

func TestFileStore_UnknownMIMEType(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	name, err := fs.Save("p1", "application/octet-stream", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(name, ".bin") {
		t.Errorf("expected .bin extension for unknown type, got %q", name)
	}
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	if _, err := NewFileStore(dir); err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("uploads directory not created: %v", err)
	}
}
