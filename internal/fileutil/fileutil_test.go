package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteVerified(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "clip.wav")

	if err := WriteVerified(dst, []byte("RIFF data"), 0o640); err != nil {
		t.Fatalf("WriteVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "RIFF data" {
		t.Fatalf("content mismatch: %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %v, want 0640", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the destination file, found %d entries", len(entries))
	}
}

func TestWriteVerifiedReplacesExisting(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteVerified(dst, []byte("new payload"), 0o644); err != nil {
		t.Fatalf("WriteVerified: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new payload" {
		t.Fatalf("content = %q", got)
	}
}

func TestWriteVerifiedMissingDirectory(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", "out.json")
	if err := WriteVerified(dst, []byte("{}"), 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
