package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	if err := WriteFileAtomic(path, []byte("one"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("content = %q, want %q", got, "two")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestBestEffortBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	BestEffortBackup(path, 0o600)
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("backup of a missing file should not be created")
	}

	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}
	BestEffortBackup(path, 0o600)
	got, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("backup = %q, want v1", got)
	}
}

func TestQuarantine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	now := time.Date(2026, 2, 9, 10, 30, 0, 0, time.UTC)

	dest, err := Quarantine(path, now)
	if err != nil || dest != "" {
		t.Fatalf("missing file: dest=%q err=%v", dest, err)
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	dest, err = Quarantine(path, now)
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if want := path + ".corrupt.20260209-103000"; dest != want {
		t.Fatalf("dest = %q, want %q", dest, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("original should be gone")
	}
}

func TestReadIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	data, err := ReadIfExists(path)
	if err != nil || data != nil {
		t.Fatalf("missing file: data=%q err=%v", data, err)
	}
}
