package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")

	if err := WriteFileAtomic(path, []byte(`{"id":"a"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"id":"a"}` {
		t.Fatalf("content mismatch: got %q", got)
	}

	// Overwrite must replace, not append.
	if err := WriteFileAtomic(path, []byte(`{"id":"b"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"id":"b"}` {
		t.Fatalf("overwrite mismatch: got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, dir has %d entries", len(entries))
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	content := []byte("paginated document bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])

	got, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("digest mismatch: got %s, want %s", got, want)
	}

	again, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if again != got {
		t.Fatalf("digest not stable across invocations: %s vs %s", again, got)
	}
}

func TestHashFile_MissingSource(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
