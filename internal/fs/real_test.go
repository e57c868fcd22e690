package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Real_ReplaceFile_Moves_Source_Over_Destination(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "rpmdb.sqlite.tmp")
	dst := filepath.Join(dir, "rpmdb.sqlite")

	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewReal().ReplaceFile(src, dst); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != "new" {
		t.Fatalf("content=%q, want %q", got, "new")
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still exists: err=%v", err)
	}
}

func Test_Real_WriteFileAtomic_Creates_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.json")

	if err := NewReal().WriteFileAtomic(path, []byte(`[]`)); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != "[]" {
		t.Fatalf("content=%q, want %q", got, "[]")
	}
}
