package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reposync/reposync/internal/apperrors"
)

func TestWriteAtomic_WritesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.txt")

	if err := WriteAtomic(path, []byte("hello")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, err := ReadText(path, 0)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestWriteAtomic_LeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	if err := WriteAtomic(path, []byte("first")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestWriteAtomic_RejectsSymlinkInPath(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	if err := os.Mkdir(real, 0700); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	path := filepath.Join(link, "file.txt")
	err := WriteAtomic(path, []byte("x"))
	if !errors.Is(err, apperrors.ErrSymlinkInPath) {
		t.Fatalf("expected ErrSymlinkInPath, got %v", err)
	}
}

func TestReadText_MissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	data, err := ReadText(filepath.Join(dir, "nope.txt"), 0)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil, got %v", data)
	}
}

func TestReadText_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(path, make([]byte, 100), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := ReadText(path, 10)
	if !errors.Is(err, apperrors.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestContainsSymlink_NoSymlinks(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0700); err != nil {
		t.Fatal(err)
	}
	has, err := ContainsSymlink(sub)
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Fatal("expected no symlink")
	}
}

func TestWriteAtomic_OverwriteExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	if err := WriteAtomic(path, []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(path, []byte("v2-longer-content")); err != nil {
		t.Fatal(err)
	}
	got, err := ReadText(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2-longer-content" {
		t.Fatalf("got %q", got)
	}
}
