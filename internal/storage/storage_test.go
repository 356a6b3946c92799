package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRemove(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	relPath, filename, size, err := store.Save(7, "application/pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len("%PDF-1.4 fake")) {
		t.Errorf("size = %d", size)
	}
	if !strings.HasSuffix(filename, ".pdf") {
		t.Errorf("filename = %q, want .pdf suffix", filename)
	}
	if !strings.HasPrefix(relPath, "user_7"+string(filepath.Separator)) {
		t.Errorf("relPath = %q, want under user_7/", relPath)
	}
	if _, err := os.Stat(filepath.Join(store.BaseDir(), relPath)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	if err := store.Remove(relPath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.BaseDir(), relPath)); !os.IsNotExist(err) {
		t.Error("file should be gone after remove")
	}

	t.Run("RemoveMissingIsNoop", func(t *testing.T) {
		if err := store.Remove(relPath); err != nil {
			t.Errorf("removing missing file: %v", err)
		}
	})
}

func TestSaveRejectsBadType(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	_, _, _, err = store.Save(1, "application/x-msdownload", strings.NewReader("MZ"))
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("err = %v, want ErrInvalidType", err)
	}

	if ValidContentType("image/png") != true {
		t.Error("image/png should be valid")
	}
	if ValidContentType("text/html") {
		t.Error("text/html should be invalid")
	}
}

func TestSaveEnforcesSizeLimit(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	// Exactly at the limit passes.
	at := bytes.Repeat([]byte("a"), 1024*1024)
	relPath, _, _, err := store.Save(1, "image/png", bytes.NewReader(at))
	if err != nil {
		t.Fatalf("at-limit save: %v", err)
	}
	_ = store.Remove(relPath)

	// One byte over fails and leaves nothing behind.
	over := bytes.Repeat([]byte("a"), 1024*1024+1)
	_, _, _, err = store.Save(1, "image/png", bytes.NewReader(over))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	entries, err := os.ReadDir(filepath.Join(store.BaseDir(), "user_1"))
	if err != nil {
		t.Fatalf("reading user dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected upload left %d files behind", len(entries))
	}
}

func TestRemoveDocumentsForItem(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	var paths []string
	for i := 0; i < 3; i++ {
		p, _, _, err := store.Save(2, "image/jpeg", strings.NewReader("jpeg bytes"))
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		paths = append(paths, p)
	}

	if err := store.RemoveDocumentsForItem(11, paths); err != nil {
		t.Fatalf("remove for item: %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(store.BaseDir(), p)); !os.IsNotExist(err) {
			t.Errorf("%s should be gone", p)
		}
	}
}
