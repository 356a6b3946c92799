// Package storage keeps uploaded documents on disk under a per-user
// directory, with type and size validation. PDF and common image formats
// only; nothing here talks to the database.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/pkg/idgen"
)

// allowedTypes are the upload content types accepted for documents.
var allowedTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
}

// ErrInvalidType is returned for uploads outside the allowed content types.
var ErrInvalidType = fmt.Errorf("invalid file type: only PDF and image files are allowed")

// ErrTooLarge is returned for uploads exceeding the configured size limit.
var ErrTooLarge = fmt.Errorf("file too large")

type Store struct {
	baseDir string
	maxSize int64
}

func New(baseDir string, maxSizeMB int) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{
		baseDir: baseDir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) MaxSize() int64 { return s.maxSize }

// ValidContentType reports whether the upload type is accepted.
func ValidContentType(contentType string) bool {
	_, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}

// Save writes an upload to disk under user_<id>/ with a generated filename.
// Returns the path relative to the base dir, the stored filename, and the
// byte count. Rejects disallowed types and enforces the size limit while
// copying, so a lying Content-Length cannot bypass it.
func (s *Store) Save(userID int64, contentType string, r io.Reader) (relPath, filename string, size int64, err error) {
	ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", "", 0, ErrInvalidType
	}

	userDir := fmt.Sprintf("user_%d", userID)
	if err := os.MkdirAll(filepath.Join(s.baseDir, userDir), 0o755); err != nil {
		return "", "", 0, fmt.Errorf("creating user dir: %w", err)
	}

	filename = idgen.New() + ext
	relPath = filepath.Join(userDir, filename)
	fullPath := filepath.Join(s.baseDir, relPath)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	// +1 so an exactly-at-limit upload passes and one byte over fails.
	size, err = io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		os.Remove(fullPath)
		return "", "", 0, fmt.Errorf("writing file: %w", err)
	}
	if size > s.maxSize {
		os.Remove(fullPath)
		return "", "", 0, ErrTooLarge
	}
	return relPath, filename, size, nil
}

// Remove deletes one stored file. A missing file is not an error; the record
// is the source of truth and stray deletion should not fail callers.
func (s *Store) Remove(relPath string) error {
	err := os.Remove(filepath.Join(s.baseDir, relPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveDocumentsForItem deletes all stored files for one checklist item.
// Implements the tracker's DocumentRemover collaborator: after a successful
// return no file references remain for the item.
func (s *Store) RemoveDocumentsForItem(itemID int64, paths []string) error {
	for _, p := range paths {
		if err := s.Remove(p); err != nil {
			return fmt.Errorf("removing document for item %d: %w", itemID, err)
		}
	}
	return nil
}
