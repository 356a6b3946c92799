package db

import (
	"database/sql"
	"fmt"
	"time"
)

type Document struct {
	ID               int64     `json:"id"`
	ItemID           int64     `json:"item_id"`
	UserID           int64     `json:"user_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	ContentType      string    `json:"content_type"`
	CreatedAt        time.Time `json:"created_at"`
	DownloadURL      string    `json:"download_url,omitempty"`
}

type CreateDocumentInput struct {
	ItemID           int64
	UserID           int64
	Filename         string
	OriginalFilename string
	FilePath         string
	FileSize         int64
	ContentType      string
}

const documentColumns = `id, item_id, user_id, filename, original_filename, file_path, file_size, content_type, created_at`

func scanDocument(s interface{ Scan(...any) error }) (*Document, error) {
	d := &Document{}
	err := s.Scan(&d.ID, &d.ItemID, &d.UserID, &d.Filename, &d.OriginalFilename,
		&d.FilePath, &d.FileSize, &d.ContentType, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDocument records an uploaded file against a checklist item. The item
// must exist and belong to the uploading user.
func (db *DB) CreateDocument(input CreateDocumentInput) (*Document, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM progress_items WHERE id = ? AND owner_id = ?`,
		input.ItemID, input.UserID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	res, err := db.Exec(`
		INSERT INTO documents (item_id, user_id, filename, original_filename, file_path, file_size, content_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		input.ItemID, input.UserID, input.Filename, input.OriginalFilename,
		input.FilePath, input.FileSize, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetDocument(id, input.UserID)
}

func (db *DB) GetDocument(id, userID int64) (*Document, error) {
	d, err := scanDocument(db.QueryRow(`
		SELECT `+documentColumns+` FROM documents WHERE id = ? AND user_id = ?`, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// GetItemDocuments lists documents attached to one checklist item, oldest
// first, scoped to the owning user.
func (db *DB) GetItemDocuments(itemID, userID int64) ([]*Document, error) {
	rows, err := db.Query(`
		SELECT `+documentColumns+` FROM documents
		WHERE item_id = ? AND user_id = ? ORDER BY created_at ASC`, itemID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// DeleteDocument removes the record and returns its file path for disk
// cleanup. Returns ErrNotFound if missing or not owned.
func (db *DB) DeleteDocument(id, userID int64) (string, error) {
	var path string
	err := db.QueryRow(`SELECT file_path FROM documents WHERE id = ? AND user_id = ?`, id, userID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if _, err := db.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("deleting document: %w", err)
	}
	return path, nil
}
