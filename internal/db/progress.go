// CLAUDE:SUMMARY Progress tracker — sequential-unlock checklist shared by onboarding tasks and settlement steps; init/list/status/delete/atomic reset
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Tracker instance names. The task tracker is keyed additionally by a
// category (the settlement country); the step tracker uses category "".
const (
	TrackerTask = "task"
	TrackerStep = "step"
)

type ProgressItem struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Tracker       string    `json:"tracker"`
	Category      string    `json:"category,omitempty"`
	SequenceIndex int       `json:"sequence_index"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	Unlocked      bool      `json:"unlocked"`
	Priority      string    `json:"priority"`
	IsRequired    bool      `json:"is_required"`
	EstimatedDays *int      `json:"estimated_days,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const progressColumns = `id, owner_id, tracker, category, sequence_index, title, description,
	status, unlocked, priority, is_required, estimated_days, created_at, updated_at`

func scanProgressItem(s interface{ Scan(...any) error }) (*ProgressItem, error) {
	it := &ProgressItem{}
	var estimatedDays sql.NullInt64
	err := s.Scan(&it.ID, &it.OwnerID, &it.Tracker, &it.Category, &it.SequenceIndex,
		&it.Title, &it.Description, &it.Status, &it.Unlocked, &it.Priority,
		&it.IsRequired, &estimatedDays, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if estimatedDays.Valid {
		d := int(estimatedDays.Int64)
		it.EstimatedDays = &d
	}
	return it, nil
}

// InitializeProgress seeds a tracker instance from a template. Items get
// gapless sequence indexes starting at 1; only the first item is unlocked.
// Fails with ErrAlreadyInitialized if the owner already has items for this
// instance.
func (db *DB) InitializeProgress(ownerID int64, tracker, category string, template []TemplateEntry) ([]*ProgressItem, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	err = tx.QueryRow(`SELECT COUNT(*) FROM progress_items WHERE owner_id = ? AND tracker = ? AND category = ?`,
		ownerID, tracker, category).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyInitialized
	}

	if err := insertTemplate(tx, ownerID, tracker, category, template); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return db.ListProgress(ownerID, tracker, category)
}

func insertTemplate(tx *sql.Tx, ownerID int64, tracker, category string, template []TemplateEntry) error {
	for i, entry := range template {
		var estimatedDays *int
		if entry.EstimatedDays > 0 {
			d := entry.EstimatedDays
			estimatedDays = &d
		}
		_, err := tx.Exec(`
			INSERT INTO progress_items (owner_id, tracker, category, sequence_index, title,
				description, priority, is_required, estimated_days, unlocked)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ownerID, tracker, category, i+1, entry.Title,
			entry.Description, entry.Priority, entry.IsRequired, estimatedDays, i == 0)
		if err != nil {
			return fmt.Errorf("seeding item %d: %w", i+1, err)
		}
	}
	return nil
}

// ListProgress returns all items of a tracker instance ordered by sequence.
func (db *DB) ListProgress(ownerID int64, tracker, category string) ([]*ProgressItem, error) {
	rows, err := db.Query(`
		SELECT `+progressColumns+` FROM progress_items
		WHERE owner_id = ? AND tracker = ? AND category = ?
		ORDER BY sequence_index ASC`, ownerID, tracker, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ProgressItem
	for rows.Next() {
		it, err := scanProgressItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, it)
	}
	return results, rows.Err()
}

// ListProgressByTracker returns all of an owner's items across categories
// (the task feed without a country filter).
func (db *DB) ListProgressByTracker(ownerID int64, tracker string) ([]*ProgressItem, error) {
	rows, err := db.Query(`
		SELECT `+progressColumns+` FROM progress_items
		WHERE owner_id = ? AND tracker = ?
		ORDER BY category ASC, sequence_index ASC`, ownerID, tracker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ProgressItem
	for rows.Next() {
		it, err := scanProgressItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, it)
	}
	return results, rows.Err()
}

// GetProgressItem returns one item, scoped to its owner. ErrNotFound covers
// both a missing row and a row owned by someone else.
func (db *DB) GetProgressItem(ownerID, itemID int64) (*ProgressItem, error) {
	it, err := scanProgressItem(db.QueryRow(`
		SELECT `+progressColumns+` FROM progress_items WHERE id = ? AND owner_id = ?`,
		itemID, ownerID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return it, err
}

// SetProgressStatus updates an item's status. Completing a non-terminal item
// unlocks its successor in the same transaction. The unlock is monotonic:
// reverting an item to pending leaves every previously granted unlock in
// place.
func (db *DB) SetProgressStatus(ownerID, itemID int64, status string) (*ProgressItem, error) {
	err := withRetry(func() error {
		return db.setStatusOnce(ownerID, itemID, status)
	})
	if err != nil {
		return nil, err
	}
	return db.GetProgressItem(ownerID, itemID)
}

func (db *DB) setStatusOnce(ownerID, itemID int64, status string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var tracker, category string
	var seq int
	err = tx.QueryRow(`SELECT tracker, category, sequence_index FROM progress_items WHERE id = ? AND owner_id = ?`,
		itemID, ownerID).Scan(&tracker, &category, &seq)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(`UPDATE progress_items SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, itemID)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	if status == "completed" {
		_, err = tx.Exec(`
			UPDATE progress_items SET unlocked = 1, updated_at = datetime('now')
			WHERE owner_id = ? AND tracker = ? AND category = ? AND sequence_index = ?`,
			ownerID, tracker, category, seq+1)
		if err != nil {
			return fmt.Errorf("unlocking next item: %w", err)
		}
	}
	return tx.Commit()
}

// CreateProgressItemInput adds a custom item to an existing tracker instance.
type CreateProgressItemInput struct {
	Tracker       string
	Category      string
	Title         string
	Description   string
	Priority      string
	IsRequired    bool
	EstimatedDays *int
}

// CreateProgressItem appends a custom item after the instance's current last
// sequence index. A first item in an empty instance starts unlocked.
func (db *DB) CreateProgressItem(ownerID int64, input CreateProgressItemInput) (*ProgressItem, error) {
	if input.Priority == "" {
		input.Priority = "medium"
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq int
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(sequence_index), 0) FROM progress_items
		WHERE owner_id = ? AND tracker = ? AND category = ?`,
		ownerID, input.Tracker, input.Category).Scan(&maxSeq)
	if err != nil {
		return nil, err
	}

	// Unlocked if it opens the sequence, or its predecessor is completed.
	unlocked := maxSeq == 0
	if maxSeq > 0 {
		var prevStatus string
		err = tx.QueryRow(`
			SELECT status FROM progress_items
			WHERE owner_id = ? AND tracker = ? AND category = ? AND sequence_index = ?`,
			ownerID, input.Tracker, input.Category, maxSeq).Scan(&prevStatus)
		if err != nil {
			return nil, err
		}
		unlocked = prevStatus == "completed"
	}

	res, err := tx.Exec(`
		INSERT INTO progress_items (owner_id, tracker, category, sequence_index, title,
			description, priority, is_required, estimated_days, unlocked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, input.Tracker, input.Category, maxSeq+1, input.Title,
		input.Description, input.Priority, input.IsRequired, input.EstimatedDays, unlocked)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return db.GetProgressItem(ownerID, id)
}

// UpdateProgressItemInput carries a partial edit of an item's descriptive
// fields. Nil fields are left untouched.
type UpdateProgressItemInput struct {
	Title         *string
	Description   *string
	Priority      *string
	EstimatedDays *int
}

// UpdateProgressItem edits an item's descriptive fields. Status, unlock
// state, and sequence position only change through SetProgressStatus and
// the lifecycle operations.
func (db *DB) UpdateProgressItem(ownerID, itemID int64, input UpdateProgressItemInput) (*ProgressItem, error) {
	set := ""
	var args []any
	add := func(col string, val any) {
		if set != "" {
			set += ", "
		}
		set += col + " = ?"
		args = append(args, val)
	}
	if input.Title != nil {
		add("title", *input.Title)
	}
	if input.Description != nil {
		add("description", *input.Description)
	}
	if input.Priority != nil {
		add("priority", *input.Priority)
	}
	if input.EstimatedDays != nil {
		add("estimated_days", *input.EstimatedDays)
	}
	if set == "" {
		return db.GetProgressItem(ownerID, itemID)
	}
	set += ", updated_at = datetime('now')"

	res, err := db.Exec(`UPDATE progress_items SET `+set+` WHERE id = ? AND owner_id = ?`,
		append(args, itemID, ownerID)...)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return db.GetProgressItem(ownerID, itemID)
}

// DeleteProgressItem removes one item. Remaining items are not renumbered
// and unlock state is not re-evaluated, so removing a non-terminal item
// leaves a permanent gap in the sequence.
func (db *DB) DeleteProgressItem(ownerID, itemID int64) (bool, error) {
	res, err := db.Exec(`DELETE FROM progress_items WHERE id = ? AND owner_id = ?`, itemID, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DocumentRemover cleans up stored files for a checklist item. Implemented
// by the upload store; reset calls it before dropping the item's rows.
type DocumentRemover interface {
	RemoveDocumentsForItem(itemID int64, paths []string) error
}

// ResetProgress wipes a tracker instance and reseeds it from the template,
// all inside one transaction. Attached documents are removed through the
// collaborator first. Any failure rolls the whole operation back and
// surfaces as ErrResetFailed with the pre-reset state intact.
func (db *DB) ResetProgress(ownerID int64, tracker, category string, template []TemplateEntry, docs DocumentRemover) ([]*ProgressItem, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`
		SELECT id FROM progress_items WHERE owner_id = ? AND tracker = ? AND category = ?`,
		ownerID, tracker, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	var itemIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
		}
		itemIDs = append(itemIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
	}

	for _, itemID := range itemIDs {
		paths, err := documentPathsForItem(tx, itemID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
		}
		if docs != nil && len(paths) > 0 {
			if err := docs.RemoveDocumentsForItem(itemID, paths); err != nil {
				return nil, fmt.Errorf("%w: removing documents for item %d: %v", ErrResetFailed, itemID, err)
			}
		}
		if _, err := tx.Exec(`DELETE FROM documents WHERE item_id = ?`, itemID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
		}
		if _, err := tx.Exec(`DELETE FROM progress_items WHERE id = ?`, itemID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
		}
	}

	if err := insertTemplate(tx, ownerID, tracker, category, template); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	return db.ListProgress(ownerID, tracker, category)
}

func documentPathsForItem(tx *sql.Tx, itemID int64) ([]string, error) {
	rows, err := tx.Query(`SELECT file_path FROM documents WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
