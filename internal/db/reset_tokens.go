package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/pkg/idgen"
)

// CreatePasswordResetToken issues a single-use reset token for the user.
// Previous unused tokens for the same user are invalidated.
func (db *DB) CreatePasswordResetToken(userID int64, ttl time.Duration) (string, error) {
	token := idgen.New() + idgen.New()
	expiresAt := time.Now().UTC().Add(ttl)

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`UPDATE password_reset_tokens SET used = 1 WHERE user_id = ? AND used = 0`, userID)
	if err != nil {
		return "", err
	}
	_, err = tx.Exec(`
		INSERT INTO password_reset_tokens (token, user_id, expires_at)
		VALUES (?, ?, ?)`, token, userID, expiresAt)
	if err != nil {
		return "", fmt.Errorf("creating reset token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumePasswordResetToken validates and burns a token, returning the user
// it belongs to. Expired, used, or unknown tokens all return ErrNotFound.
func (db *DB) ConsumePasswordResetToken(token string) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	var expiresAt time.Time
	var used bool
	err = tx.QueryRow(`
		SELECT user_id, expires_at, used FROM password_reset_tokens WHERE token = ?`, token).
		Scan(&userID, &expiresAt, &used)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if used || time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}

	if _, err := tx.Exec(`UPDATE password_reset_tokens SET used = 1 WHERE token = ?`, token); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}
