// CLAUDE:SUMMARY Forum engine — questions/answers, idempotent (target,voter) voting via upsert, exclusive answer acceptance, recomputed tallies
package db

import (
	"database/sql"
	"fmt"
	"time"
)

type Question struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Category    string       `json:"category"`
	IsResolved  bool         `json:"is_resolved"`
	ViewCount   int          `json:"view_count"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
	AnswerCount int          `json:"answer_count"`
	Upvotes     int          `json:"upvotes"`
	Downvotes   int          `json:"downvotes"`
	User        *UserSummary `json:"user,omitempty"`
	Answers     []*Answer    `json:"answers,omitempty"`
}

type Answer struct {
	ID         int64        `json:"id"`
	QuestionID int64        `json:"question_id"`
	UserID     int64        `json:"user_id"`
	Content    string       `json:"content"`
	IsAccepted bool         `json:"is_accepted"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  *time.Time   `json:"updated_at,omitempty"`
	Upvotes    int          `json:"upvotes"`
	Downvotes  int          `json:"downvotes"`
	User       *UserSummary `json:"user,omitempty"`
}

const questionColumns = `id, user_id, title, content, category, is_resolved, view_count, created_at, updated_at`

func scanQuestion(s interface{ Scan(...any) error }) (*Question, error) {
	q := &Question{}
	var updatedAt sql.NullTime
	err := s.Scan(&q.ID, &q.UserID, &q.Title, &q.Content, &q.Category,
		&q.IsResolved, &q.ViewCount, &q.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		q.UpdatedAt = &updatedAt.Time
	}
	return q, nil
}

type CreateQuestionInput struct {
	AuthorID int64
	Title    string
	Content  string
	Category string
}

func (db *DB) CreateQuestion(input CreateQuestionInput) (*Question, error) {
	if input.Category == "" {
		input.Category = "general"
	}
	res, err := db.Exec(`
		INSERT INTO questions (user_id, title, content, category)
		VALUES (?, ?, ?, ?)`, input.AuthorID, input.Title, input.Content, input.Category)
	if err != nil {
		return nil, fmt.Errorf("creating question: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	q, err := scanQuestion(db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	q.User = db.GetUserSummary(q.UserID)
	return q, nil
}

// ListQuestions returns the newest questions first, optionally filtered by
// category, with answer counts and vote tallies. Does not touch view counts.
func (db *DB) ListQuestions(category string, limit, offset int) ([]*Question, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var rows *sql.Rows
	var err error
	if category != "" {
		rows, err = db.Query(`
			SELECT `+questionColumns+` FROM questions WHERE category = ?
			ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, category, limit, offset)
	} else {
		rows, err = db.Query(`
			SELECT `+questionColumns+` FROM questions
			ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, q := range results {
		if err := db.QueryRow(`SELECT COUNT(*) FROM answers WHERE question_id = ?`, q.ID).Scan(&q.AnswerCount); err != nil {
			return nil, err
		}
		q.Upvotes, q.Downvotes, err = db.QuestionTally(q.ID)
		if err != nil {
			return nil, err
		}
		q.User = db.GetUserSummary(q.UserID)
	}
	return results, nil
}

// GetQuestion returns a question with its answers in chronological order.
// Every fetch increments view_count by one — no viewer dedup — and the
// returned count reflects the increment.
func (db *DB) GetQuestion(id int64) (*Question, error) {
	res, err := db.Exec(`UPDATE questions SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	q, err := scanQuestion(db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.User = db.GetUserSummary(q.UserID)
	q.Upvotes, q.Downvotes, err = db.QuestionTally(id)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, question_id, user_id, content, is_accepted, created_at, updated_at
		FROM answers WHERE question_id = ? ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a := &Answer{}
		var updatedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.UserID, &a.Content, &a.IsAccepted, &a.CreatedAt, &updatedAt); err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			a.UpdatedAt = &updatedAt.Time
		}
		q.Answers = append(q.Answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range q.Answers {
		a.Upvotes, a.Downvotes, err = db.AnswerTally(a.ID)
		if err != nil {
			return nil, err
		}
		a.User = db.GetUserSummary(a.UserID)
	}
	q.AnswerCount = len(q.Answers)
	return q, nil
}

func (db *DB) CreateAnswer(questionID, authorID int64, content string) (*Answer, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM questions WHERE id = ?`, questionID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	res, err := db.Exec(`
		INSERT INTO answers (question_id, user_id, content)
		VALUES (?, ?, ?)`, questionID, authorID, content)
	if err != nil {
		return nil, fmt.Errorf("creating answer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	a := &Answer{}
	var updatedAt sql.NullTime
	err = db.QueryRow(`
		SELECT id, question_id, user_id, content, is_accepted, created_at, updated_at
		FROM answers WHERE id = ?`, id).
		Scan(&a.ID, &a.QuestionID, &a.UserID, &a.Content, &a.IsAccepted, &a.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		a.UpdatedAt = &updatedAt.Time
	}
	a.User = db.GetUserSummary(a.UserID)
	return a, nil
}

// VoteQuestion records or overwrites the voter's polarity on a question.
// Repeating the call converges to exactly one vote row per (question, voter)
// pair; the unique constraint, not app-level locking, resolves racing
// inserts.
func (db *DB) VoteQuestion(questionID, voterID int64, isUpvote bool) error {
	return db.castVote("questions", "question_votes", "question_id", questionID, voterID, isUpvote)
}

// VoteAnswer records or overwrites the voter's polarity on an answer.
func (db *DB) VoteAnswer(answerID, voterID int64, isUpvote bool) error {
	return db.castVote("answers", "answer_votes", "answer_id", answerID, voterID, isUpvote)
}

func (db *DB) castVote(targetTable, voteTable, targetCol string, targetID, voterID int64, isUpvote bool) error {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM `+targetTable+` WHERE id = ?`, targetID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	return withRetry(func() error {
		_, err := db.Exec(`
			INSERT INTO `+voteTable+` (`+targetCol+`, user_id, is_upvote)
			VALUES (?, ?, ?)
			ON CONFLICT(`+targetCol+`, user_id) DO UPDATE SET is_upvote = excluded.is_upvote`,
			targetID, voterID, isUpvote)
		if err != nil {
			return fmt.Errorf("casting vote: %w", err)
		}
		return nil
	})
}

// QuestionTally recomputes a question's (upvotes, downvotes) from the vote
// rows. Never cached, so it cannot drift.
func (db *DB) QuestionTally(questionID int64) (int, int, error) {
	return db.tally("question_votes", "question_id", questionID)
}

// AnswerTally recomputes an answer's (upvotes, downvotes) from the vote rows.
func (db *DB) AnswerTally(answerID int64) (int, int, error) {
	return db.tally("answer_votes", "answer_id", answerID)
}

func (db *DB) tally(voteTable, targetCol string, targetID int64) (int, int, error) {
	var up, down int
	err := db.QueryRow(`
		SELECT COALESCE(SUM(is_upvote = 1), 0), COALESCE(SUM(is_upvote = 0), 0)
		FROM `+voteTable+` WHERE `+targetCol+` = ?`, targetID).Scan(&up, &down)
	if err != nil {
		return 0, 0, err
	}
	return up, down, nil
}

// AcceptAnswer marks one answer as the question's resolution. Only the
// question's author may accept. The sibling unset, the target set, and the
// question's is_resolved flag commit as one transaction, so a reader never
// observes two accepted answers for a question. Resolution is sticky: it
// only moves by accepting a different answer.
func (db *DB) AcceptAnswer(answerID, requesterID int64) error {
	return withRetry(func() error {
		return db.acceptAnswerOnce(answerID, requesterID)
	})
}

func (db *DB) acceptAnswerOnce(answerID, requesterID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var questionID int64
	err = tx.QueryRow(`SELECT question_id FROM answers WHERE id = ?`, answerID).Scan(&questionID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var questionAuthor int64
	err = tx.QueryRow(`SELECT user_id FROM questions WHERE id = ?`, questionID).Scan(&questionAuthor)
	if err != nil {
		return err
	}
	if questionAuthor != requesterID {
		return ErrForbidden
	}

	_, err = tx.Exec(`
		UPDATE answers SET is_accepted = 0, updated_at = datetime('now')
		WHERE question_id = ? AND id != ? AND is_accepted = 1`, questionID, answerID)
	if err != nil {
		return fmt.Errorf("unsetting siblings: %w", err)
	}
	_, err = tx.Exec(`
		UPDATE answers SET is_accepted = 1, updated_at = datetime('now') WHERE id = ?`, answerID)
	if err != nil {
		return fmt.Errorf("accepting answer: %w", err)
	}
	_, err = tx.Exec(`UPDATE questions SET is_resolved = 1 WHERE id = ?`, questionID)
	if err != nil {
		return fmt.Errorf("resolving question: %w", err)
	}
	return tx.Commit()
}
