package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prajwalreddypr/Expat-Ease/internal/db"
)

func openLogger(t *testing.T) (*SQLiteLogger, *db.DB) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLiteLogger(database.DB), database
}

func TestLogWritesRow(t *testing.T) {
	logger, database := openLogger(t)
	defer logger.Close()

	err := logger.Log(context.Background(), &Entry{
		Action: "login",
		UserID: "42",
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}

	var status, entryID string
	err = database.QueryRow(`SELECT status, entry_id FROM audit_log WHERE action = 'login'`).
		Scan(&status, &entryID)
	if err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	if status != "success" {
		t.Errorf("status = %q, want success default", status)
	}
	if entryID == "" {
		t.Error("entry_id should be filled in")
	}
}

func TestErrorEntriesMarked(t *testing.T) {
	logger, database := openLogger(t)
	defer logger.Close()

	if err := logger.Log(context.Background(), &Entry{
		Action: "reset_tasks",
		Error:  "disk unavailable",
	}); err != nil {
		t.Fatalf("log: %v", err)
	}

	var status string
	if err := database.QueryRow(`SELECT status FROM audit_log WHERE action = 'reset_tasks'`).Scan(&status); err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	if status != "error" {
		t.Errorf("status = %q, want error", status)
	}
}

func TestAsyncFlushOnClose(t *testing.T) {
	logger, database := openLogger(t)

	for i := 0; i < 5; i++ {
		logger.LogAsync(&Entry{Action: "vote_question", UserID: "1"})
	}
	// Close drains the buffer before returning.
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Errorf("got %d entries, want 5", n)
	}
}
