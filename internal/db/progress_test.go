package db

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func createTestUser(t *testing.T, database *DB, email string) int64 {
	t.Helper()
	user, err := database.CreateUser(CreateUserInput{
		Email:        email,
		FullName:     "Test User",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return user.ID
}

// noopRemover satisfies DocumentRemover without touching any disk.
type noopRemover struct{}

func (noopRemover) RemoveDocumentsForItem(int64, []string) error { return nil }

// failingRemover breaks a reset midway to exercise the rollback path.
type failingRemover struct{}

func (failingRemover) RemoveDocumentsForItem(int64, []string) error {
	return errors.New("disk unavailable")
}

func TestInitializeProgress(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "init@example.com")

	items, err := database.InitializeProgress(uid, TrackerTask, "France", DefaultTaskTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(items) != len(DefaultTaskTemplate) {
		t.Fatalf("got %d items, want %d", len(items), len(DefaultTaskTemplate))
	}
	for i, it := range items {
		if it.SequenceIndex != i+1 {
			t.Errorf("item %d: sequence_index = %d, want %d", i, it.SequenceIndex, i+1)
		}
		if it.Status != "pending" {
			t.Errorf("item %d: status = %q, want pending", i, it.Status)
		}
		if got, want := it.Unlocked, i == 0; got != want {
			t.Errorf("item %d: unlocked = %v, want %v", i, got, want)
		}
	}

	t.Run("SecondInitializeConflicts", func(t *testing.T) {
		_, err := database.InitializeProgress(uid, TrackerTask, "France", DefaultTaskTemplate)
		if !errors.Is(err, ErrAlreadyInitialized) {
			t.Fatalf("err = %v, want ErrAlreadyInitialized", err)
		}
	})

	t.Run("OtherCountryIsSeparateInstance", func(t *testing.T) {
		more, err := database.InitializeProgress(uid, TrackerTask, "Germany", DefaultTaskTemplate)
		if err != nil {
			t.Fatalf("initialize second country: %v", err)
		}
		if !more[0].Unlocked {
			t.Error("first item of new instance should be unlocked")
		}
	})

	t.Run("StepTrackerIndependent", func(t *testing.T) {
		steps, err := database.InitializeProgress(uid, TrackerStep, "", DefaultStepTemplate)
		if err != nil {
			t.Fatalf("initialize steps: %v", err)
		}
		if len(steps) != len(DefaultStepTemplate) {
			t.Fatalf("got %d steps, want %d", len(steps), len(DefaultStepTemplate))
		}
	})
}

func TestSetProgressStatusUnlocksSuccessor(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "unlock@example.com")
	items, err := database.InitializeProgress(uid, TrackerStep, "", DefaultStepTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	updated, err := database.SetProgressStatus(uid, items[0].ID, "completed")
	if err != nil {
		t.Fatalf("completing first item: %v", err)
	}
	if updated.Status != "completed" {
		t.Errorf("status = %q, want completed", updated.Status)
	}

	second, err := database.GetProgressItem(uid, items[1].ID)
	if err != nil {
		t.Fatalf("loading second item: %v", err)
	}
	if !second.Unlocked {
		t.Error("second item should be unlocked after first completed")
	}
	third, _ := database.GetProgressItem(uid, items[2].ID)
	if third.Unlocked {
		t.Error("third item should still be locked")
	}
}

func TestUnlockIsMonotonic(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "monotonic@example.com")
	items, err := database.InitializeProgress(uid, TrackerStep, "", DefaultStepTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Complete A and B, then revert A. B's completion and C's unlock must
	// survive the revert.
	if _, err := database.SetProgressStatus(uid, items[0].ID, "completed"); err != nil {
		t.Fatalf("completing A: %v", err)
	}
	if _, err := database.SetProgressStatus(uid, items[1].ID, "completed"); err != nil {
		t.Fatalf("completing B: %v", err)
	}
	reverted, err := database.SetProgressStatus(uid, items[0].ID, "pending")
	if err != nil {
		t.Fatalf("reverting A: %v", err)
	}
	if reverted.Status != "pending" {
		t.Errorf("A status = %q, want pending", reverted.Status)
	}

	b, _ := database.GetProgressItem(uid, items[1].ID)
	if b.Status != "completed" || !b.Unlocked {
		t.Errorf("B after revert: status=%q unlocked=%v, want completed/true", b.Status, b.Unlocked)
	}
	c, _ := database.GetProgressItem(uid, items[2].ID)
	if !c.Unlocked {
		t.Error("C should remain unlocked after A reverted")
	}
}

func TestCompleteLastItemIsNoopUnlock(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "last@example.com")
	items, err := database.InitializeProgress(uid, TrackerStep, "", DefaultStepTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	last := items[len(items)-1]
	if _, err := database.SetProgressStatus(uid, last.ID, "completed"); err != nil {
		t.Fatalf("completing last item: %v", err)
	}
}

func TestProgressOwnershipScoping(t *testing.T) {
	database := openTestDB(t)
	owner := createTestUser(t, database, "owner@example.com")
	other := createTestUser(t, database, "other@example.com")
	items, err := database.InitializeProgress(owner, TrackerTask, "France", DefaultTaskTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := database.GetProgressItem(other, items[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get foreign item: err = %v, want ErrNotFound", err)
	}
	if _, err := database.SetProgressStatus(other, items[0].ID, "completed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("set status on foreign item: err = %v, want ErrNotFound", err)
	}
	deleted, err := database.DeleteProgressItem(other, items[0].ID)
	if err != nil {
		t.Fatalf("delete foreign item: %v", err)
	}
	if deleted {
		t.Error("delete of foreign item should report not found")
	}
}

func TestCreateProgressItemAppends(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "append@example.com")
	items, err := database.InitializeProgress(uid, TrackerTask, "France", DefaultTaskTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	custom, err := database.CreateProgressItem(uid, CreateProgressItemInput{
		Tracker:  TrackerTask,
		Category: "France",
		Title:    "Register with tax office",
	})
	if err != nil {
		t.Fatalf("creating custom item: %v", err)
	}
	if got, want := custom.SequenceIndex, len(items)+1; got != want {
		t.Errorf("sequence_index = %d, want %d", got, want)
	}
	if custom.Unlocked {
		t.Error("appended item after incomplete predecessor should be locked")
	}
	if custom.Priority != "medium" {
		t.Errorf("default priority = %q, want medium", custom.Priority)
	}

	t.Run("FirstItemInEmptyInstanceUnlocked", func(t *testing.T) {
		first, err := database.CreateProgressItem(uid, CreateProgressItemInput{
			Tracker:  TrackerTask,
			Category: "Spain",
			Title:    "Find housing",
		})
		if err != nil {
			t.Fatalf("creating first custom item: %v", err)
		}
		if first.SequenceIndex != 1 || !first.Unlocked {
			t.Errorf("first item: seq=%d unlocked=%v, want 1/true", first.SequenceIndex, first.Unlocked)
		}
	})
}

func TestUpdateProgressItem(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "edit@example.com")
	items, err := database.InitializeProgress(uid, TrackerTask, "France", DefaultTaskTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := database.SetProgressStatus(uid, items[0].ID, "in_progress"); err != nil {
		t.Fatalf("setting status: %v", err)
	}

	title := "Renamed task"
	priority := "urgent"
	updated, err := database.UpdateProgressItem(uid, items[0].ID, UpdateProgressItemInput{
		Title:    &title,
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed task" || updated.Priority != "urgent" {
		t.Errorf("item = %q/%q", updated.Title, updated.Priority)
	}
	// Editing descriptive fields leaves the state machine alone.
	if updated.Status != "in_progress" {
		t.Errorf("status = %q, want in_progress preserved", updated.Status)
	}
	if updated.SequenceIndex != items[0].SequenceIndex {
		t.Errorf("sequence_index = %d, want %d", updated.SequenceIndex, items[0].SequenceIndex)
	}

	t.Run("EmptyUpdateIsRead", func(t *testing.T) {
		got, err := database.UpdateProgressItem(uid, items[0].ID, UpdateProgressItemInput{})
		if err != nil {
			t.Fatalf("empty update: %v", err)
		}
		if got.Title != "Renamed task" {
			t.Error("empty update changed state")
		}
	})

	t.Run("ForeignItemNotFound", func(t *testing.T) {
		other := createTestUser(t, database, "editother@example.com")
		if _, err := database.UpdateProgressItem(other, items[0].ID, UpdateProgressItemInput{Title: &title}); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestDeleteProgressItemKeepsSequence(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "delete@example.com")
	items, err := database.InitializeProgress(uid, TrackerTask, "France", DefaultTaskTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	deleted, err := database.DeleteProgressItem(uid, items[1].ID)
	if err != nil {
		t.Fatalf("deleting item: %v", err)
	}
	if !deleted {
		t.Fatal("expected item to be deleted")
	}

	// Remaining items keep their original indexes; the gap is not closed.
	remaining, err := database.ListProgress(uid, TrackerTask, "France")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(remaining) != len(items)-1 {
		t.Fatalf("got %d items, want %d", len(remaining), len(items)-1)
	}
	for _, it := range remaining {
		if it.SequenceIndex == 2 {
			t.Error("deleted index 2 should stay vacant")
		}
	}
	if remaining[1].SequenceIndex != 3 {
		t.Errorf("second remaining index = %d, want 3", remaining[1].SequenceIndex)
	}
}

func TestResetProgress(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "reset@example.com")
	items, err := database.InitializeProgress(uid, TrackerStep, "", DefaultStepTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := database.SetProgressStatus(uid, items[i].ID, "completed"); err != nil {
			t.Fatalf("completing item %d: %v", i, err)
		}
	}
	if _, err := database.CreateDocument(CreateDocumentInput{
		ItemID: items[0].ID, UserID: uid,
		Filename: "a.pdf", OriginalFilename: "passport.pdf",
		FilePath: "user_1/a.pdf", FileSize: 100, ContentType: "application/pdf",
	}); err != nil {
		t.Fatalf("attaching document: %v", err)
	}

	fresh, err := database.ResetProgress(uid, TrackerStep, "", DefaultStepTemplate, noopRemover{})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(fresh) != len(DefaultStepTemplate) {
		t.Fatalf("got %d items after reset, want %d", len(fresh), len(DefaultStepTemplate))
	}
	for i, it := range fresh {
		if it.Status != "pending" {
			t.Errorf("item %d status = %q, want pending", i, it.Status)
		}
		if got, want := it.Unlocked, i == 0; got != want {
			t.Errorf("item %d unlocked = %v, want %v", i, got, want)
		}
	}
	if docs, _ := database.GetItemDocuments(items[0].ID, uid); len(docs) != 0 {
		t.Errorf("documents should be gone after reset, got %d", len(docs))
	}
}

func TestResetProgressRollsBackOnFailure(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "resetfail@example.com")
	items, err := database.InitializeProgress(uid, TrackerStep, "", DefaultStepTemplate)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := database.SetProgressStatus(uid, items[0].ID, "completed"); err != nil {
		t.Fatalf("completing item: %v", err)
	}
	if _, err := database.CreateDocument(CreateDocumentInput{
		ItemID: items[0].ID, UserID: uid,
		Filename: "b.pdf", OriginalFilename: "visa.pdf",
		FilePath: "user_1/b.pdf", FileSize: 100, ContentType: "application/pdf",
	}); err != nil {
		t.Fatalf("attaching document: %v", err)
	}

	_, err = database.ResetProgress(uid, TrackerStep, "", DefaultStepTemplate, failingRemover{})
	if !errors.Is(err, ErrResetFailed) {
		t.Fatalf("err = %v, want ErrResetFailed", err)
	}

	// Prior state must be fully intact.
	after, err := database.ListProgress(uid, TrackerStep, "")
	if err != nil {
		t.Fatalf("listing after failed reset: %v", err)
	}
	if len(after) != len(items) {
		t.Fatalf("got %d items after failed reset, want %d", len(after), len(items))
	}
	if after[0].Status != "completed" {
		t.Errorf("first item status = %q, want completed preserved", after[0].Status)
	}
	if docs, _ := database.GetItemDocuments(items[0].ID, uid); len(docs) != 1 {
		t.Errorf("document record should survive failed reset, got %d", len(docs))
	}
}

func TestListProgressOrdering(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "order@example.com")
	if _, err := database.InitializeProgress(uid, TrackerTask, "France", DefaultTaskTemplate); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := database.CreateProgressItem(uid, CreateProgressItemInput{
			Tracker: TrackerTask, Category: "France",
			Title: fmt.Sprintf("extra %d", i),
		}); err != nil {
			t.Fatalf("adding extra item: %v", err)
		}
	}

	items, err := database.ListProgress(uid, TrackerTask, "France")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	for i := 1; i < len(items); i++ {
		if items[i].SequenceIndex <= items[i-1].SequenceIndex {
			t.Fatalf("items out of order at %d: %d then %d", i, items[i-1].SequenceIndex, items[i].SequenceIndex)
		}
	}
}
