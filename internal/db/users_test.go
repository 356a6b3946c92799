package db

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreateAndGetUser(t *testing.T) {
	database := openTestDB(t)

	user, err := database.CreateUser(CreateUserInput{
		Email:        "new@example.com",
		FullName:     "New Arrival",
		Country:      "India",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if !user.IsActive {
		t.Error("new user should be active")
	}

	got, err := database.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Email != "new@example.com" {
		t.Errorf("email = %q", got.Email)
	}

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		_, err := database.CreateUser(CreateUserInput{
			Email: "new@example.com", PasswordHash: "hash2",
		})
		if err == nil || !strings.Contains(err.Error(), "UNIQUE") {
			t.Fatalf("err = %v, want UNIQUE violation", err)
		}
	})

	t.Run("GetByEmailReturnsHash", func(t *testing.T) {
		u, hash, err := database.GetUserByEmail("new@example.com")
		if err != nil {
			t.Fatalf("get by email: %v", err)
		}
		if u.ID != user.ID || hash != "hash" {
			t.Errorf("got id=%d hash=%q", u.ID, hash)
		}
	})
}

func TestUpdateUserPartial(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "update@example.com")

	city := "Lyon"
	selected := true
	user, err := database.UpdateUser(uid, UpdateUserInput{
		City:            &city,
		CountrySelected: &selected,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.City == nil || *user.City != "Lyon" {
		t.Errorf("city = %v, want Lyon", user.City)
	}
	if !user.CountrySelected {
		t.Error("country_selected should be set")
	}
	// Untouched fields survive.
	if user.FullName == nil || *user.FullName != "Test User" {
		t.Errorf("full_name = %v, want Test User preserved", user.FullName)
	}

	t.Run("EmptyUpdateIsRead", func(t *testing.T) {
		got, err := database.UpdateUser(uid, UpdateUserInput{})
		if err != nil {
			t.Fatalf("empty update: %v", err)
		}
		if got.City == nil || *got.City != "Lyon" {
			t.Error("empty update changed state")
		}
	})

	t.Run("MissingUserNotFound", func(t *testing.T) {
		name := "Nobody"
		if _, err := database.UpdateUser(99999, UpdateUserInput{FullName: &name}); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestPasswordResetTokens(t *testing.T) {
	database := openTestDB(t)
	uid := createTestUser(t, database, "forgot@example.com")

	token, err := database.CreatePasswordResetToken(uid, time.Hour)
	if err != nil {
		t.Fatalf("creating token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := database.ConsumePasswordResetToken(token)
	if err != nil {
		t.Fatalf("consuming token: %v", err)
	}
	if got != uid {
		t.Errorf("user id = %d, want %d", got, uid)
	}

	t.Run("SecondUseRejected", func(t *testing.T) {
		if _, err := database.ConsumePasswordResetToken(token); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("NewTokenInvalidatesOld", func(t *testing.T) {
		first, err := database.CreatePasswordResetToken(uid, time.Hour)
		if err != nil {
			t.Fatalf("first token: %v", err)
		}
		second, err := database.CreatePasswordResetToken(uid, time.Hour)
		if err != nil {
			t.Fatalf("second token: %v", err)
		}
		if _, err := database.ConsumePasswordResetToken(first); !errors.Is(err, ErrNotFound) {
			t.Errorf("stale token: err = %v, want ErrNotFound", err)
		}
		if _, err := database.ConsumePasswordResetToken(second); err != nil {
			t.Errorf("fresh token: %v", err)
		}
	})

	t.Run("ExpiredTokenRejected", func(t *testing.T) {
		expired, err := database.CreatePasswordResetToken(uid, -time.Minute)
		if err != nil {
			t.Fatalf("creating expired token: %v", err)
		}
		if _, err := database.ConsumePasswordResetToken(expired); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("UnknownTokenRejected", func(t *testing.T) {
		if _, err := database.ConsumePasswordResetToken("no-such-token"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
