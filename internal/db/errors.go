package db

import "errors"

// ErrNotFound is returned when a referenced row is missing or not owned by
// the caller. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// ErrAlreadyInitialized is returned when a progress tracker is initialized
// twice for the same owner and instance.
var ErrAlreadyInitialized = errors.New("already initialized")

// ErrForbidden is returned when the caller lacks the role an action requires.
var ErrForbidden = errors.New("forbidden")

// ErrResetFailed is returned when an atomic tracker reset could not complete.
// The pre-reset state is guaranteed unchanged.
var ErrResetFailed = errors.New("reset failed")
