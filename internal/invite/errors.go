package invite

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the record to delete does not exist.
	ErrNotFound = errors.New("invite: record not found")
	// ErrSecretMismatch is returned when a deletion secret does not match.
	// Callers should ask the guest to recheck the secret rather than retry.
	ErrSecretMismatch = errors.New("invite: secret does not match")
	// ErrSubmitInFlight rejects a submit while the previous one is pending.
	ErrSubmitInFlight = errors.New("invite: submit already in progress")
	// ErrAlreadySubscribed is returned by a second Merge.Start.
	ErrAlreadySubscribed = errors.New("invite: feed already subscribed")
)

// StoreError wraps a failed store call. It is always eligible for a retry
// triggered by the guest; nothing in this package retries on its own.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("invite: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable reports whether err should be offered to the guest as
// "try again": store failures are, validation and secret errors are not.
func Retryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
