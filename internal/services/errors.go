// Package services defines the business logic for RSVPs, the guestbook,
// guest photos and the Q&A board. This file centralizes service-level error
// values so that they can be returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Input problems are reported as *domain.ValidationError,
// which names the failing field.
package services

import "errors"

// Guestbook errors.
var (
	// ErrGuestbookNotFound indicates that no guestbook entry has the given id.
	ErrGuestbookNotFound = errors.New("guestbook entry not found")

	// ErrSecretMismatch is returned when the supplied deletion secret does
	// not match the one stored with the entry.
	ErrSecretMismatch = errors.New("secret does not match")
)

// Photo errors.
var (
	// ErrNoFiles is returned when an upload request carries no images.
	ErrNoFiles = errors.New("no files uploaded")

	// ErrTooManyFiles is returned when an upload batch exceeds the limit.
	ErrTooManyFiles = errors.New("too many files in one upload")

	// ErrUnsupportedImage is returned when an upload cannot be decoded.
	ErrUnsupportedImage = errors.New("unsupported image")
)

// Q&A errors.
var (
	// ErrQuestionNotFound indicates that no question has the given id.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrEmptyPatch is returned by moderation calls that change nothing.
	ErrEmptyPatch = errors.New("nothing to update")
)

// ErrIdempotencyConflict is returned when an Idempotency-Key was already used
// for a record that no longer exists.
var ErrIdempotencyConflict = errors.New("idempotency key already used")
