// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status
// semantics; domain codes are used where the status alone is ambiguous
// (a 403 on guestbook deletion always means the secret did not match).
// Clients branch on these codes, never on messages.

package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeUnavailable      = "service_unavailable"

	// Domain-specific:
	ErrCodeValidation       = "validation_failed"
	ErrCodeSecretMismatch   = "secret_mismatch"
	ErrCodeUnsupportedImage = "unsupported_image"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
)
