// Package common defines shared constants and sentinel errors used across
// the credential vault. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Access-control errors. ErrorRevealDisabled is deliberately distinct
	// from ErrorPermissionDenied: the kill-switch overrides ownership.
	ErrorPermissionDenied = errors.New("permission denied")
	ErrorRevealDisabled   = errors.New("reveals are globally disabled")

	// Validation errors (self-share, unknown item type, bad duration).
	ErrorValidation = errors.New("validation error")

	// Secret material errors. ErrFormat signals an unrecognized stored
	// encoding or a malformed IV; ErrCrypto signals an AEAD tag failure.
	ErrFormat = errors.New("unrecognized secret encoding")
	ErrCrypto = errors.New("decryption failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
