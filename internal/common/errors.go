// Package common defines shared constants, helpers and sentinel errors used
// across the reminder client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrInvalidInput = errors.New("invalid input")

	// Identity errors.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already in use")
	ErrEmailNotFound      = errors.New("email not found")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Session token errors (invalid, expired or signed with another secret).
	ErrInvalidToken = errors.New("invalid token")

	// ErrStorageCorrupt marks a persisted snapshot that could not be decoded.
	// It is recovered locally and never returned from a store operation.
	ErrStorageCorrupt = errors.New("storage corrupt")
)
