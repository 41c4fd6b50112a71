// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a missing or malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState indicates an OAuth state that is forged, malformed or expired.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")
)
