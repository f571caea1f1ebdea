package identity

import "errors"

// Public, stable errors for callers.
var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when registering an already-taken username.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidInput is returned for blank or malformed identifiers.
	ErrInvalidInput = errors.New("invalid input")
)
