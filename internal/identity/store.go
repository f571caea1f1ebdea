package identity

import (
	"context"
	"strings"
	"time"
)

// User is a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store abstracts persistence for user records.
type Store interface {
	// Create inserts a new user. Returns ErrDuplicateUsername when the
	// username is already taken.
	Create(ctx context.Context, now time.Time, username, passwordHash string) (User, error)

	// GetByUsername loads a user by exact username.
	GetByUsername(ctx context.Context, username string) (User, error)

	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id string) (User, error)

	// UsernameExists reports whether a username is taken.
	UsernameExists(ctx context.Context, username string) (bool, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// List returns all users ordered by username, for the member picker.
	List(ctx context.Context) ([]User, error)
}

// NormalizeUsername trims surrounding whitespace and lowercases the name.
// Usernames are matched case-insensitively everywhere.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
