package session

import (
	"context"
	"time"
)

// Record mirrors a huddle.refresh_tokens row.
type Record struct {
	// TokenID is the opaque identifier embedded in the token (jti).
	TokenID string
	// UserID is the owning user.
	UserID string
	// TokenHash is the one-way hash of the full signed token.
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Store abstracts persistence for refresh-token records.
//
// BeginRotation is the rotation safety contract: the returned
// RotationTx must hold exclusive access to the record for its jti
// until Commit or Rollback, so that two concurrent rotations of the
// same token serialize and the loser observes the revocation.
type Store interface {
	// Insert creates a new record.
	Insert(ctx context.Context, rec Record) error

	// GetByTokenID loads a record by jti, revoked or not.
	GetByTokenID(ctx context.Context, tokenID string) (Record, error)

	// Revoke marks a single record revoked (idempotent; no error when
	// already revoked).
	Revoke(ctx context.Context, now time.Time, tokenID string) error

	// RevokeAllForUser marks every active record of the user revoked and
	// reports how many were affected.
	RevokeAllForUser(ctx context.Context, now time.Time, userID string) (int64, error)

	// BeginRotation locks the record for tokenID and opens a rotation
	// transaction. Returns ErrSessionNotFound when no record exists.
	BeginRotation(ctx context.Context, tokenID string) (RotationTx, error)

	// DeleteExpiredAndOldRevoked removes records past expiry and revoked
	// records older than cutoff. Returns the number of rows removed.
	DeleteExpiredAndOldRevoked(ctx context.Context, now, cutoff time.Time) (int64, error)
}

// RotationTx is an open rotation transaction for one jti.
type RotationTx interface {
	// Record returns the locked record as read at transaction start.
	Record() Record

	// RevokeAllForUser revokes every active record of the owning user
	// inside the transaction (this includes the locked record).
	RevokeAllForUser(ctx context.Context, now time.Time) error

	// Insert adds the successor record inside the transaction.
	Insert(ctx context.Context, rec Record) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
