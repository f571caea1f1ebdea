package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (huddle.refresh_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed refresh-token store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert creates a new refresh-token row.
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO huddle.refresh_tokens (
			token_id, user_id, token_hash, expires_at, revoked, revoked_at, created_at
		) VALUES ($1, $2, $3, $4, false, NULL, $5)
	`, rec.TokenID, rec.UserID, rec.TokenHash, rec.ExpiresAt, rec.CreatedAt)
	return err
}

// GetByTokenID loads a row by jti.
func (s *PostgresStore) GetByTokenID(ctx context.Context, tokenID string) (Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, `
		SELECT token_id, user_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM huddle.refresh_tokens
		WHERE token_id = $1
	`, tokenID).Scan(
		&rec.TokenID, &rec.UserID, &rec.TokenHash,
		&rec.ExpiresAt, &rec.Revoked, &rec.RevokedAt, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Revoke marks a single row revoked (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, tokenID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE huddle.refresh_tokens
		SET revoked = true,
		    revoked_at = COALESCE(revoked_at, $2)
		WHERE token_id = $1
	`, tokenID, now)
	return err
}

// RevokeAllForUser marks every active row of the user revoked.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, now time.Time, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE huddle.refresh_tokens
		SET revoked = true,
		    revoked_at = COALESCE(revoked_at, $2)
		WHERE user_id = $1 AND NOT revoked
	`, userID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// BeginRotation opens a transaction and locks the row for tokenID.
func (s *PostgresStore) BeginRotation(ctx context.Context, tokenID string) (RotationTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	var rec Record
	err = tx.QueryRow(ctx, `
		SELECT token_id, user_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM huddle.refresh_tokens
		WHERE token_id = $1
		FOR UPDATE
	`, tokenID).Scan(
		&rec.TokenID, &rec.UserID, &rec.TokenHash,
		&rec.ExpiresAt, &rec.Revoked, &rec.RevokedAt, &rec.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &pgRotationTx{tx: tx, rec: rec}, nil
}

// DeleteExpiredAndOldRevoked removes stale rows.
func (s *PostgresStore) DeleteExpiredAndOldRevoked(ctx context.Context, now, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM huddle.refresh_tokens
		WHERE expires_at < $1
		   OR (revoked AND revoked_at < $2)
	`, now, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgRotationTx struct {
	tx  pgx.Tx
	rec Record
}

func (t *pgRotationTx) Record() Record { return t.rec }

func (t *pgRotationTx) RevokeAllForUser(ctx context.Context, now time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE huddle.refresh_tokens
		SET revoked = true,
		    revoked_at = COALESCE(revoked_at, $2)
		WHERE user_id = $1 AND NOT revoked
	`, t.rec.UserID, now)
	return err
}

func (t *pgRotationTx) Insert(ctx context.Context, rec Record) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO huddle.refresh_tokens (
			token_id, user_id, token_hash, expires_at, revoked, revoked_at, created_at
		) VALUES ($1, $2, $3, $4, false, NULL, $5)
	`, rec.TokenID, rec.UserID, rec.TokenHash, rec.ExpiresAt, rec.CreatedAt)
	return err
}

func (t *pgRotationTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgRotationTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
