package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store using PostgreSQL (huddle.users).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed user store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new user row and returns it.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, username, passwordHash string) (User, error) {
	username = NormalizeUsername(username)
	if username == "" || passwordHash == "" {
		return User{}, ErrInvalidInput
	}

	id := ulid.Make().String()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO huddle.users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, username, passwordHash, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateUsername
		}
		return User{}, err
	}

	return User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// GetByUsername loads a user by username.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (User, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return User{}, ErrInvalidInput
	}

	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM huddle.users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetByID loads a user by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM huddle.users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// UsernameExists reports whether a username is taken.
func (s *PostgresStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return false, nil
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM huddle.users WHERE username = $1)
	`, username).Scan(&exists)
	return exists, err
}

// UpdatePassword replaces the stored password hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if passwordHash == "" {
		return ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE huddle.users
		SET password_hash = $2
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all users ordered by username.
func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, password_hash, created_at
		FROM huddle.users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
