package group

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on huddle.groups / huddle.group_members.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed group store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateGroup(ctx context.Context, g Group) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO huddle.groups (id, name, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`, g.ID, g.Name, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO huddle.group_members (group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`, g.ID, g.CreatedBy, RoleAdmin, g.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetGroup(ctx context.Context, id string) (Group, error) {
	var g Group
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_by, created_at
		FROM huddle.groups
		WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Group{}, ErrNotFound
	}
	if err != nil {
		return Group{}, err
	}
	return g, nil
}

func (s *PostgresStore) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_by, created_at
		FROM huddle.groups
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM huddle.groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddMember(ctx context.Context, m Member) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO huddle.group_members (group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`, m.GroupID, m.UserID, m.Role, m.JoinedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyMember
	}
	return err
}

func (s *PostgresStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM huddle.group_members
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotMember
	}
	return nil
}

func (s *PostgresStore) GetMember(ctx context.Context, groupID, userID string) (Member, error) {
	var m Member
	err := s.pool.QueryRow(ctx, `
		SELECT group_id, user_id, role, joined_at
		FROM huddle.group_members
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrNotMember
	}
	if err != nil {
		return Member{}, err
	}
	return m, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, groupID string) ([]Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT group_id, user_id, role, joined_at
		FROM huddle.group_members
		WHERE group_id = $1
		ORDER BY joined_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountAdmins(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM huddle.group_members
		WHERE group_id = $1 AND role = $2
	`, groupID, RoleAdmin).Scan(&n)
	return n, err
}
