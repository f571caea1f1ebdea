package poll

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on huddle.polls, huddle.poll_options,
// and huddle.poll_votes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed poll store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreatePoll(ctx context.Context, p Poll) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO huddle.polls (id, group_id, question, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.GroupID, p.Question, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return err
	}
	for i, o := range p.Options {
		_, err = tx.Exec(ctx, `
			INSERT INTO huddle.poll_options (id, poll_id, text, position)
			VALUES ($1, $2, $3, $4)
		`, o.ID, p.ID, o.Text, i)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetPoll(ctx context.Context, id string) (Poll, error) {
	var p Poll
	err := s.pool.QueryRow(ctx, `
		SELECT id, group_id, question, created_by, created_at
		FROM huddle.polls
		WHERE id = $1
	`, id).Scan(&p.ID, &p.GroupID, &p.Question, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Poll{}, ErrNotFound
	}
	if err != nil {
		return Poll{}, err
	}

	opts, err := s.optionsFor(ctx, id)
	if err != nil {
		return Poll{}, err
	}
	p.Options = opts
	return p, nil
}

func (s *PostgresStore) ListByGroup(ctx context.Context, groupID string) ([]Poll, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, group_id, question, created_by, created_at
		FROM huddle.polls
		WHERE group_id = $1
		ORDER BY created_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Poll
	for rows.Next() {
		var p Poll
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Question, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		opts, err := s.optionsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Options = opts
	}
	return out, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, v Vote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO huddle.poll_votes (poll_id, user_id, option_id, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, user_id)
		DO UPDATE SET option_id = EXCLUDED.option_id, cast_at = EXCLUDED.cast_at
	`, v.PollID, v.UserID, v.OptionID, v.CastAt)
	return err
}

func (s *PostgresStore) Counts(ctx context.Context, pollID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT option_id, count(*)
		FROM huddle.poll_votes
		WHERE poll_id = $1
		GROUP BY option_id
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var optionID string
		var n int
		if err := rows.Scan(&optionID, &n); err != nil {
			return nil, err
		}
		counts[optionID] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) optionsFor(ctx context.Context, pollID string) ([]Option, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, text
		FROM huddle.poll_options
		WHERE poll_id = $1
		ORDER BY position
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Text); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
