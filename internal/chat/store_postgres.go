package chat

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on huddle.messages.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed message store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, m StoredMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO huddle.messages (id, group_id, user_id, ciphertext, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.GroupID, m.UserID, m.Ciphertext, m.SentAt)
	return err
}

func (s *PostgresStore) ListByGroup(ctx context.Context, groupID string, limit int) ([]StoredMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, group_id, user_id, ciphertext, sent_at
		FROM (
			SELECT id, group_id, user_id, ciphertext, sent_at
			FROM huddle.messages
			WHERE group_id = $1
			ORDER BY sent_at DESC
			LIMIT $2
		) recent
		ORDER BY sent_at
	`, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Ciphertext, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
