package chat

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PrivatePostgresStore implements PrivateStore on huddle.private_chats
// and huddle.private_messages.
type PrivatePostgresStore struct {
	pool *pgxpool.Pool
}

// NewPrivatePostgresStore creates a Postgres-backed private-chat store.
func NewPrivatePostgresStore(pool *pgxpool.Pool) *PrivatePostgresStore {
	return &PrivatePostgresStore{pool: pool}
}

func (s *PrivatePostgresStore) InsertConversation(ctx context.Context, c Conversation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO huddle.private_chats (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.UserAID, c.UserBID, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConversationExists
		}
		return err
	}
	return nil
}

func (s *PrivatePostgresStore) GetConversation(ctx context.Context, id string) (Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_a_id, user_b_id, created_at
		FROM huddle.private_chats
		WHERE id = $1
	`, id).Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func (s *PrivatePostgresStore) FindConversation(ctx context.Context, userAID, userBID string) (Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_a_id, user_b_id, created_at
		FROM huddle.private_chats
		WHERE user_a_id = $1 AND user_b_id = $2
	`, userAID, userBID).Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func (s *PrivatePostgresStore) InsertMessage(ctx context.Context, m PrivateStoredMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO huddle.private_messages (id, chat_id, sender_id, ciphertext, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.ConversationID, m.SenderID, m.Ciphertext, m.SentAt)
	return err
}

func (s *PrivatePostgresStore) ListByConversation(ctx context.Context, conversationID string, limit int) ([]PrivateStoredMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, sender_id, ciphertext, sent_at
		FROM (
			SELECT id, chat_id, sender_id, ciphertext, sent_at
			FROM huddle.private_messages
			WHERE chat_id = $1
			ORDER BY sent_at DESC
			LIMIT $2
		) recent
		ORDER BY sent_at
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PrivateStoredMessage
	for rows.Next() {
		var m PrivateStoredMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Ciphertext, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
