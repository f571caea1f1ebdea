package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"huddle/internal/group"
	"huddle/internal/identity"
	"huddle/internal/security/crypto"
)

// Service implements chat operations: sealed persistence plus live
// fan-out.
type Service struct {
	store  Store
	box    *crypto.Box
	groups *group.Service
	users  identity.Store
	hub    *Hub
	log    *slog.Logger
}

// NewService wires a chat service.
func NewService(store Store, box *crypto.Box, groups *group.Service, users identity.Store, hub *Hub, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, box: box, groups: groups, users: users, hub: hub, log: log}
}

// Hub exposes the fan-out hub for the websocket gateway.
func (s *Service) Hub() *Hub { return s.hub }

// Send validates, seals, persists, and broadcasts one message.
func (s *Service) Send(ctx context.Context, now time.Time, groupID, userID, username, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmpty
	}
	// Rejected, not truncated: cutting at a byte boundary could split a
	// rune and persist invalid UTF-8.
	if len(content) > MaxMessageBytes {
		return Message{}, ErrTooLong
	}

	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return Message{}, err
	}

	sealed, err := s.box.Seal(content)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:       ulid.Make().String(),
		GroupID:  groupID,
		UserID:   userID,
		Username: username,
		Content:  content,
		SentAt:   now,
	}
	if err := s.store.Insert(ctx, StoredMessage{
		ID:         m.ID,
		GroupID:    m.GroupID,
		UserID:     m.UserID,
		Ciphertext: sealed,
		SentAt:     m.SentAt,
	}); err != nil {
		return Message{}, err
	}

	s.hub.Broadcast(GroupRoom(m.GroupID), m)
	return m, nil
}

// History returns up to limit recent messages, oldest first, with
// content unsealed and usernames resolved.
func (s *Service) History(ctx context.Context, groupID, userID string, limit int) ([]Message, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	stored, err := s.store.ListByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	out := make([]Message, 0, len(stored))
	for _, sm := range stored {
		content, err := s.box.Open(sm.Ciphertext)
		if err != nil {
			// An unreadable row is skipped, not fatal: history must
			// survive a key rotation that orphans old rows.
			s.log.WarnContext(ctx, "chat.history.unsealable", "message_id", sm.ID)
			continue
		}

		name, ok := names[sm.UserID]
		if !ok {
			if u, err := s.users.GetByID(ctx, sm.UserID); err == nil {
				name = u.Username
			}
			names[sm.UserID] = name
		}

		out = append(out, Message{
			ID:       sm.ID,
			GroupID:  sm.GroupID,
			UserID:   sm.UserID,
			Username: name,
			Content:  content,
			SentAt:   sm.SentAt,
		})
	}
	return out, nil
}

func (s *Service) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
