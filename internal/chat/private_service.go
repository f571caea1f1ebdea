package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"huddle/internal/identity"
	"huddle/internal/security/crypto"
)

// PrivateService implements 1:1 chat: get-or-create conversations,
// sealed persistence, and live fan-out.
type PrivateService struct {
	store PrivateStore
	box   *crypto.Box
	users identity.Store
	hub   *Hub
	log   *slog.Logger
}

// NewPrivateService wires a private-chat service.
func NewPrivateService(store PrivateStore, box *crypto.Box, users identity.Store, hub *Hub, log *slog.Logger) *PrivateService {
	if log == nil {
		log = slog.Default()
	}
	return &PrivateService{store: store, box: box, users: users, hub: hub, log: log}
}

// GetOrCreate returns the conversation between the two users, creating
// it on first contact. Either argument order resolves to the same
// conversation.
func (s *PrivateService) GetOrCreate(ctx context.Context, now time.Time, userID, peerID string) (Conversation, error) {
	if userID == peerID {
		return Conversation{}, ErrSelfConversation
	}
	a, b := orderPair(userID, peerID)

	conv, err := s.store.FindConversation(ctx, a, b)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return Conversation{}, err
	}

	conv = Conversation{ID: ulid.Make().String(), UserAID: a, UserBID: b, CreatedAt: now}
	if err := s.store.InsertConversation(ctx, conv); err != nil {
		// Lost a first-contact race; the other side's row wins.
		if errors.Is(err, ErrConversationExists) {
			return s.store.FindConversation(ctx, a, b)
		}
		return Conversation{}, err
	}
	return conv, nil
}

// Conversation loads a conversation and authorizes userID against it.
// A conversation the user is not part of reports ErrNotParticipant.
func (s *PrivateService) Conversation(ctx context.Context, id, userID string) (Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	if !conv.Participant(userID) {
		return Conversation{}, ErrNotParticipant
	}
	return conv, nil
}

// Send validates, seals, persists, and broadcasts one private message.
func (s *PrivateService) Send(ctx context.Context, now time.Time, conversationID, senderID, username, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmpty
	}
	if len(content) > MaxMessageBytes {
		return Message{}, ErrTooLong
	}

	if _, err := s.Conversation(ctx, conversationID, senderID); err != nil {
		return Message{}, err
	}

	sealed, err := s.box.Seal(content)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		UserID:         senderID,
		Username:       username,
		Content:        content,
		SentAt:         now,
	}
	if err := s.store.InsertMessage(ctx, PrivateStoredMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.UserID,
		Ciphertext:     sealed,
		SentAt:         m.SentAt,
	}); err != nil {
		return Message{}, err
	}

	s.hub.Broadcast(PrivateRoom(conversationID), m)
	return m, nil
}

// History returns up to limit recent messages of the conversation,
// oldest first, unsealed, with sender usernames resolved.
func (s *PrivateService) History(ctx context.Context, conversationID, userID string, limit int) ([]Message, error) {
	if _, err := s.Conversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	stored, err := s.store.ListByConversation(ctx, conversationID, limit)
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
			s.log.WarnContext(ctx, "chat.private.history.unsealable", "message_id", sm.ID)
			continue
		}

		name, ok := names[sm.SenderID]
		if !ok {
			if u, err := s.users.GetByID(ctx, sm.SenderID); err == nil {
				name = u.Username
			}
			names[sm.SenderID] = name
		}

		out = append(out, Message{
			ID:             sm.ID,
			ConversationID: sm.ConversationID,
			UserID:         sm.SenderID,
			Username:       name,
			Content:        content,
			SentAt:         sm.SentAt,
		})
	}
	return out, nil
}
