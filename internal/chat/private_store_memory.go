package chat

import (
	"context"
	"sync"
)

// PrivateMemoryStore is an in-memory PrivateStore for dev mode and tests.
type PrivateMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Conversation
	byPair map[[2]string]string              // normalized pair -> conversation id
	msgs   map[string][]PrivateStoredMessage // conversation id -> arrival order
}

// NewPrivateMemoryStore creates an empty in-memory private-chat store.
func NewPrivateMemoryStore() *PrivateMemoryStore {
	return &PrivateMemoryStore{
		byID:   make(map[string]Conversation),
		byPair: make(map[[2]string]string),
		msgs:   make(map[string][]PrivateStoredMessage),
	}
}

func (s *PrivateMemoryStore) InsertConversation(_ context.Context, c Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := [2]string{c.UserAID, c.UserBID}
	if _, ok := s.byPair[pair]; ok {
		return ErrConversationExists
	}
	s.byPair[pair] = c.ID
	s.byID[c.ID] = c
	return nil
}

func (s *PrivateMemoryStore) GetConversation(_ context.Context, id string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	return c, nil
}

func (s *PrivateMemoryStore) FindConversation(_ context.Context, userAID, userBID string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[[2]string{userAID, userBID}]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	return s.byID[id], nil
}

func (s *PrivateMemoryStore) InsertMessage(_ context.Context, m PrivateStoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs[m.ConversationID] = append(s.msgs[m.ConversationID], m)
	return nil
}

func (s *PrivateMemoryStore) ListByConversation(_ context.Context, conversationID string, limit int) ([]PrivateStoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.msgs[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]PrivateStoredMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
