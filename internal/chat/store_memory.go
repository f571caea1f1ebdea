package chat

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	msgs map[string][]StoredMessage // groupID -> messages in arrival order
}

// NewMemoryStore creates an empty in-memory message store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{msgs: make(map[string][]StoredMessage)}
}

func (s *MemoryStore) Insert(_ context.Context, m StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs[m.GroupID] = append(s.msgs[m.GroupID], m)
	return nil
}

func (s *MemoryStore) ListByGroup(_ context.Context, groupID string, limit int) ([]StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.msgs[groupID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]StoredMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
