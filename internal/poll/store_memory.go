package poll

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	polls map[string]Poll
	votes map[string]map[string]Vote // pollID -> userID -> Vote
}

// NewMemoryStore creates an empty in-memory poll store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		polls: make(map[string]Poll),
		votes: make(map[string]map[string]Vote),
	}
}

func (s *MemoryStore) CreatePoll(_ context.Context, p Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polls[p.ID] = p
	s.votes[p.ID] = make(map[string]Vote)
	return nil
}

func (s *MemoryStore) GetPoll(_ context.Context, id string) (Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[id]
	if !ok {
		return Poll{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListByGroup(_ context.Context, groupID string) ([]Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Poll
	for _, p := range s.polls {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, v Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	votes, ok := s.votes[v.PollID]
	if !ok {
		return ErrNotFound
	}
	votes[v.UserID] = v
	return nil
}

func (s *MemoryStore) Counts(_ context.Context, pollID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	votes, ok := s.votes[pollID]
	if !ok {
		return nil, ErrNotFound
	}
	counts := make(map[string]int)
	for _, v := range votes {
		counts[v.OptionID]++
	}
	return counts, nil
}
