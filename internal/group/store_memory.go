package group

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	groups  map[string]Group
	members map[string]map[string]Member // groupID -> userID -> Member
}

// NewMemoryStore creates an empty in-memory group store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:  make(map[string]Group),
		members: make(map[string]map[string]Member),
	}
}

func (s *MemoryStore) CreateGroup(_ context.Context, g Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[g.ID] = g
	s.members[g.ID] = map[string]Member{
		g.CreatedBy: {GroupID: g.ID, UserID: g.CreatedBy, Role: RoleAdmin, JoinedAt: g.CreatedAt},
	}
	return nil
}

func (s *MemoryStore) GetGroup(_ context.Context, id string) (Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (s *MemoryStore) ListGroups(_ context.Context) ([]Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return ErrNotFound
	}
	delete(s.groups, id)
	delete(s.members, id)
	return nil
}

func (s *MemoryStore) AddMember(_ context.Context, m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.members[m.GroupID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := g[m.UserID]; ok {
		return ErrAlreadyMember
	}
	g[m.UserID] = m
	return nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.members[groupID]
	if !ok {
		return ErrNotMember
	}
	if _, ok := g[userID]; !ok {
		return ErrNotMember
	}
	delete(g, userID)
	return nil
}

func (s *MemoryStore) GetMember(_ context.Context, groupID, userID string) (Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[groupID][userID]
	if !ok {
		return Member{}, ErrNotMember
	}
	return m, nil
}

func (s *MemoryStore) ListMembers(_ context.Context, groupID string) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := s.members[groupID]
	out := make([]Member, 0, len(g))
	for _, m := range g {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *MemoryStore) CountAdmins(_ context.Context, groupID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.members[groupID] {
		if m.Role == RoleAdmin {
			n++
		}
	}
	return n, nil
}
