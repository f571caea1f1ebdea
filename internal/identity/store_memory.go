package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is an in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]User
	byName map[string]string // username -> id
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]User),
		byName: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, now time.Time, username, passwordHash string) (User, error) {
	username = NormalizeUsername(username)
	if username == "" || passwordHash == "" {
		return User{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[username]; ok {
		return User{}, ErrDuplicateUsername
	}

	u := User{
		ID:           ulid.Make().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	s.byID[u.ID] = u
	s.byName[username] = u.ID
	return u, nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (User, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return User{}, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UsernameExists(_ context.Context, username string) (bool, error) {
	username = NormalizeUsername(username)

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byName[username]
	return ok, nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	if passwordHash == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.byID[userID] = u
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}
