package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for dev mode and tests.
//
// Rotation atomicity is provided by holding the store mutex for the
// whole rotation transaction; rotations across different users
// serialize too, which is acceptable at dev-mode scale.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record // keyed by jti
}

// NewMemoryStore creates an empty in-memory refresh-token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.TokenID] = rec
	return nil
}

func (s *MemoryStore) GetByTokenID(_ context.Context, tokenID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[tokenID]
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Revoke(_ context.Context, now time.Time, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[tokenID]
	if !ok || rec.Revoked {
		return nil
	}
	rec.Revoked = true
	rec.RevokedAt = &now
	s.recs[tokenID] = rec
	return nil
}

func (s *MemoryStore) RevokeAllForUser(_ context.Context, now time.Time, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeAllLocked(now, userID), nil
}

func (s *MemoryStore) revokeAllLocked(now time.Time, userID string) int64 {
	var n int64
	for id, rec := range s.recs {
		if rec.UserID == userID && !rec.Revoked {
			rec.Revoked = true
			rec.RevokedAt = &now
			s.recs[id] = rec
			n++
		}
	}
	return n
}

func (s *MemoryStore) BeginRotation(_ context.Context, tokenID string) (RotationTx, error) {
	s.mu.Lock()

	rec, ok := s.recs[tokenID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	return &memRotationTx{store: s, rec: rec}, nil
}

func (s *MemoryStore) DeleteExpiredAndOldRevoked(_ context.Context, now, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.recs {
		stale := rec.ExpiresAt.Before(now) ||
			(rec.Revoked && rec.RevokedAt != nil && rec.RevokedAt.Before(cutoff))
		if stale {
			delete(s.recs, id)
			n++
		}
	}
	return n, nil
}

// ActiveCountForUser reports non-revoked records for a user. Test helper.
func (s *MemoryStore) ActiveCountForUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.recs {
		if rec.UserID == userID && !rec.Revoked {
			n++
		}
	}
	return n
}

// Len reports the total number of stored records. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

// memRotationTx holds the store mutex until Commit or Rollback.
type memRotationTx struct {
	store *MemoryStore
	rec   Record
	done  bool
}

func (t *memRotationTx) Record() Record { return t.rec }

func (t *memRotationTx) RevokeAllForUser(_ context.Context, now time.Time) error {
	t.store.revokeAllLocked(now, t.rec.UserID)
	return nil
}

func (t *memRotationTx) Insert(_ context.Context, rec Record) error {
	t.store.recs[rec.TokenID] = rec
	return nil
}

func (t *memRotationTx) Commit(_ context.Context) error {
	return t.release()
}

// Rollback only releases the lock; mutations under an aborted memory
// transaction are not undone. The service rolls back solely on paths
// that have not mutated anything yet, so this is sufficient here.
func (t *memRotationTx) Rollback(_ context.Context) error {
	return t.release()
}

func (t *memRotationTx) release() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}
