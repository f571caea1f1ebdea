package identity

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	u, err := s.Create(ctx, now, "Alice", "hash-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("expected normalized username, got %q", u.Username)
	}

	got, err := s.GetByUsername(ctx, "  ALICE ")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("lookup mismatch")
	}

	exists, err := s.UsernameExists(ctx, "alice")
	if err != nil || !exists {
		t.Fatalf("expected username to exist, got %v %v", exists, err)
	}
}

func TestMemoryStore_DuplicateUsername(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := s.Create(ctx, now, "bob", "hash-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, now, "Bob", "hash-2"); err != ErrDuplicateUsername {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestMemoryStore_UpdatePassword(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	u, err := s.Create(ctx, now, "carol", "hash-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.UpdatePassword(ctx, u.ID, "hash-2"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	got, err := s.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PasswordHash != "hash-2" {
		t.Fatalf("password hash not updated")
	}

	if err := s.UpdatePassword(ctx, "missing", "hash-3"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
