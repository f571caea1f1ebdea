package group

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), nil)
}

func TestCreateMakesCreatorAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	g, err := svc.Create(ctx, now, "design", "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.RequireAdmin(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("creator not admin: %v", err)
	}
	members, err := svc.Members(ctx, g.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0].Role != RoleAdmin {
		t.Fatalf("members = %+v", members)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Create(context.Background(), time.Now(), "   ", "u1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestJoinAndAlreadyMember(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	g, err := svc.Create(ctx, now, "design", "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Join(ctx, now, g.ID, "u2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.Join(ctx, now, g.ID, "u2"); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("err = %v, want ErrAlreadyMember", err)
	}
	if err := svc.Join(ctx, now, g.ID, "u1"); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("creator rejoin err = %v, want ErrAlreadyMember", err)
	}
	if err := svc.Join(ctx, now, "missing", "u3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLeave(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	g, _ := svc.Create(ctx, now, "design", "u1")
	_ = svc.Join(ctx, now, g.ID, "u2")

	if err := svc.Leave(ctx, g.ID, "u2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := svc.Leave(ctx, g.ID, "u2"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("err = %v, want ErrNotMember", err)
	}
}

func TestLastAdminCannotLeaveWithMembers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	g, _ := svc.Create(ctx, now, "design", "u1")
	_ = svc.Join(ctx, now, g.ID, "u2")

	if err := svc.Leave(ctx, g.ID, "u1"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("err = %v, want ErrLastAdmin", err)
	}

	// Once alone, the admin may leave.
	if err := svc.Leave(ctx, g.ID, "u2"); err != nil {
		t.Fatalf("member leave: %v", err)
	}
	if err := svc.Leave(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("sole admin leave: %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	g, _ := svc.Create(ctx, now, "design", "u1")
	_ = svc.Join(ctx, now, g.ID, "u2")

	if err := svc.RequireAdmin(ctx, g.ID, "u2"); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("member err = %v, want ErrAdminOnly", err)
	}
	if err := svc.RequireAdmin(ctx, g.ID, "stranger"); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("stranger err = %v, want ErrAdminOnly", err)
	}
}

func TestDeleteAdminOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	g, _ := svc.Create(ctx, now, "design", "u1")
	_ = svc.Join(ctx, now, g.ID, "u2")

	if err := svc.Delete(ctx, g.ID, "u2"); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("err = %v, want ErrAdminOnly", err)
	}
	if err := svc.Delete(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIsMember(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	g, _ := svc.Create(ctx, now, "design", "u1")

	ok, err := svc.IsMember(ctx, g.ID, "u1")
	if err != nil || !ok {
		t.Fatalf("creator membership = %v, %v", ok, err)
	}
	ok, err = svc.IsMember(ctx, g.ID, "u2")
	if err != nil || ok {
		t.Fatalf("stranger membership = %v, %v", ok, err)
	}
}
