package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"huddle/internal/identity"
	"huddle/internal/security/crypto"
)

func newPrivateTestService(t *testing.T) (*PrivateService, *PrivateMemoryStore, identity.User, identity.User) {
	t.Helper()

	box, err := crypto.NewBox(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	users := identity.NewMemoryStore()
	alice, err := users.Create(context.Background(), time.Now(), "alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := users.Create(context.Background(), time.Now(), "bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	store := NewPrivateMemoryStore()
	return NewPrivateService(store, box, users, NewHub(nil), nil), store, alice, bob
}

func TestGetOrCreateDirectionAgnostic(t *testing.T) {
	svc, _, alice, bob := newPrivateTestService(t)
	ctx := context.Background()
	now := time.Now()

	first, err := svc.GetOrCreate(ctx, now, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, now.Add(time.Minute), bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("reverse lookup: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("conversation ids differ: %q vs %q", first.ID, second.ID)
	}
}

func TestGetOrCreateRejectsSelf(t *testing.T) {
	svc, _, alice, _ := newPrivateTestService(t)

	if _, err := svc.GetOrCreate(context.Background(), time.Now(), alice.ID, alice.ID); !errors.Is(err, ErrSelfConversation) {
		t.Fatalf("err = %v, want ErrSelfConversation", err)
	}
}

func TestGetOrCreateLostRaceResolvesExisting(t *testing.T) {
	svc, store, alice, bob := newPrivateTestService(t)
	ctx := context.Background()
	now := time.Now()

	// Another instance won first contact between the same pair.
	a, b := orderPair(alice.ID, bob.ID)
	raced := Conversation{ID: "prior", UserAID: a, UserBID: b, CreatedAt: now}
	if err := store.InsertConversation(ctx, raced); err != nil {
		t.Fatalf("seed: %v", err)
	}

	conv, err := svc.GetOrCreate(ctx, now, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}
	if conv.ID != "prior" {
		t.Fatalf("conversation = %q, want the existing row", conv.ID)
	}
}

func TestPrivateSendSealsAtRest(t *testing.T) {
	svc, store, alice, bob := newPrivateTestService(t)
	ctx := context.Background()
	now := time.Now()

	conv, err := svc.GetOrCreate(ctx, now, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m, err := svc.Send(ctx, now, conv.ID, alice.ID, alice.Username, "secret plans")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.Content != "secret plans" || m.ConversationID != conv.ID {
		t.Fatalf("message = %+v", m)
	}

	stored, err := store.ListByConversation(ctx, conv.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %d", len(stored))
	}
	if strings.Contains(stored[0].Ciphertext, "secret") {
		t.Fatalf("plaintext leaked into store: %q", stored[0].Ciphertext)
	}
}

func TestPrivateSendValidation(t *testing.T) {
	svc, _, alice, bob := newPrivateTestService(t)
	ctx := context.Background()
	now := time.Now()

	conv, err := svc.GetOrCreate(ctx, now, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Send(ctx, now, conv.ID, alice.ID, alice.Username, "  "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty err = %v", err)
	}
	long := strings.Repeat("a", MaxMessageBytes+1)
	if _, err := svc.Send(ctx, now, conv.ID, alice.ID, alice.Username, long); !errors.Is(err, ErrTooLong) {
		t.Fatalf("oversized err = %v", err)
	}
	if _, err := svc.Send(ctx, now, conv.ID, "stranger", "eve", "hi"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger err = %v", err)
	}
	if _, err := svc.Send(ctx, now, "no-such-chat", alice.ID, alice.Username, "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("unknown chat err = %v", err)
	}
}

func TestPrivateHistoryRoundTrip(t *testing.T) {
	svc, _, alice, bob := newPrivateTestService(t)
	ctx := context.Background()
	now := time.Now()

	conv, err := svc.GetOrCreate(ctx, now, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i, text := range []string{"hi", "hey", "lunch?"} {
		sender := alice
		if i == 1 {
			sender = bob
		}
		if _, err := svc.Send(ctx, now.Add(time.Duration(i)*time.Second), conv.ID, sender.ID, sender.Username, text); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	// Both participants see the same thread; outsiders see nothing.
	for _, uid := range []string{alice.ID, bob.ID} {
		msgs, err := svc.History(ctx, conv.ID, uid, 10)
		if err != nil {
			t.Fatalf("history for %s: %v", uid, err)
		}
		if len(msgs) != 3 {
			t.Fatalf("messages = %d", len(msgs))
		}
		if msgs[0].Content != "hi" || msgs[1].Username != "bob" || msgs[2].Content != "lunch?" {
			t.Fatalf("thread wrong: %+v", msgs)
		}
	}
	if _, err := svc.History(ctx, conv.ID, "stranger", 10); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger err = %v", err)
	}
}

func TestPrivateBroadcastReachesSubscriber(t *testing.T) {
	svc, _, alice, bob := newPrivateTestService(t)
	ctx := context.Background()
	now := time.Now()

	conv, err := svc.GetOrCreate(ctx, now, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	client := NewClient(bob.ID, bob.Username, 8)
	svc.hub.Subscribe(PrivateRoom(conv.ID), client)
	defer svc.hub.Unsubscribe(PrivateRoom(conv.ID), client)

	if _, err := svc.Send(ctx, now, conv.ID, alice.ID, alice.Username, "ping"); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case m := <-client.Send:
		if m.Content != "ping" || m.ConversationID != conv.ID {
			t.Fatalf("message = %+v", m)
		}
	default:
		t.Fatalf("no message delivered")
	}
}
