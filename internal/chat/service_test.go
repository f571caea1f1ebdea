package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"huddle/internal/group"
	"huddle/internal/identity"
	"huddle/internal/security/crypto"
)

func newTestService(t *testing.T) (*Service, *MemoryStore, string, identity.User) {
	t.Helper()

	key := bytes.Repeat([]byte{0x42}, 32)
	box, err := crypto.NewBox(key)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	users := identity.NewMemoryStore()
	alice, err := users.Create(context.Background(), time.Now(), "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	groups := group.NewService(group.NewMemoryStore(), nil)
	g, err := groups.Create(context.Background(), time.Now(), "design", alice.ID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	store := NewMemoryStore()
	svc := NewService(store, box, groups, users, NewHub(nil), nil)
	return svc, store, g.ID, alice
}

func TestSendSealsAtRest(t *testing.T) {
	svc, store, groupID, alice := newTestService(t)
	ctx := context.Background()

	m, err := svc.Send(ctx, time.Now(), groupID, alice.ID, alice.Username, "hello world")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.Content != "hello world" {
		t.Fatalf("content = %q", m.Content)
	}

	stored, err := store.ListByGroup(ctx, groupID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %d", len(stored))
	}
	if strings.Contains(stored[0].Ciphertext, "hello") {
		t.Fatalf("plaintext leaked into store: %q", stored[0].Ciphertext)
	}
}

func TestSendValidation(t *testing.T) {
	svc, _, groupID, alice := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := svc.Send(ctx, now, groupID, alice.ID, alice.Username, "   "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty err = %v", err)
	}
	if _, err := svc.Send(ctx, now, groupID, "stranger", "eve", "hi"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("stranger err = %v", err)
	}

	long := strings.Repeat("é", MaxMessageBytes/2+1)
	if _, err := svc.Send(ctx, now, groupID, alice.ID, alice.Username, long); !errors.Is(err, ErrTooLong) {
		t.Fatalf("oversized err = %v, want ErrTooLong", err)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	svc, _, groupID, alice := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	for i, text := range []string{"first", "second", "third"} {
		if _, err := svc.Send(ctx, now.Add(time.Duration(i)*time.Second), groupID, alice.ID, alice.Username, text); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	msgs, err := svc.History(ctx, groupID, alice.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Fatalf("order wrong: %+v", msgs)
	}
	if msgs[0].Username != "alice" {
		t.Fatalf("username = %q", msgs[0].Username)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc, _, groupID, alice := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		_, _ = svc.Send(ctx, now.Add(time.Duration(i)*time.Second), groupID, alice.ID, alice.Username, "msg")
	}

	msgs, err := svc.History(ctx, groupID, alice.ID, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
}

func TestHistoryRequiresMembership(t *testing.T) {
	svc, _, groupID, _ := newTestService(t)

	if _, err := svc.History(context.Background(), groupID, "stranger", 10); !errors.Is(err, ErrNotMember) {
		t.Fatalf("err = %v, want ErrNotMember", err)
	}
}

func TestHistorySkipsUnsealableRows(t *testing.T) {
	svc, store, groupID, alice := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	_, _ = svc.Send(ctx, now, groupID, alice.ID, alice.Username, "good")
	_ = store.Insert(ctx, StoredMessage{
		ID: "bad", GroupID: groupID, UserID: alice.ID,
		Ciphertext: "not-a-ciphertext", SentAt: now.Add(time.Second),
	})

	msgs, err := svc.History(ctx, groupID, alice.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "good" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	svc, _, groupID, alice := newTestService(t)

	client := NewClient("u2", "bob", 8)
	svc.Hub().Subscribe(GroupRoom(groupID), client)
	defer svc.Hub().Unsubscribe(GroupRoom(groupID), client)

	if _, err := svc.Send(context.Background(), time.Now(), groupID, alice.ID, alice.Username, "ping"); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case m := <-client.Send:
		if m.Content != "ping" || m.Username != "alice" {
			t.Fatalf("message = %+v", m)
		}
	default:
		t.Fatalf("no message delivered")
	}
}

func TestBroadcastSkipsFullQueues(t *testing.T) {
	hub := NewHub(nil)
	slow := NewClient("u1", "slow", 1)
	room := GroupRoom("g1")
	hub.Subscribe(room, slow)

	hub.Broadcast(room, Message{GroupID: "g1", Content: "one"})
	hub.Broadcast(room, Message{GroupID: "g1", Content: "two"}) // dropped, queue full

	if got := len(slow.Send); got != 1 {
		t.Fatalf("queued = %d, want 1", got)
	}
}

func TestUnsubscribeDropsEmptyRooms(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient("u1", "alice", 8)
	room := GroupRoom("g1")

	hub.Subscribe(room, c)
	if hub.RoomSize(room) != 1 {
		t.Fatalf("room size = %d", hub.RoomSize(room))
	}
	hub.Unsubscribe(room, c)
	if hub.RoomSize(room) != 0 {
		t.Fatalf("room size = %d after unsubscribe", hub.RoomSize(room))
	}
}

func TestRoomKeysDoNotCollide(t *testing.T) {
	if GroupRoom("x") == PrivateRoom("x") {
		t.Fatal("group and private rooms must be distinct for equal ids")
	}
}
