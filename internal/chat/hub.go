package chat

import (
	"log/slog"
	"sync"
)

// Client is one connected websocket session subscribed to a group.
//
// Send is never closed by the hub; broadcasters may race with
// unsubscription, so teardown is signalled through done instead.
type Client struct {
	UserID   string
	Username string
	Send     chan Message

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with a bounded send queue.
func NewClient(userID, username string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Client{
		UserID:   userID,
		Username: username,
		Send:     make(chan Message, queueSize),
		done:     make(chan struct{}),
	}
}

// Done is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close signals the client goroutines to stop (idempotent).
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// GroupRoom names the hub room of a group. Room names are prefixed so
// group and conversation ids cannot collide.
func GroupRoom(groupID string) string { return "group:" + groupID }

// PrivateRoom names the hub room of a private conversation.
func PrivateRoom(conversationID string) string { return "private:" + conversationID }

// Hub fans messages out to the connected clients of each room.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub constructs an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, rooms: make(map[string]map[*Client]struct{})}
}

// Subscribe attaches a client to a room.
func (h *Hub) Subscribe(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

// Unsubscribe detaches a client. Empty rooms are dropped.
func (h *Hub) Unsubscribe(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers m to every client in room. Slow clients with a
// full queue are skipped rather than blocking the sender.
func (h *Hub) Broadcast(room string, m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.Send <- m:
		case <-c.Done():
		default:
			h.log.Warn("chat.hub.drop", "room", room, "user_id", c.UserID)
		}
	}
}

// RoomSize reports the number of clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
