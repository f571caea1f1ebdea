// Package chat implements group and private 1:1 chat: messages
// persisted encrypted at rest and fanned out live over websockets.
package chat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("message not found")
	ErrNotMember = errors.New("not a member of the chat's group")
	ErrEmpty     = errors.New("empty message")
	ErrTooLong   = errors.New("message too long")
)

// MaxMessageBytes caps plaintext message size.
const MaxMessageBytes = 4096

// Message is one chat message, group or private. Exactly one of
// GroupID and ConversationID is set. Content is plaintext in memory
// and on the wire; stores only ever see the sealed form.
type Message struct {
	ID             string
	GroupID        string
	ConversationID string
	UserID         string
	Username       string
	Content        string
	SentAt         time.Time
}

// StoredMessage is the at-rest shape with sealed content.
type StoredMessage struct {
	ID         string
	GroupID    string
	UserID     string
	Ciphertext string
	SentAt     time.Time
}

// Store abstracts encrypted message persistence.
type Store interface {
	// Insert appends a sealed message.
	Insert(ctx context.Context, m StoredMessage) error

	// ListByGroup returns up to limit most recent sealed messages,
	// oldest first.
	ListByGroup(ctx context.Context, groupID string, limit int) ([]StoredMessage, error)
}
