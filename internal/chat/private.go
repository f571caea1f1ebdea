package chat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrNotParticipant       = errors.New("not a participant of the conversation")
	ErrSelfConversation     = errors.New("conversation requires two distinct users")
)

// Conversation is a private 1:1 chat. Participants are stored in
// normalized order so lookups are direction-agnostic.
type Conversation struct {
	ID        string
	UserAID   string
	UserBID   string
	CreatedAt time.Time
}

// Participant reports whether userID is one of the two members.
func (c Conversation) Participant(userID string) bool {
	return userID == c.UserAID || userID == c.UserBID
}

// orderPair normalizes the participant pair.
func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PrivateStoredMessage is the at-rest shape of a private message.
type PrivateStoredMessage struct {
	ID             string
	ConversationID string
	SenderID       string
	Ciphertext     string
	SentAt         time.Time
}

// PrivateStore persists conversations and their sealed messages.
type PrivateStore interface {
	// InsertConversation creates a conversation; a normalized pair that
	// already has one yields ErrConversationExists.
	InsertConversation(ctx context.Context, c Conversation) error

	// GetConversation loads a conversation by id.
	GetConversation(ctx context.Context, id string) (Conversation, error)

	// FindConversation looks up the conversation of a normalized pair.
	FindConversation(ctx context.Context, userAID, userBID string) (Conversation, error)

	// InsertMessage appends a sealed message.
	InsertMessage(ctx context.Context, m PrivateStoredMessage) error

	// ListByConversation returns up to limit most recent sealed
	// messages, oldest first.
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]PrivateStoredMessage, error)
}
