// Package poll implements group-scoped polls with single-vote
// semantics: one vote per user per poll, re-voting replaces.
package poll

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("poll not found")
	ErrInvalidInput = errors.New("invalid poll input")
	ErrBadOption    = errors.New("option does not belong to poll")
	ErrNotMember    = errors.New("not a member of the poll's group")
)

// Option is one answer choice.
type Option struct {
	ID   string
	Text string
}

// Poll is a question with options, scoped to a group.
type Poll struct {
	ID        string
	GroupID   string
	Question  string
	Options   []Option
	CreatedBy string
	CreatedAt time.Time
}

// Vote is one user's current choice in a poll.
type Vote struct {
	PollID   string
	OptionID string
	UserID   string
	CastAt   time.Time
}

// Store abstracts poll persistence.
type Store interface {
	// CreatePoll inserts a poll with its options.
	CreatePoll(ctx context.Context, p Poll) error

	// GetPoll loads a poll with options. Returns ErrNotFound when absent.
	GetPoll(ctx context.Context, id string) (Poll, error)

	// ListByGroup returns the group's polls ordered by creation time.
	ListByGroup(ctx context.Context, groupID string) ([]Poll, error)

	// Upsert records v as the user's current vote, replacing any
	// earlier vote in the same poll.
	Upsert(ctx context.Context, v Vote) error

	// Counts returns votes per option ID for the poll.
	Counts(ctx context.Context, pollID string) (map[string]int, error)
}
