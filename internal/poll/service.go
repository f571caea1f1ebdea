package poll

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"huddle/internal/group"
)

// Service implements poll operations, gated on group membership.
type Service struct {
	store  Store
	groups *group.Service
	log    *slog.Logger
}

// NewService wires a poll service.
func NewService(store Store, groups *group.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, groups: groups, log: log}
}

// Create makes a new poll in the group. The creator must be a member.
func (s *Service) Create(ctx context.Context, now time.Time, groupID, userID, question string, options []string) (Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(options) < 2 {
		return Poll{}, ErrInvalidInput
	}
	for i, o := range options {
		options[i] = strings.TrimSpace(o)
		if options[i] == "" {
			return Poll{}, ErrInvalidInput
		}
	}

	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return Poll{}, err
	}

	p := Poll{
		ID:        ulid.Make().String(),
		GroupID:   groupID,
		Question:  question,
		CreatedBy: userID,
		CreatedAt: now,
	}
	for _, o := range options {
		p.Options = append(p.Options, Option{ID: ulid.Make().String(), Text: o})
	}

	if err := s.store.CreatePoll(ctx, p); err != nil {
		return Poll{}, err
	}
	s.log.InfoContext(ctx, "poll.created", "poll_id", p.ID, "group_id", groupID)
	return p, nil
}

// ListByGroup returns the group's polls. Members only.
func (s *Service) ListByGroup(ctx context.Context, groupID, userID string) ([]Poll, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListByGroup(ctx, groupID)
}

// Vote records the user's choice. A second vote in the same poll
// replaces the first.
func (s *Service) Vote(ctx context.Context, now time.Time, pollID, optionID, userID string) error {
	p, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, p.GroupID, userID); err != nil {
		return err
	}

	valid := false
	for _, o := range p.Options {
		if o.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return ErrBadOption
	}

	return s.store.Upsert(ctx, Vote{
		PollID:   pollID,
		OptionID: optionID,
		UserID:   userID,
		CastAt:   now,
	})
}

// Results returns vote counts per option, zero-filled for unvoted
// options. Members only.
func (s *Service) Results(ctx context.Context, pollID, userID string) (Poll, map[string]int, error) {
	p, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return Poll{}, nil, err
	}
	if err := s.requireMember(ctx, p.GroupID, userID); err != nil {
		return Poll{}, nil, err
	}

	counts, err := s.store.Counts(ctx, pollID)
	if err != nil {
		return Poll{}, nil, err
	}
	for _, o := range p.Options {
		if _, ok := counts[o.ID]; !ok {
			counts[o.ID] = 0
		}
	}
	return p, counts, nil
}

func (s *Service) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
