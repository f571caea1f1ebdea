package group

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Service implements group operations over a Store.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService wires a group service.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// Create makes a new group with the creator as its only admin.
func (s *Service) Create(ctx context.Context, now time.Time, name, creatorID string) (Group, error) {
	name = strings.TrimSpace(name)
	if name == "" || creatorID == "" {
		return Group{}, ErrInvalidInput
	}

	g := Group{
		ID:        ulid.Make().String(),
		Name:      name,
		CreatedBy: creatorID,
		CreatedAt: now,
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return Group{}, err
	}
	s.log.InfoContext(ctx, "group.created", "group_id", g.ID, "name", g.Name)
	return g, nil
}

// List returns all groups.
func (s *Service) List(ctx context.Context) ([]Group, error) {
	return s.store.ListGroups(ctx)
}

// Get loads one group.
func (s *Service) Get(ctx context.Context, id string) (Group, error) {
	return s.store.GetGroup(ctx, id)
}

// Join adds userID to the group as a regular member.
func (s *Service) Join(ctx context.Context, now time.Time, groupID, userID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	return s.store.AddMember(ctx, Member{
		GroupID:  groupID,
		UserID:   userID,
		Role:     RoleMember,
		JoinedAt: now,
	})
}

// Leave removes userID from the group. The last admin cannot leave
// while other members remain; they must delete the group or promote
// someone first.
func (s *Service) Leave(ctx context.Context, groupID, userID string) error {
	m, err := s.store.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}

	if m.Role == RoleAdmin {
		admins, err := s.store.CountAdmins(ctx, groupID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			members, err := s.store.ListMembers(ctx, groupID)
			if err != nil {
				return err
			}
			if len(members) > 1 {
				return ErrLastAdmin
			}
		}
	}

	return s.store.RemoveMember(ctx, groupID, userID)
}

// Members lists the group's membership.
func (s *Service) Members(ctx context.Context, groupID string) ([]Member, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, groupID)
}

// Delete removes the group. Admin only.
func (s *Service) Delete(ctx context.Context, groupID, userID string) error {
	if err := s.RequireAdmin(ctx, groupID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "group.deleted", "group_id", groupID, "by", userID)
	return nil
}

// RequireAdmin checks that userID holds the admin role in the group.
// It is the single authorization gate for admin-only operations.
func (s *Service) RequireAdmin(ctx context.Context, groupID, userID string) error {
	m, err := s.store.GetMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return ErrAdminOnly
		}
		return err
	}
	if m.Role != RoleAdmin {
		return ErrAdminOnly
	}
	return nil
}

// IsMember reports whether userID belongs to the group.
func (s *Service) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	_, err := s.store.GetMember(ctx, groupID, userID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
