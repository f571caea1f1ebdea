// Package group implements collaboration groups and membership.
package group

import (
	"context"
	"time"
)

// Roles a member can hold.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Group is a collaboration space.
type Group struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// Member links a user to a group with a role.
type Member struct {
	GroupID  string
	UserID   string
	Role     string
	JoinedAt time.Time
}

// Store abstracts persistence for groups and membership.
type Store interface {
	// CreateGroup inserts a group and its creator as admin.
	CreateGroup(ctx context.Context, g Group) error

	// GetGroup loads a group by ID. Returns ErrNotFound when absent.
	GetGroup(ctx context.Context, id string) (Group, error)

	// ListGroups returns all groups ordered by name.
	ListGroups(ctx context.Context) ([]Group, error)

	// DeleteGroup removes a group and its membership rows.
	DeleteGroup(ctx context.Context, id string) error

	// AddMember inserts a membership row. Returns ErrAlreadyMember when
	// the user is already in the group.
	AddMember(ctx context.Context, m Member) error

	// RemoveMember deletes a membership row. Returns ErrNotMember when
	// the user is not in the group.
	RemoveMember(ctx context.Context, groupID, userID string) error

	// GetMember loads one membership row. Returns ErrNotMember when absent.
	GetMember(ctx context.Context, groupID, userID string) (Member, error)

	// ListMembers returns the group's members ordered by join time.
	ListMembers(ctx context.Context, groupID string) ([]Member, error)

	// CountAdmins reports how many admins the group has.
	CountAdmins(ctx context.Context, groupID string) (int, error)
}
