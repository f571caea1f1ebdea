package group

import "errors"

var (
	ErrNotFound      = errors.New("group not found")
	ErrInvalidInput  = errors.New("invalid group input")
	ErrAlreadyMember = errors.New("already a member")
	ErrNotMember     = errors.New("not a member")
	ErrLastAdmin     = errors.New("last admin cannot leave")
	ErrAdminOnly     = errors.New("admin role required")
)
