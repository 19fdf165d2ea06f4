package domain

import "time"

// RoleKind is the base permission tier of a role. Concrete roles (for
// example "payroll_agent") refine a kind without changing its permissions.
type RoleKind string

const (
	RoleKindAdmin     RoleKind = "ADMIN"
	RoleKindAgent     RoleKind = "AGENT"
	RoleKindRequester RoleKind = "REQUESTER"
)

// Role is an admin-managed designation linking agent pools to categories.
type Role struct {
	ID          int64
	Key         string
	DisplayName string
	Description string
	BaseKind    RoleKind
	System      bool
}

// Area is an organizational unit accounts belong to.
type Area struct {
	ID          int64
	Name        string
	Description string
}

// Account models any authenticated principal: requesters, agents and admins.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	RoleID       *int64
	RoleKind     RoleKind
	AreaID       *int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the account carries the admin kind.
func (a *Account) IsAdmin() bool {
	return a.RoleKind == RoleKindAdmin
}

// IsAgent reports whether the account can hold ticket assignments.
func (a *Account) IsAgent() bool {
	return a.RoleKind == RoleKindAgent || a.RoleKind == RoleKindAdmin
}
