package role

import (
	"context"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
)

var (
	ErrRoleExists  = internal.NewConflictError("Role already exists", internal.ErrCodeConflict)
	ErrInvalidSpan = internal.NewValidationFieldError("valid_until", "valid_until must be after valid_from", internal.ErrCodeValidationFailed)
)

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	IsSystem    bool      `json:"is_system"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Assignment binds a role to an account. Nil bounds are open.
type Assignment struct {
	AccountID  string     `json:"account_id"`
	RoleID     string     `json:"role_id"`
	AssignedBy *string    `json:"assigned_by,omitempty"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// ActiveAt reports whether the assignment window contains at.
func (a Assignment) ActiveAt(at time.Time) bool {
	if a.ValidFrom != nil && a.ValidFrom.After(at) {
		return false
	}
	if a.ValidUntil != nil && !a.ValidUntil.After(at) {
		return false
	}
	return true
}

type PermissionInfo struct {
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Scope       string `json:"scope"`
	Description string `json:"description,omitempty"`
}

type RepositoryAPI interface {
	List(ctx context.Context) ([]*Role, error)
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, role *Role) error
	// ReplacePermissions swaps the role's permission set and returns the bumped version.
	ReplacePermissions(ctx context.Context, roleID string, permissions []string) (int, error)
	Delete(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionInfo, error)
	AccountExists(ctx context.Context, accountID string) (bool, error)
	Assign(ctx context.Context, assignment Assignment) error
	Unassign(ctx context.Context, accountID, roleID string) (bool, error)
	AssignmentsFor(ctx context.Context, accountID string) ([]Assignment, error)
}
