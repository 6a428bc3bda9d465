package role

import (
	"time"

	"github.com/frahmantamala/hris-auth/internal/core/common/validation"
)

const maxRoleNameLength = 64

type CreateRoleDTO struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (d CreateRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).
		Required().
		MaxLength(maxRoleNameLength)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SetPermissionsDTO struct {
	Permissions []string `json:"permissions"`
}

type AssignRoleDTO struct {
	AccountID  string     `json:"-"`
	RoleID     string     `json:"-"`
	AssignedBy *string    `json:"-"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

func (d AssignRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("account_id", d.AccountID).Required()
	v.Field("role_id", d.RoleID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if d.ValidFrom != nil && d.ValidUntil != nil && !d.ValidUntil.After(*d.ValidFrom) {
		return ErrInvalidSpan
	}
	return nil
}

type RolesResponse struct {
	Roles []*Role `json:"roles"`
}

type PermissionsResponse struct {
	Permissions []PermissionInfo `json:"permissions"`
}

type AssignmentsResponse struct {
	Assignments []Assignment `json:"assignments"`
}
