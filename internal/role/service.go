package role

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/permission"
)

// Service administers roles, their permission sets and account assignments.
// Changes reach tokens on the next login or refresh.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// normalizePermissions validates every string and returns the sorted, deduplicated set.
func normalizePermissions(perms []string) ([]string, error) {
	for _, p := range perms {
		if err := permission.Validate(permission.Normalize(p)); err != nil {
			return nil, internal.ErrMalformedPermission.WithCause(err).WithDetails(map[string]string{"permission": p})
		}
	}
	return permission.Union(perms), nil
}

func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return roles, nil
}

func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if role == nil {
		return nil, internal.ErrRoleNotFound
	}
	return role, nil
}

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	dto.Name = strings.TrimSpace(dto.Name)
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	perms, err := normalizePermissions(dto.Permissions)
	if err != nil {
		return nil, err
	}

	role := &Role{
		Name:        dto.Name,
		Description: dto.Description,
		Version:     1,
		Permissions: perms,
	}
	if err := s.repo.Create(ctx, role); err != nil {
		if errors.Is(err, ErrRoleExists) {
			return nil, ErrRoleExists
		}
		return nil, internal.NewInternalError("failed to create role", err)
	}

	s.logger.Info("role created", "role_id", role.ID, "name", role.Name, "permissions_count", len(perms))
	return role, nil
}

// SetPermissions replaces the role's permission set and bumps its version.
func (s *Service) SetPermissions(ctx context.Context, roleID string, perms []string) (*Role, error) {
	normalized, err := normalizePermissions(perms)
	if err != nil {
		return nil, err
	}
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	version, err := s.repo.ReplacePermissions(ctx, roleID, normalized)
	if err != nil {
		return nil, internal.NewInternalError("failed to update role permissions", err)
	}
	role.Permissions = normalized
	role.Version = version

	s.logger.Info("role permissions replaced", "role_id", roleID, "version", version, "permissions_count", len(normalized))
	return role, nil
}

func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return internal.ErrSystemRole
	}
	if err := s.repo.Delete(ctx, roleID); err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}
	s.logger.Info("role deleted", "role_id", roleID, "name", role.Name)
	return nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]PermissionInfo, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return perms, nil
}

// AssignRole grants roleID to the account. Assigning again replaces the window.
func (s *Service) AssignRole(ctx context.Context, dto AssignRoleDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	exists, err := s.repo.AccountExists(ctx, dto.AccountID)
	if err != nil {
		return internal.NewInternalError("failed to look up account", err)
	}
	if !exists {
		return internal.ErrAccountNotFound
	}
	if _, err := s.GetRole(ctx, dto.RoleID); err != nil {
		return err
	}

	err = s.repo.Assign(ctx, Assignment{
		AccountID:  dto.AccountID,
		RoleID:     dto.RoleID,
		AssignedBy: dto.AssignedBy,
		ValidFrom:  dto.ValidFrom,
		ValidUntil: dto.ValidUntil,
	})
	if err != nil {
		return internal.NewInternalError("failed to assign role", err)
	}

	s.logger.Info("role assigned", "account_id", dto.AccountID, "role_id", dto.RoleID)
	return nil
}

// RevokeRole is idempotent.
func (s *Service) RevokeRole(ctx context.Context, accountID, roleID string) error {
	removed, err := s.repo.Unassign(ctx, accountID, roleID)
	if err != nil {
		return internal.NewInternalError("failed to revoke role", err)
	}
	if removed {
		s.logger.Info("role revoked", "account_id", accountID, "role_id", roleID)
	}
	return nil
}

func (s *Service) ListAssignments(ctx context.Context, accountID string) ([]Assignment, error) {
	assignments, err := s.repo.AssignmentsFor(ctx, accountID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list assignments", err)
	}
	return assignments, nil
}

// EnsureRole creates the role when missing and otherwise resets its
// permission set when it differs. The seeder uses it for system roles.
func (s *Service) EnsureRole(ctx context.Context, name, description string, perms []string, system bool) (*Role, error) {
	normalized, err := normalizePermissions(perms)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if existing == nil {
		role := &Role{Name: name, Description: description, Version: 1, IsSystem: system, Permissions: normalized}
		if err := s.repo.Create(ctx, role); err != nil {
			return nil, internal.NewInternalError("failed to create role", err)
		}
		s.logger.Info("role seeded", "name", name, "permissions_count", len(normalized))
		return role, nil
	}

	if sameSet(existing.Permissions, normalized) {
		return existing, nil
	}
	return s.SetPermissions(ctx, existing.ID, normalized)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	// both sides come out of permission.Union, so they are sorted
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
