package postgres

import (
	"context"
	"errors"
	"fmt"

	accountDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/account"
	rbacDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/rbac"
	"github.com/frahmantamala/hris-auth/internal/permission"
	"github.com/frahmantamala/hris-auth/internal/role"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

var _ role.RepositoryAPI = (*RoleRepository)(nil)

type grantRow struct {
	RoleID string
	Name   string
}

// permissionsFor loads permission names keyed by role id.
func (r *RoleRepository) permissionsFor(ctx context.Context, roleIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(roleIDs))
	if len(roleIDs) == 0 {
		return out, nil
	}
	var rows []grantRow
	err := r.db.WithContext(ctx).
		Table("role_permissions rp").
		Select("rp.role_id AS role_id, p.name AS name").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("rp.role_id IN ?", roleIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	for _, row := range rows {
		out[row.RoleID] = append(out[row.RoleID], row.Name)
	}
	for id, perms := range out {
		out[id] = permission.Union(perms)
	}
	return out, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]*role.Role, error) {
	var rows []rbacDatamodel.Role
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	grants, err := r.permissionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	roles := make([]*role.Role, 0, len(rows))
	for i := range rows {
		roles = append(roles, toDomain(&rows[i], grants[rows[i].ID]))
	}
	return roles, nil
}

func (r *RoleRepository) get(ctx context.Context, query string, arg string) (*role.Role, error) {
	var row rbacDatamodel.Role
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	grants, err := r.permissionsFor(ctx, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return toDomain(&row, grants[row.ID]), nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*role.Role, error) {
	return r.get(ctx, "name = ?", name)
}

// Create inserts the role with its permission set in one transaction.
func (r *RoleRepository) Create(ctx context.Context, rl *role.Role) error {
	if rl.ID == "" {
		rl.ID = uuid.NewString()
	}
	row := &rbacDatamodel.Role{
		ID:          rl.ID,
		Name:        rl.Name,
		Description: rl.Description,
		Version:     rl.Version,
		IsSystem:    rl.IsSystem,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return role.ErrRoleExists.WithCause(err)
			}
			return fmt.Errorf("create role: %w", err)
		}
		return linkPermissions(tx, rl.ID, rl.Permissions)
	})
	if err != nil {
		return err
	}
	rl.CreatedAt = row.CreatedAt
	rl.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, perms []string) (int, error) {
	var version int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		if err := linkPermissions(tx, roleID, perms); err != nil {
			return err
		}
		res := tx.Model(&rbacDatamodel.Role{}).Where("id = ?", roleID).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return fmt.Errorf("bump role version: %w", res.Error)
		}
		var row rbacDatamodel.Role
		if err := tx.Select("version").Where("id = ?", roleID).First(&row).Error; err != nil {
			return fmt.Errorf("read role version: %w", err)
		}
		version = row.Version
		return nil
	})
	return version, err
}

// linkPermissions upserts the permission catalog rows and links them to the role.
func linkPermissions(tx *gorm.DB, roleID string, perms []string) error {
	if len(perms) == 0 {
		return nil
	}
	catalog := make([]rbacDatamodel.Permission, 0, len(perms))
	for _, name := range perms {
		p, ok := permission.Parse(name)
		if !ok {
			return fmt.Errorf("unparseable permission %q", name)
		}
		catalog = append(catalog, rbacDatamodel.Permission{
			ID:       uuid.NewString(),
			Name:     name,
			Resource: string(p.Resource),
			Action:   string(p.Action),
			Scope:    string(p.Scope),
		})
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&catalog).Error
	if err != nil {
		return fmt.Errorf("upsert permissions: %w", err)
	}

	var stored []rbacDatamodel.Permission
	if err := tx.Where("name IN ?", perms).Find(&stored).Error; err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	links := make([]rbacDatamodel.RolePermission, 0, len(stored))
	for _, p := range stored {
		links = append(links, rbacDatamodel.RolePermission{RoleID: roleID, PermissionID: p.ID})
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("link permissions: %w", err)
	}
	return nil
}

// Delete removes the role together with its links and assignments.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&accountDatamodel.AccountRole{}).Error; err != nil {
			return fmt.Errorf("delete role assignments: %w", err)
		}
		if err := tx.Where("role_id = ?", id).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return fmt.Errorf("delete role permissions: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&rbacDatamodel.Role{}).Error; err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		return nil
	})
}

func (r *RoleRepository) ListPermissions(ctx context.Context) ([]role.PermissionInfo, error) {
	var rows []rbacDatamodel.Permission
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	out := make([]role.PermissionInfo, 0, len(rows))
	for _, p := range rows {
		out = append(out, role.PermissionInfo{
			Name:        p.Name,
			Resource:    p.Resource,
			Action:      p.Action,
			Scope:       p.Scope,
			Description: p.Description,
		})
	}
	return out, nil
}

func (r *RoleRepository) AccountExists(ctx context.Context, accountID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&accountDatamodel.Account{}).Where("id = ?", accountID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return count > 0, nil
}

func (r *RoleRepository) Assign(ctx context.Context, a role.Assignment) error {
	row := &accountDatamodel.AccountRole{
		AccountID:  a.AccountID,
		RoleID:     a.RoleID,
		AssignedBy: a.AssignedBy,
		ValidFrom:  a.ValidFrom,
		ValidUntil: a.ValidUntil,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "role_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"assigned_by", "valid_from", "valid_until"}),
	}).Create(row).Error
}

func (r *RoleRepository) Unassign(ctx context.Context, accountID, roleID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("account_id = ? AND role_id = ?", accountID, roleID).
		Delete(&accountDatamodel.AccountRole{})
	if res.Error != nil {
		return false, fmt.Errorf("unassign role: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *RoleRepository) AssignmentsFor(ctx context.Context, accountID string) ([]role.Assignment, error) {
	var rows []accountDatamodel.AccountRole
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]role.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, role.Assignment{
			AccountID:  row.AccountID,
			RoleID:     row.RoleID,
			AssignedBy: row.AssignedBy,
			ValidFrom:  row.ValidFrom,
			ValidUntil: row.ValidUntil,
		})
	}
	return out, nil
}

func toDomain(row *rbacDatamodel.Role, perms []string) *role.Role {
	if perms == nil {
		perms = []string{}
	}
	return &role.Role{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Version:     row.Version,
		IsSystem:    row.IsSystem,
		Permissions: perms,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
