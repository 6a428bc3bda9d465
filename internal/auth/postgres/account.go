package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	accountDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/account"
	"github.com/frahmantamala/hris-auth/internal/permission"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// validAssignment selects account_roles rows whose window contains the given instant.
const validAssignment = `ar.account_id = ?
  AND (ar.valid_from IS NULL OR ar.valid_from <= ?)
  AND (ar.valid_until IS NULL OR ar.valid_until > ?)`

const grantedPermissionsQuery = `SELECT DISTINCT p.name
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN account_roles ar ON ar.role_id = rp.role_id
WHERE ` + validAssignment

const grantedRolesQuery = `SELECT DISTINCT r.name
FROM roles r
JOIN account_roles ar ON ar.role_id = r.id
WHERE ` + validAssignment

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	var row accountDatamodel.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return toDomain(&row), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	var row accountDatamodel.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return toDomain(&row), nil
}

// Create assigns the id and maps a unique-email violation to internal.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	row := &accountDatamodel.Account{
		ID:           account.ID,
		Email:        account.Email,
		DisplayName:  account.DisplayName,
		PasswordHash: account.PasswordHash,
		EmployeeID:   account.EmployeeID,
		IsActive:     account.IsActive,
		IsSuspended:  account.IsSuspended,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.ErrConflict.WithCause(err)
		}
		return fmt.Errorf("create account: %w", err)
	}
	account.CreatedAt = row.CreatedAt
	return nil
}

func (r *AccountRepository) Grants(ctx context.Context, accountID string, at time.Time) ([]string, []string, error) {
	perms, err := r.names(ctx, grantedPermissionsQuery, accountID, at)
	if err != nil {
		return nil, nil, fmt.Errorf("load permissions: %w", err)
	}
	roles, err := r.names(ctx, grantedRolesQuery, accountID, at)
	if err != nil {
		return nil, nil, fmt.Errorf("load roles: %w", err)
	}
	return permission.Union(perms), permission.Union(roles), nil
}

func (r *AccountRepository) names(ctx context.Context, query, accountID string, at time.Time) ([]string, error) {
	rows, err := r.db.WithContext(ctx).Raw(query, accountID, at, at).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, accountID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&accountDatamodel.Account{}).
		Where("id = ?", accountID).
		Update("last_login_at", at).Error
}

// SetStatus toggles the active and suspended flags.
func (r *AccountRepository) SetStatus(ctx context.Context, accountID string, active, suspended bool) error {
	res := r.db.WithContext(ctx).
		Model(&accountDatamodel.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{"is_active": active, "is_suspended": suspended})
	if res.Error != nil {
		return fmt.Errorf("set account status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrAccountNotFound
	}
	return nil
}

func toDomain(row *accountDatamodel.Account) *auth.Account {
	return &auth.Account{
		ID:           row.ID,
		Email:        row.Email,
		DisplayName:  row.DisplayName,
		PasswordHash: row.PasswordHash,
		EmployeeID:   row.EmployeeID,
		IsActive:     row.IsActive,
		IsSuspended:  row.IsSuspended,
		LastLoginAt:  row.LastLoginAt,
		CreatedAt:    row.CreatedAt,
	}
}
