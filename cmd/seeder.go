package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	authPostgres "github.com/frahmantamala/hris-auth/internal/auth/postgres"
	"github.com/frahmantamala/hris-auth/internal/role"
	"github.com/frahmantamala/hris-auth/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RoleSeed describes one of the built-in roles.
type RoleSeed struct {
	Name        string
	Description string
	Permissions []string
}

var DefaultRoles = []RoleSeed{
	{
		Name:        "super_admin",
		Description: "Unrestricted access",
		Permissions: []string{"*:*:*"},
	},
	{
		Name:        "hr_admin",
		Description: "HR administrators",
		Permissions: []string{
			"employee:*:all",
			"attendance:*:all",
			"leave:*:all",
			"payroll:read:all",
			"payroll:export:all",
			"notification:create:all",
			"user:read:all",
			"role:read:all",
			"role:assign:all",
			"role:revoke:all",
			"permission:read:all",
		},
	},
	{
		Name:        "manager",
		Description: "Line managers",
		Permissions: []string{
			"employee:read:department",
			"attendance:read:department",
			"leave:read:department",
			"leave:approve:department",
			"leave:reject:department",
			"user:read:own",
		},
	},
	{
		Name:        "employee",
		Description: "Every staff member",
		Permissions: []string{
			"employee:read:own",
			"attendance:create:own",
			"attendance:read:own",
			"leave:create:own",
			"leave:read:own",
			"payroll:read:own",
			"user:read:own",
		},
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the built-in roles and an administrator account",
	Long: `Seed the built-in roles and an administrator account.
The administrator credentials are read from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		gormDB, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		if clearData {
			if err := clearAll(ctx, gormDB); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		deps := NewDependencies(cfg, gormDB, db, logger.L())
		seeded, err := SeedRoles(ctx, deps.Roles)
		if err != nil {
			log.Fatalf("failed to seed roles: %v", err)
		}
		for _, r := range seeded {
			fmt.Printf("Seeded role %s (version %d, %d permissions)\n", r.Name, r.Version, len(r.Permissions))
		}

		email := envOr("SEED_ADMIN_EMAIL", "admin@hris.local")
		password := os.Getenv("SEED_ADMIN_PASSWORD")
		if password == "" {
			fmt.Println("SEED_ADMIN_PASSWORD not set; skipping administrator account")
			return
		}
		if err := SeedAdmin(ctx, deps, email, password); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
		fmt.Println("Seeded administrator:", email)
	},
}

// SeedRoles upserts DefaultRoles as system roles.
func SeedRoles(ctx context.Context, roles *role.Service) ([]*role.Role, error) {
	out := make([]*role.Role, 0, len(DefaultRoles))
	for _, seed := range DefaultRoles {
		r, err := roles.EnsureRole(ctx, seed.Name, seed.Description, seed.Permissions, true)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", seed.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SeedAdmin registers the account when it does not exist yet and grants it super_admin.
func SeedAdmin(ctx context.Context, deps *Dependencies, email, password string) error {
	accountID := ""
	summary, err := deps.Auth.Register(ctx, auth.RegisterDTO{
		Email:       email,
		Password:    password,
		DisplayName: "Administrator",
	})
	switch {
	case err == nil:
		accountID = summary.ID
	case errors.Is(err, internal.ErrConflict):
		existing, err := authPostgres.NewAccountRepository(deps.GormDB).FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("account %s vanished during seeding", email)
		}
		accountID = existing.ID
	default:
		return err
	}

	superAdmin, err := deps.Roles.EnsureRole(ctx, DefaultRoles[0].Name, DefaultRoles[0].Description, DefaultRoles[0].Permissions, true)
	if err != nil {
		return err
	}
	return deps.Roles.AssignRole(ctx, role.AssignRoleDTO{AccountID: accountID, RoleID: superAdmin.ID})
}

func clearAll(ctx context.Context, db *gorm.DB) error {
	tables := []string{"account_roles", "role_permissions", "permissions", "roles", "refresh_tokens", "login_histories", "accounts"}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Exec("DELETE FROM " + t).Error; err != nil {
				return fmt.Errorf("clear %s: %w", t, err)
			}
		}
		return nil
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
