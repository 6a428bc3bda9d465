package rest

import "github.com/frahmantamala/hris-auth/internal/authz"

// Operation ids guarded on the HTTP surface.
const (
	OpHealth = "system.health"
	OpPing   = "system.ping"

	OpRegister = "auth.register"
	OpLogin    = "auth.login"
	OpRefresh  = "auth.refresh"
	OpLogout   = "auth.logout"

	OpCurrentUser  = "users.me"
	OpGetUser      = "users.get"
	OpLoginHistory = "users.login_history"

	OpListRoles       = "roles.list"
	OpGetRole         = "roles.get"
	OpCreateRole      = "roles.create"
	OpSetPermissions  = "roles.permissions.set"
	OpDeleteRole      = "roles.delete"
	OpListPermissions = "permissions.list"
	OpListAssignments = "accounts.roles.list"
	OpAssignRole      = "accounts.roles.assign"
	OpRevokeRole      = "accounts.roles.revoke"
)

// NewOperationRegistry returns the requirement of every routed operation.
// Authenticated-only operations carry an empty requirement and sit behind
// the auth middleware.
func NewOperationRegistry() *authz.Registry {
	reg := authz.NewRegistry()

	reg.MustRegister(OpHealth, authz.Public())
	reg.MustRegister(OpPing, authz.Public())

	reg.MustRegister(OpRegister, authz.Public())
	reg.MustRegister(OpLogin, authz.Public())
	reg.MustRegister(OpRefresh, authz.Public())
	reg.MustRegister(OpLogout, authz.Requirement{})

	reg.MustRegister(OpCurrentUser, authz.Requirement{})
	reg.MustRegister(OpGetUser, authz.AnyOf("user:read:all", "user:read:own"))
	reg.MustRegister(OpLoginHistory, authz.AnyOf("user:read:all", "user:read:own"))

	reg.MustRegister(OpListRoles, authz.AnyOf("role:read:all"))
	reg.MustRegister(OpGetRole, authz.AnyOf("role:read:all"))
	reg.MustRegister(OpCreateRole, authz.AllOf("role:create:all"))
	reg.MustRegister(OpSetPermissions, authz.AllOf("role:update:all"))
	reg.MustRegister(OpDeleteRole, authz.AllOf("role:delete:all"))
	reg.MustRegister(OpListPermissions, authz.AnyOf("permission:read:all", "role:read:all"))
	reg.MustRegister(OpListAssignments, authz.AnyOf("role:read:all"))
	reg.MustRegister(OpAssignRole, authz.AllOf("role:assign:all"))
	reg.MustRegister(OpRevokeRole, authz.AllOf("role:revoke:all"))

	return reg
}
