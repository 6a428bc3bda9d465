package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/authz"
	"github.com/frahmantamala/hris-auth/internal/obs"
	"github.com/frahmantamala/hris-auth/internal/role"
	"github.com/frahmantamala/hris-auth/internal/transport"
	"github.com/frahmantamala/hris-auth/internal/transport/middleware"
	"github.com/frahmantamala/hris-auth/internal/transport/swagger"
	"github.com/frahmantamala/hris-auth/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type RouterDeps struct {
	DB             *sql.DB
	Auth           *auth.Handler
	Users          *user.Handler
	Roles          *role.Handler
	Guard          *authz.Guard
	Metrics        *obs.Metrics
	AllowedOrigins string
	DocsEnabled    bool
	SpecPath       string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps RouterDeps) {
	health := NewHealthHandler(transport.NewBaseHandler(deps.Logger), deps.DB)
	guard := deps.Guard.Require

	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(deps.Metrics.Instrument)

	router.Handle("/metrics", deps.Metrics.Handler())

	if deps.DocsEnabled {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, deps.SpecPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.With(guard(OpHealth)).Get("/health", health.Health)
		r.With(guard(OpPing)).Get("/ping", health.Ping)

		r.Route("/auth", func(ar chi.Router) {
			ar.With(guard(OpRegister)).Post("/register", deps.Auth.Register)
			ar.With(guard(OpLogin)).Post("/login", deps.Auth.Login)
			ar.With(guard(OpRefresh)).Post("/refresh", deps.Auth.RefreshToken)
			ar.With(deps.Auth.AuthMiddleware, guard(OpLogout)).Post("/logout", deps.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(deps.Auth.AuthMiddleware)

			if deps.Users != nil {
				pr.With(guard(OpCurrentUser)).Get("/users/me", deps.Users.GetCurrentUser)
				pr.With(guard(OpGetUser)).Get("/users/{id}", deps.Users.GetUser)
				pr.With(guard(OpLoginHistory)).Get("/users/{id}/login-history", deps.Users.GetLoginHistory)
			}

			if deps.Roles != nil {
				pr.Route("/roles", func(rr chi.Router) {
					rr.With(guard(OpListRoles)).Get("/", deps.Roles.ListRoles)
					rr.With(guard(OpCreateRole)).Post("/", deps.Roles.CreateRole)
					rr.With(guard(OpGetRole)).Get("/{roleId}", deps.Roles.GetRole)
					rr.With(guard(OpSetPermissions)).Put("/{roleId}/permissions", deps.Roles.SetPermissions)
					rr.With(guard(OpDeleteRole)).Delete("/{roleId}", deps.Roles.DeleteRole)
				})
				pr.With(guard(OpListPermissions)).Get("/permissions", deps.Roles.ListPermissions)

				pr.Route("/accounts/{accountId}/roles", func(rr chi.Router) {
					rr.With(guard(OpListAssignments)).Get("/", deps.Roles.ListAssignments)
					rr.With(guard(OpAssignRole)).Put("/{roleId}", deps.Roles.AssignRole)
					rr.With(guard(OpRevokeRole)).Delete("/{roleId}", deps.Roles.RevokeRole)
				})
			}
		})
	})
}
