package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/hris-auth/cmd"
	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/authz"
	accountDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/account"
	rbacDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/rbac"
	sessionDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/session"
	"github.com/frahmantamala/hris-auth/internal/role"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type errorBody struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

var _ = Describe("HRIS auth end to end", func() {
	var (
		ctx    context.Context
		deps   *cmd.Dependencies
		server *httptest.Server
		roles  map[string]string
	)

	BeforeEach(func() {
		ctx = context.Background()

		gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := gormDB.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(gormDB.AutoMigrate(
			&accountDatamodel.Account{},
			&accountDatamodel.AccountRole{},
			&rbacDatamodel.Role{},
			&rbacDatamodel.Permission{},
			&rbacDatamodel.RolePermission{},
			&sessionDatamodel.RefreshToken{},
			&sessionDatamodel.LoginHistory{},
		)).To(Succeed())

		cfg := &internal.Config{
			Env: "test",
			Server: internal.ServerConfig{
				AllowedOrigins: "*",
				RequestTimeout: 5 * time.Second,
			},
			Security: internal.SecurityConfig{
				JWTSecret:        "access-secret-that-is-long-enough-123",
				JWTRefreshSecret: "refresh-secret-that-is-long-enough-456",
				BCryptCost:       4,
			},
		}

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		deps = cmd.NewDependencies(cfg, gormDB, sqlx.NewDb(sqlDB, "sqlite3"), lg)
		Expect(cmd.SetupRoutes(deps)).To(Succeed())

		seeded, err := cmd.SeedRoles(ctx, deps.Roles)
		Expect(err).NotTo(HaveOccurred())
		roles = make(map[string]string, len(seeded))
		for _, r := range seeded {
			roles[r.Name] = r.ID
		}

		server = httptest.NewServer(deps.Router)
	})

	AfterEach(func() {
		server.Close()
		deps.EventBus.Wait()
	})

	call := func(method, path, token string, body interface{}) *http.Response {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req, err := http.NewRequest(method, server.URL+path, &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decode := func(resp *http.Response, into interface{}) {
		Expect(json.NewDecoder(resp.Body).Decode(into)).To(Succeed())
	}

	errorCode := func(resp *http.Response) string {
		var body errorBody
		decode(resp, &body)
		return body.Error.Code
	}

	enroll := func(email, roleName string) string {
		resp := call(http.MethodPost, "/api/v1/auth/register", "", auth.RegisterDTO{
			Email:       email,
			Password:    "correct horse battery",
			DisplayName: email,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		var summary auth.AccountSummary
		decode(resp, &summary)

		Expect(deps.Roles.AssignRole(ctx, role.AssignRoleDTO{AccountID: summary.ID, RoleID: roles[roleName]})).To(Succeed())
		return summary.ID
	}

	login := func(email string) auth.LoginResult {
		resp := call(http.MethodPost, "/api/v1/auth/login", "", auth.LoginDTO{Email: email, Password: "correct horse battery"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var result auth.LoginResult
		decode(resp, &result)
		return result
	}

	It("should answer the public health probes", func() {
		Expect(call(http.MethodGet, "/api/v1/ping", "", nil).StatusCode).To(Equal(http.StatusOK))
		Expect(call(http.MethodGet, "/api/v1/health", "", nil).StatusCode).To(Equal(http.StatusOK))
	})

	It("should carry role permissions into the access token", func() {
		enroll("mia@example.com", "manager")
		result := login("mia@example.com")

		Expect(result.Roles).To(Equal([]string{"manager"}))
		Expect(result.Permissions).To(ContainElement("leave:approve:department"))

		claims, err := deps.Auth.ValidateAccessToken(result.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Permissions).To(Equal(result.Permissions))

		evaluator := authz.NewEvaluator(slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(evaluator.Authorize(ctx, authz.AnyOf("leave:approve:department", "leave:approve:all"), claims, nil)).To(Succeed())
		Expect(evaluator.Authorize(ctx, authz.AllOf("leave:approve:all"), claims, nil)).
			To(MatchError(internal.ErrInsufficientPermission))
	})

	It("should limit own-scoped reads to the caller", func() {
		annID := enroll("ann@example.com", "employee")
		miaID := enroll("mia@example.com", "manager")
		ann := login("ann@example.com")

		Expect(call(http.MethodGet, "/api/v1/users/"+annID, ann.AccessToken, nil).StatusCode).To(Equal(http.StatusOK))

		resp := call(http.MethodGet, "/api/v1/users/"+miaID, ann.AccessToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(errorCode(resp)).To(Equal(string(internal.ErrForbiddenOwnership.Code)))

		history := call(http.MethodGet, "/api/v1/users/"+annID+"/login-history", ann.AccessToken, nil)
		Expect(history.StatusCode).To(Equal(http.StatusOK))
	})

	It("should gate role administration on role permissions", func() {
		enroll("ann@example.com", "employee")
		enroll("root@example.com", "super_admin")
		ann := login("ann@example.com")
		root := login("root@example.com")

		resp := call(http.MethodGet, "/api/v1/roles", ann.AccessToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(errorCode(resp)).To(Equal(string(internal.ErrInsufficientPermission.Code)))

		Expect(call(http.MethodGet, "/api/v1/roles", "", nil).StatusCode).To(Equal(http.StatusUnauthorized))

		list := call(http.MethodGet, "/api/v1/roles", root.AccessToken, nil)
		Expect(list.StatusCode).To(Equal(http.StatusOK))
		var body role.RolesResponse
		decode(list, &body)
		Expect(body.Roles).To(HaveLen(len(cmd.DefaultRoles)))

		created := call(http.MethodPost, "/api/v1/roles", root.AccessToken, role.CreateRoleDTO{
			Name:        "auditor",
			Permissions: []string{"payroll:read:all"},
		})
		Expect(created.StatusCode).To(Equal(http.StatusCreated))

		del := call(http.MethodDelete, "/api/v1/roles/"+roles["employee"], root.AccessToken, nil)
		Expect(del.StatusCode).To(Equal(http.StatusConflict))
	})

	It("should refresh until logout revokes the session", func() {
		enroll("ann@example.com", "employee")
		ann := login("ann@example.com")

		refreshed := call(http.MethodPost, "/api/v1/auth/refresh", "", auth.RefreshTokenDTO{RefreshToken: ann.RefreshToken})
		Expect(refreshed.StatusCode).To(Equal(http.StatusOK))
		var result auth.RefreshResult
		decode(refreshed, &result)
		Expect(result.AccessToken).NotTo(BeEmpty())

		logout := call(http.MethodPost, "/api/v1/auth/logout", result.AccessToken, auth.LogoutDTO{RefreshToken: ann.RefreshToken})
		Expect(logout.StatusCode).To(Equal(http.StatusNoContent))

		again := call(http.MethodPost, "/api/v1/auth/refresh", "", auth.RefreshTokenDTO{RefreshToken: ann.RefreshToken})
		Expect(again.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(again)).To(Equal(string(internal.ErrSessionRevoked.Code)))
	})

	It("should refuse a refresh token as a bearer credential", func() {
		enroll("ann@example.com", "employee")
		ann := login("ann@example.com")

		resp := call(http.MethodGet, "/api/v1/users/me", ann.RefreshToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(resp)).To(Equal(string(internal.ErrInvalidToken.Code)))
	})
})
