package role_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/hris-auth/internal/auth"
	accountDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/account"
	"github.com/frahmantamala/hris-auth/internal/role"
	rolePostgres "github.com/frahmantamala/hris-auth/internal/role/postgres"
	"github.com/frahmantamala/hris-auth/internal/transport"
	"github.com/go-chi/chi"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Role Handler", func() {
	var (
		db     *gorm.DB
		router *chi.Mux
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		db = openDB()
		service := role.NewService(rolePostgres.NewRoleRepository(db), lg)
		h := role.NewHandler(transport.NewBaseHandler(lg), service)

		admin := &auth.Claims{
			Permissions:      []string{"*:*:*"},
			RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
		}
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), admin)))
			})
		})
		router.Get("/roles", h.ListRoles)
		router.Post("/roles", h.CreateRole)
		router.Get("/roles/{roleId}", h.GetRole)
		router.Put("/roles/{roleId}/permissions", h.SetPermissions)
		router.Delete("/roles/{roleId}", h.DeleteRole)
		router.Get("/permissions", h.ListPermissions)
		router.Get("/accounts/{accountId}/roles", h.ListAssignments)
		router.Put("/accounts/{accountId}/roles/{roleId}", h.AssignRole)
		router.Delete("/accounts/{accountId}/roles/{roleId}", h.RevokeRole)
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	createRole := func(name string, perms ...string) role.Role {
		w := do(http.MethodPost, "/roles", role.CreateRoleDTO{Name: name, Permissions: perms})
		Expect(w.Code).To(Equal(http.StatusCreated))
		var created role.Role
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		return created
	}

	It("should create and list roles", func() {
		createRole("manager", "leave:approve:department")

		w := do(http.MethodGet, "/roles", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp role.RolesResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Roles).To(HaveLen(1))
		Expect(resp.Roles[0].Permissions).To(ConsistOf("leave:approve:department"))
	})

	It("should answer 400 MALFORMED_PERMISSION for bad strings", func() {
		w := do(http.MethodPost, "/roles", role.CreateRoleDTO{Name: "x", Permissions: []string{"leave::all"}})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("MALFORMED_PERMISSION"))
	})

	It("should replace permissions", func() {
		created := createRole("hr_admin", "employee:read:all")
		w := do(http.MethodPut, "/roles/"+created.ID+"/permissions", role.SetPermissionsDTO{Permissions: []string{"employee:*:all"}})
		Expect(w.Code).To(Equal(http.StatusOK))

		var updated role.Role
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.Version).To(Equal(2))
	})

	It("should answer 404 for unknown roles and 409 for system roles", func() {
		Expect(do(http.MethodGet, "/roles/missing", nil).Code).To(Equal(http.StatusNotFound))

		created := createRole("super_admin", "*:*:*")
		Expect(db.Exec("UPDATE roles SET is_system = ? WHERE id = ?", true, created.ID).Error).To(Succeed())
		Expect(do(http.MethodDelete, "/roles/"+created.ID, nil).Code).To(Equal(http.StatusConflict))
	})

	It("should assign with the caller recorded and revoke", func() {
		Expect(db.Create(&accountDatamodel.Account{ID: "acc-1", Email: "a@example.com", DisplayName: "A", PasswordHash: "x", IsActive: true}).Error).To(Succeed())
		created := createRole("employee", "leave:create:own")

		Expect(do(http.MethodPut, "/accounts/acc-1/roles/"+created.ID, nil).Code).To(Equal(http.StatusNoContent))

		w := do(http.MethodGet, "/accounts/acc-1/roles", nil)
		var resp role.AssignmentsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Assignments).To(HaveLen(1))
		Expect(*resp.Assignments[0].AssignedBy).To(Equal("admin-1"))

		Expect(do(http.MethodDelete, "/accounts/acc-1/roles/"+created.ID, nil).Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodPut, "/accounts/ghost/roles/"+created.ID, nil).Code).To(Equal(http.StatusNotFound))
	})

	It("should list the permission catalog", func() {
		createRole("manager", "leave:approve:department", "attendance:read:department")
		w := do(http.MethodGet, "/permissions", nil)
		var resp role.PermissionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Permissions).To(HaveLen(2))
	})
})
