package authz_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/authz"
	"github.com/frahmantamala/hris-auth/internal/obs"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Guard", func() {
	var (
		router  *chi.Mux
		metrics *obs.Metrics
		claims  *auth.Claims
	)

	withClaims := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims != nil {
				r = r.WithContext(auth.ContextWithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}

	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		metrics = obs.NewMetrics(prometheus.NewRegistry())

		registry := authz.NewRegistry()
		registry.MustRegister("employees.get", authz.AnyOf("employee:read:all", "employee:read:own"))
		registry.MustRegister("health", authz.Public())

		guard := authz.NewGuard(registry, authz.NewEvaluator(lg), metrics, nil, lg)

		router = chi.NewRouter()
		router.Use(withClaims)
		router.With(guard.Require("employees.get")).Get("/employees/{id}", ok)
		router.With(guard.Require("health")).Get("/health", ok)
		router.With(guard.Require("unregistered")).Get("/oops", ok)
		claims = nil
	})

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	It("should let public operations through without claims", func() {
		Expect(serve("/health").Code).To(Equal(http.StatusOK))
	})

	It("should answer 401 without claims", func() {
		w := serve("/employees/E1")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should resolve own scope from the URL parameter", func() {
		claims = claimsFor("acc-1", "E1", []string{"employee:read:own"})
		Expect(serve("/employees/E1").Code).To(Equal(http.StatusOK))

		w := serve("/employees/E2")
		Expect(w.Code).To(Equal(http.StatusForbidden))

		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeForbiddenOwnership)))
		Expect(body.Error.Message).To(Equal("Insufficient permissions"))
		Expect(testutil.ToFloat64(metrics.AuthzDecisions.WithLabelValues("employees.get", "FORBIDDEN_OWNERSHIP"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.AuthzDecisions.WithLabelValues("employees.get", "allow"))).To(Equal(1.0))
	})

	It("should keep the client message generic", func() {
		claims = claimsFor("acc-1", "E1", []string{"leave:read:own"})
		w := serve("/employees/E1")
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(w.Body.String()).To(ContainSubstring("Insufficient permissions"))
		Expect(w.Body.String()).NotTo(ContainSubstring("employee:read"))
	})

	It("should fail closed for operations missing from the registry", func() {
		claims = claimsFor("root", "", []string{"*:*:*"})
		Expect(serve("/oops").Code).To(Equal(http.StatusInternalServerError))
	})
})
