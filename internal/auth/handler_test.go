package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/core/events"
	"github.com/frahmantamala/hris-auth/internal/obs"
	"github.com/frahmantamala/hris-auth/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Auth Handler", func() {
	var (
		f         *fixture
		router    *chi.Mux
		publisher *recordingPublisher
		metrics   *obs.Metrics
	)

	BeforeEach(func() {
		f = newFixture()
		publisher = &recordingPublisher{}
		metrics = obs.NewMetrics(prometheus.NewRegistry())

		h := auth.NewHandler(transport.NewBaseHandler(silentLogger()), f.service, publisher, metrics)
		router = chi.NewRouter()
		router.Post("/auth/register", h.Register)
		router.Post("/auth/login", h.Login)
		router.Post("/auth/refresh", h.RefreshToken)
		router.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Post("/auth/logout", h.Logout)
			r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
				claims, _ := auth.ClaimsFromContext(r.Context())
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"sub": claims.AccountID(), "permissions": claims.Permissions})
			})
		})
	})

	do := func(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "ginkgo-http")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) errorBody {
		var body errorBody
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body
	}

	loginAs := func(email, password string) auth.LoginResult {
		w := do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var result auth.LoginResult
		Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
		return result
	}

	Describe("POST /auth/register", func() {
		It("should answer 201 with the account summary", func() {
			w := do(http.MethodPost, "/auth/register", map[string]string{
				"email":        "ann@example.com",
				"password":     "correct-horse",
				"display_name": "Ann",
			}, "")
			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(w.Body.String()).To(ContainSubstring(`"email":"ann@example.com"`))
			Expect(w.Body.String()).NotTo(ContainSubstring("password"))
			Expect(publisher.types()).To(ConsistOf(events.EventTypeAccountRegistered))
		})

		It("should answer 409 for a duplicate email", func() {
			f.register("ann@example.com", "correct-horse")
			w := do(http.MethodPost, "/auth/register", map[string]string{
				"email":        "ann@example.com",
				"password":     "correct-horse",
				"display_name": "Ann",
			}, "")
			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("should answer 400 for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{"))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /auth/login", func() {
		BeforeEach(func() {
			f.register("ann@example.com", "correct-horse")
		})

		It("should issue both tokens and record the forwarded address", func() {
			result := loginAs("ann@example.com", "correct-horse")
			Expect(result.AccessToken).NotTo(BeEmpty())
			Expect(result.RefreshToken).NotTo(BeEmpty())
			Expect(result.TokenType).To(Equal("Bearer"))

			rows := f.loginRows("ann@example.com")
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].IPAddress).To(Equal("203.0.113.9"))
			Expect(rows[0].UserAgent).To(Equal("ginkgo-http"))

			Expect(testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues("success"))).To(Equal(1.0))
			Expect(publisher.types()).To(ContainElement(events.EventTypeLoginSucceeded))
		})

		It("should answer 401 INVALID_CREDENTIALS without detail", func() {
			w := do(http.MethodPost, "/auth/login", map[string]string{"email": "ann@example.com", "password": "nope-nope"}, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			body := decodeError(w)
			Expect(body.Error.Code).To(Equal("INVALID_CREDENTIALS"))

			Expect(testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues("INVALID_CREDENTIALS"))).To(Equal(1.0))
			Expect(publisher.types()).To(ContainElement(events.EventTypeLoginFailed))
		})
	})

	Describe("POST /auth/refresh", func() {
		It("should mint a new access token", func() {
			f.register("ann@example.com", "correct-horse")
			login := loginAs("ann@example.com", "correct-horse")

			w := do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": login.RefreshToken}, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var result auth.RefreshResult
			Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
			Expect(result.AccessToken).NotTo(BeEmpty())
			Expect(testutil.ToFloat64(metrics.RefreshesTotal.WithLabelValues("success"))).To(Equal(1.0))
		})

		It("should answer 401 for garbage", func() {
			w := do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": "garbage"}, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(w).Error.Code).To(Equal("INVALID_TOKEN"))
		})
	})

	Describe("AuthMiddleware", func() {
		It("should answer 401 UNAUTHENTICATED without a bearer token", func() {
			w := do(http.MethodGet, "/whoami", nil, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(w).Error.Code).To(Equal("UNAUTHENTICATED"))
		})

		It("should answer 401 INVALID_TOKEN for a refresh token", func() {
			f.register("ann@example.com", "correct-horse")
			login := loginAs("ann@example.com", "correct-horse")

			w := do(http.MethodGet, "/whoami", nil, login.RefreshToken)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(w).Error.Code).To(Equal("INVALID_TOKEN"))
		})

		It("should expose the verified claims downstream", func() {
			summary := f.register("ann@example.com", "correct-horse")
			login := loginAs("ann@example.com", "correct-horse")

			w := do(http.MethodGet, "/whoami", nil, login.AccessToken)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(summary.ID))
		})
	})

	Describe("POST /auth/logout", func() {
		var tokens auth.LoginResult

		BeforeEach(func() {
			f.register("ann@example.com", "correct-horse")
			tokens = loginAs("ann@example.com", "correct-horse")
		})

		It("should answer 204 without a body", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(publisher.types()).NotTo(ContainElement(events.EventTypeSessionRevoked))
		})

		It("should revoke the supplied refresh token", func() {
			w := do(http.MethodPost, "/auth/logout", map[string]string{"refresh_token": tokens.RefreshToken}, tokens.AccessToken)
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(publisher.types()).To(ContainElement(events.EventTypeSessionRevoked))

			w = do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": tokens.RefreshToken}, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(w).Error.Code).To(Equal("SESSION_REVOKED"))
		})
	})
})
