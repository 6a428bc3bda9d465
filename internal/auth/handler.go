package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/core/events"
	"github.com/frahmantamala/hris-auth/internal/obs"
	"github.com/frahmantamala/hris-auth/internal/transport"
	"github.com/frahmantamala/hris-auth/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	Events         events.Publisher
	Metrics        *obs.Metrics
	RequestTimeout time.Duration
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, publisher events.Publisher, metrics *obs.Metrics) *Handler {
	if base == nil {
		base = transport.NewBaseHandler(nil)
	}
	return &Handler{
		BaseHandler: base,
		Service:     svc,
		Events:      publisher,
		Metrics:     metrics,
	}
}

func (h *Handler) publish(ctx context.Context, e events.Event) {
	if h.Events == nil {
		return
	}
	if err := h.Events.Publish(ctx, e); err != nil {
		h.Logger.Warn("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteBadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	summary, err := h.Service.Register(ctx, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.publish(ctx, events.NewAccountRegisteredEvent(summary.ID, summary.Email))
	h.WriteJSON(w, http.StatusCreated, summary)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteBadRequest(w, "invalid request body")
		return
	}
	dto.IPAddress = h.ClientIP(r)
	dto.UserAgent = r.UserAgent()

	ctx, cancel := internal.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	result, err := h.Service.Login(ctx, dto)
	if err != nil {
		code := string(internal.ErrCodeInternal)
		if appErr, ok := internal.IsAppError(err); ok {
			code = string(appErr.Code)
		}
		h.Metrics.ObserveLogin(code)
		h.publish(ctx, events.NewLoginFailedEvent(normalizeEmail(dto.Email), dto.IPAddress, code))
		h.WriteAppError(w, err)
		return
	}

	h.Metrics.ObserveLogin("success")
	h.publish(ctx, events.NewLoginSucceededEvent(result.Account.ID, result.Account.Email, dto.IPAddress))
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteBadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	result, err := h.Service.Refresh(ctx, dto)
	if err != nil {
		code := string(internal.ErrCodeInternal)
		if appErr, ok := internal.IsAppError(err); ok {
			code = string(appErr.Code)
		}
		h.Metrics.ObserveRefresh(code)
		h.WriteAppError(w, err)
		return
	}

	h.Metrics.ObserveRefresh("success")
	h.WriteJSON(w, http.StatusOK, result)
}

// Logout must run behind AuthMiddleware; the body is optional.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	var dto LogoutDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteBadRequest(w, "invalid request body")
			return
		}
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.RequestTimeout)
	defer cancel()

	if err := h.Service.Logout(ctx, claims.AccountID(), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if dto.RefreshToken != "" {
		h.publish(ctx, events.NewSessionRevokedEvent(claims.AccountID()))
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware verifies the bearer access token and stores its claims in
// the request context. It authenticates only; authorization is authz.Guard.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.Logger.Debug("auth middleware: missing authorization token", "path", r.URL.Path)
			h.WriteAppError(w, internal.ErrUnauthenticated)
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			if !errors.Is(err, internal.ErrInvalidToken) {
				h.Logger.Error("auth middleware: token validation error", "error", err)
			}
			h.WriteAppError(w, internal.ErrInvalidToken)
			return
		}

		ctx := ContextWithClaims(r.Context(), claims)
		ctx = logger.WithAccountID(ctx, claims.AccountID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
