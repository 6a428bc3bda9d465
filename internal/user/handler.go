package user

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/session"
	"github.com/frahmantamala/hris-auth/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, accountID string) (*Profile, error)
	LoginHistory(ctx context.Context, accountID string, limit int) ([]session.LoginAttempt, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	if base == nil {
		base = transport.NewBaseHandler(nil)
	}
	return &Handler{
		BaseHandler: base,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), claims.AccountID())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// GetUser handles GET /users/{id}; ownership is enforced by the route guard.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// GetLoginHistory handles GET /users/{id}/login-history?limit=N
func (h *Handler) GetLoginHistory(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationFieldError("limit", "limit must be a number", internal.ErrCodeValidationFailed))
			return
		}
		limit = n
	}

	entries, err := h.Service.LoginHistory(r.Context(), accountID, limit)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, LoginHistoryResponse{AccountID: accountID, Entries: entries})
}
