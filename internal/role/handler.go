package role

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListRoles(ctx context.Context) ([]*Role, error)
	GetRole(ctx context.Context, id string) (*Role, error)
	CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	SetPermissions(ctx context.Context, roleID string, perms []string) (*Role, error)
	DeleteRole(ctx context.Context, roleID string) error
	ListPermissions(ctx context.Context) ([]PermissionInfo, error)
	AssignRole(ctx context.Context, dto AssignRoleDTO) error
	RevokeRole(ctx context.Context, accountID, roleID string) error
	ListAssignments(ctx context.Context, accountID string) ([]Assignment, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.Service.GetRole(r.Context(), chi.URLParam(r, "roleId"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteBadRequest(w, "invalid request body")
		return
	}
	role, err := h.Service.CreateRole(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	var dto SetPermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteBadRequest(w, "invalid request body")
		return
	}
	role, err := h.Service.SetPermissions(r.Context(), chi.URLParam(r, "roleId"), dto.Permissions)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteRole(r.Context(), chi.URLParam(r, "roleId")); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: perms})
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Service.ListAssignments(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AssignmentsResponse{Assignments: assignments})
}

// AssignRole records the caller as assigner; the body carrying the window is optional.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var dto AssignRoleDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteBadRequest(w, "invalid request body")
			return
		}
	}
	dto.AccountID = chi.URLParam(r, "accountId")
	dto.RoleID = chi.URLParam(r, "roleId")
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		assigner := claims.AccountID()
		dto.AssignedBy = &assigner
	}

	if err := h.Service.AssignRole(r.Context(), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	err := h.Service.RevokeRole(r.Context(), chi.URLParam(r, "accountId"), chi.URLParam(r, "roleId"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
