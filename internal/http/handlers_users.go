package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

const (
	defaultUserListLimit = 50
	maxUserListLimit     = 200
)

// UserAdminServiceInterface defines the account administration operations.
type UserAdminServiceInterface interface {
	List(ctx context.Context, opts model.UserListOptions) ([]*model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	CreateStaff(ctx context.Context, actor domainauth.Snapshot, req model.CreateStaffRequest) (*model.User, error)
	Update(ctx context.Context, actor domainauth.Snapshot, id int64, req model.UpdateUserRequest) (*model.User, error)
}

// UserHandlers serves the /api/admin endpoints.
type UserHandlers struct {
	Svc    UserAdminServiceInterface
	Logger *slog.Logger
}

// List handles GET /api/admin/users?role=&status=&limit=&offset=.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultUserListLimit, maxUserListLimit)
	opts := model.UserListOptions{Limit: limit, Offset: offset}

	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("role")); v != "" {
		role := domainauth.Role(strings.ToLower(v))
		if !role.Valid() {
			WriteError(r.Context(), w, h.Logger, apperrors.ValidationField("role", "role must be admin, staff or citizen"))
			return
		}
		opts.Role = &role
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		st := domainauth.Status(strings.ToLower(v))
		if !st.Valid() {
			WriteError(r.Context(), w, h.Logger, apperrors.ValidationField("status", "status must be active or inactive"))
			return
		}
		opts.Status = &st
	}

	users, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", map[string]any{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /api/admin/users/{id}.
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	user, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", user)
}

// CreateStaff handles POST /api/admin/staff.
func (h *UserHandlers) CreateStaff(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	var req model.CreateStaffRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	user, err := h.Svc.CreateStaff(r.Context(), identity, req)
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, "Staff account created", user)
}

// Update handles PATCH /api/admin/users/{id}.
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	var req model.UpdateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	user, err := h.Svc.Update(r.Context(), identity, id, req)
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "User updated", user)
}
