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
	defaultComplaintListLimit = 20
	maxComplaintListLimit     = 100
)

// ComplaintServiceInterface defines the complaint operations used by handlers.
type ComplaintServiceInterface interface {
	Create(ctx context.Context, actor domainauth.Snapshot, req model.CreateComplaintRequest) (*model.Complaint, error)
	Get(ctx context.Context, actor domainauth.Snapshot, id int64) (*model.Complaint, error)
	List(ctx context.Context, actor domainauth.Snapshot, opts model.ComplaintListOptions) (*model.ComplaintPage, error)
	UpdateStatus(ctx context.Context, actor domainauth.Snapshot, id int64, req model.UpdateComplaintStatusRequest) (*model.Complaint, error)
	Assign(ctx context.Context, actor domainauth.Snapshot, id int64, req model.AssignComplaintRequest) (*model.Complaint, error)
}

// ComplaintHandlers provides HTTP handlers for complaints. Every route is
// behind Gateway.Require, so the identity is always present.
type ComplaintHandlers struct {
	Svc    ComplaintServiceInterface
	Logger *slog.Logger
}

func (h *ComplaintHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(r.Context(), w, h.Logger, err)
}

// Create handles POST /api/complaints.
func (h *ComplaintHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	var req model.CreateComplaintRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	c, err := h.Svc.Create(r.Context(), identity, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, "Complaint submitted", c)
}

// List handles GET /api/complaints?status=&department_id=&limit=&offset=.
func (h *ComplaintHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	limit, offset := ParseLimitOffset(r, defaultComplaintListLimit, maxComplaintListLimit)
	opts := model.ComplaintListOptions{Limit: limit, Offset: offset}

	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		st := model.ComplaintStatus(strings.ToLower(v))
		if !st.Valid() {
			h.fail(w, r, apperrors.ValidationField("status", "status must be open, in_progress, resolved or closed"))
			return
		}
		opts.Status = &st
	}
	dept, err := optionalInt64Query(r, "department_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	opts.DepartmentID = dept

	page, err := h.Svc.List(r.Context(), identity, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", page)
}

// Get handles GET /api/complaints/{id}.
func (h *ComplaintHandlers) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Svc.Get(r.Context(), identity, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", c)
}

// UpdateStatus handles PATCH /api/complaints/{id}/status.
func (h *ComplaintHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req model.UpdateComplaintStatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	c, err := h.Svc.UpdateStatus(r.Context(), identity, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "Status updated", c)
}

// Assign handles POST /api/complaints/{id}/assign.
func (h *ComplaintHandlers) Assign(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req model.AssignComplaintRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	c, err := h.Svc.Assign(r.Context(), identity, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "Complaint assigned", c)
}
