//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/civicline/civicline-api/internal/domain/auth"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

const (
	maxTitleLen           = 200
	maxDescriptionLen     = 5000
	maxCategoryLen        = 100
	defaultComplaintLimit = 20
	maxComplaintLimit     = 100
)

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "open"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
	ComplaintStatusClosed     ComplaintStatus = "closed"
)

// Valid reports whether the status is supported.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusOpen, ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusClosed:
		return true
	default:
		return false
	}
}

// transition describes one allowed status change.
type transition struct {
	from, to  ComplaintStatus
	adminOnly bool
}

var complaintTransitions = []transition{
	{from: ComplaintStatusOpen, to: ComplaintStatusInProgress},
	{from: ComplaintStatusOpen, to: ComplaintStatusClosed, adminOnly: true},
	{from: ComplaintStatusInProgress, to: ComplaintStatusResolved},
	{from: ComplaintStatusResolved, to: ComplaintStatusClosed},
	{from: ComplaintStatusResolved, to: ComplaintStatusInProgress, adminOnly: true},
	{from: ComplaintStatusClosed, to: ComplaintStatusInProgress, adminOnly: true},
}

// CanTransition reports whether role may move a complaint from one status to another.
func CanTransition(from, to ComplaintStatus, role auth.Role) bool {
	for _, t := range complaintTransitions {
		if t.from == from && t.to == to {
			return !t.adminOnly || role == auth.RoleAdmin
		}
	}
	return false
}

// Priority orders complaints for staff triage.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is supported.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Complaint is a citizen-submitted case. SLA fields are written by the
// external breach-detection job and only read here.
type Complaint struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	AssignedTo   *int64          `json:"assigned_to,omitempty"`
	DepartmentID *int64          `json:"department_id,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Status       ComplaintStatus `json:"status"`
	Priority     Priority        `json:"priority"`
	SLADueAt     *time.Time      `json:"sla_due_at,omitempty"`
	SLABreached  bool            `json:"sla_breached"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateComplaintRequest represents parameters to create a Complaint.
type CreateComplaintRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Priority     Priority `json:"priority,omitempty"`
	DepartmentID *int64   `json:"department_id,omitempty"`
}

// Validate validates CreateComplaintRequest.
func (r *CreateComplaintRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Priority = Priority(strings.ToLower(strings.TrimSpace(string(r.Priority))))

	switch {
	case r.Title == "":
		return apperrors.ValidationField("title", "title is required")
	case utf8.RuneCountInString(r.Title) > maxTitleLen:
		return apperrors.ValidationField("title", "title cannot exceed 200 characters")
	case r.Description == "":
		return apperrors.ValidationField("description", "description is required")
	case utf8.RuneCountInString(r.Description) > maxDescriptionLen:
		return apperrors.ValidationField("description", "description cannot exceed 5000 characters")
	case r.Category == "":
		return apperrors.ValidationField("category", "category is required")
	case utf8.RuneCountInString(r.Category) > maxCategoryLen:
		return apperrors.ValidationField("category", "category cannot exceed 100 characters")
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.Valid() {
		return apperrors.ValidationField("priority", "priority must be low, medium, high or urgent")
	}
	return nil
}

// NewComplaint is the insert shape produced by the service after ownership
// has been fixed to the caller.
type NewComplaint struct {
	UserID       int64
	DepartmentID *int64
	Title        string
	Description  string
	Category     string
	Priority     Priority
}

// UpdateComplaintStatusRequest is the body of PATCH /api/complaints/{id}/status.
type UpdateComplaintStatusRequest struct {
	Status ComplaintStatus `json:"status"`
}

// Validate validates UpdateComplaintStatusRequest.
func (r *UpdateComplaintStatusRequest) Validate() error {
	r.Status = ComplaintStatus(strings.ToLower(strings.TrimSpace(string(r.Status))))
	if !r.Status.Valid() {
		return apperrors.ValidationField("status", "status must be open, in_progress, resolved or closed")
	}
	return nil
}

// AssignComplaintRequest is the body of POST /api/complaints/{id}/assign.
type AssignComplaintRequest struct {
	AssigneeID int64 `json:"assignee_id"`
}

// Validate validates AssignComplaintRequest.
func (r *AssignComplaintRequest) Validate() error {
	if r.AssigneeID <= 0 {
		return apperrors.ValidationField("assignee_id", "assignee_id is required")
	}
	return nil
}

// ComplaintListOptions controls paging and filtering for listing complaints.
// OwnerID and AssigneeID are set by role scoping, never from client input.
type ComplaintListOptions struct {
	Limit        int
	Offset       int
	Status       *ComplaintStatus
	DepartmentID *int64
	OwnerID      *int64
	AssigneeID   *int64
}

// Normalize applies default and maximum page sizes.
func (o *ComplaintListOptions) Normalize() {
	o.Limit, o.Offset = normalizePage(o.Limit, o.Offset, defaultComplaintLimit, maxComplaintLimit)
}

// ComplaintPage is one page of complaints plus the unpaged total.
type ComplaintPage struct {
	Items  []*Complaint `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}
