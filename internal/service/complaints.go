package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/civicline/civicline-api/internal/core"
	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	apperrors "github.com/civicline/civicline-api/internal/errors"
	"github.com/civicline/civicline-api/internal/ports"
)

// ComplaintServiceOptions groups dependencies for ComplaintService.
type ComplaintServiceOptions struct {
	Repo      core.ComplaintRepository // Required: complaint persistence
	Accounts  ports.CredentialStore    // Required: assignee lookup
	Publisher ports.EventPublisher     // Optional: relay fan-out
	Logger    *slog.Logger             // Optional: structured logger
	Clock     func() time.Time         // Optional: defaults to time.Now
}

// ComplaintService applies ownership rules to complaint operations.
type ComplaintService struct {
	repo      core.ComplaintRepository
	accounts  ports.CredentialStore
	publisher ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewComplaintService constructs a new ComplaintService.
func NewComplaintService(opts ComplaintServiceOptions) (*ComplaintService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ComplaintRepository is required")
	}
	if opts.Accounts == nil {
		return nil, errors.New("CredentialStore is required")
	}
	logger := slog.Default()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &ComplaintService{
		repo:      opts.Repo,
		accounts:  opts.Accounts,
		publisher: opts.Publisher,
		logger:    logger.With("component", "complaint_service"),
		now:       now,
	}, nil
}

// Create files a complaint owned by the caller.
func (s *ComplaintService) Create(ctx context.Context, actor domainauth.Snapshot, req model.CreateComplaintRequest) (*model.Complaint, error) {
	if actor.Role != domainauth.RoleCitizen {
		return nil, domainauth.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, model.NewComplaint{
		UserID:       actor.ID,
		DepartmentID: req.DepartmentID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
	})
	if err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	s.publish(ctx, model.EventComplaintCreated, c, nil)
	return c, nil
}

// Get returns a complaint the caller may see.
func (s *ComplaintService) Get(ctx context.Context, actor domainauth.Snapshot, id int64) (*model.Complaint, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	if !CanAccessResource(actor, c.UserID, c.AssignedTo) {
		return nil, domainauth.ErrForbidden
	}
	return c, nil
}

// List returns one page of the complaints visible to the caller along with
// the unpaged total.
func (s *ComplaintService) List(ctx context.Context, actor domainauth.Snapshot, opts model.ComplaintListOptions) (*model.ComplaintPage, error) {
	ScopeComplaints(actor, &opts)
	opts.Normalize()

	var (
		items []*model.Complaint
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.List(gctx, opts)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	if items == nil {
		items = []*model.Complaint{}
	}
	return &model.ComplaintPage{Items: items, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// UpdateStatus moves a complaint through its lifecycle. Only the assignee or
// an administrator may do so.
func (s *ComplaintService) UpdateStatus(
	ctx context.Context,
	actor domainauth.Snapshot,
	id int64,
	req model.UpdateComplaintStatusRequest,
) (*model.Complaint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != domainauth.RoleAdmin && actor.Role != domainauth.RoleStaff {
		return nil, domainauth.ErrForbidden
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	if !CanAccessResource(actor, c.UserID, c.AssignedTo) {
		return nil, domainauth.ErrForbidden
	}
	if !model.CanTransition(c.Status, req.Status, actor.Role) {
		return nil, apperrors.ValidationField("status",
			fmt.Sprintf("cannot change status from %s to %s", c.Status, req.Status))
	}

	from := c.Status
	updated, err := s.repo.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return nil, fmt.Errorf("update complaint status: %w", err)
	}
	s.logger.InfoContext(ctx, "complaint status changed",
		"complaint_id", id,
		"from", from,
		"to", updated.Status,
		"actor_id", actor.ID,
	)
	s.publish(ctx, model.EventComplaintStatusChanged, updated, map[string]any{
		"from": from,
		"to":   updated.Status,
	})
	return updated, nil
}

// Assign gives a complaint to an active staff member.
func (s *ComplaintService) Assign(
	ctx context.Context,
	actor domainauth.Snapshot,
	id int64,
	req model.AssignComplaintRequest,
) (*model.Complaint, error) {
	if actor.Role != domainauth.RoleAdmin {
		return nil, domainauth.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	assignee, err := s.accounts.FindByID(ctx, req.AssigneeID)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.ValidationField("assignee_id", "assignee does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("find assignee: %w", err)
	}
	if assignee.Role != domainauth.RoleStaff || !assignee.IsActive() {
		return nil, apperrors.ValidationField("assignee_id", "assignee must be an active staff member")
	}

	updated, err := s.repo.Assign(ctx, id, assignee.ID)
	if err != nil {
		return nil, fmt.Errorf("assign complaint: %w", err)
	}
	s.logger.InfoContext(ctx, "complaint assigned", "complaint_id", id, "assignee_id", assignee.ID, "actor_id", actor.ID)
	s.publish(ctx, model.EventComplaintAssigned, updated, map[string]any{"assignee_id": assignee.ID})
	return updated, nil
}

func (s *ComplaintService) publish(ctx context.Context, eventType string, c *model.Complaint, data map[string]any) {
	if s.publisher == nil {
		return
	}
	recipients := []int64{c.UserID}
	if c.AssignedTo != nil && *c.AssignedTo != c.UserID {
		recipients = append(recipients, *c.AssignedTo)
	}
	s.publisher.Publish(ctx, model.RelayEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: c.ID,
		UserIDs:     recipients,
		OccurredAt:  s.now().UTC(),
		Data:        data,
	})
}
