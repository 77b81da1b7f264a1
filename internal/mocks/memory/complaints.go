// Package memory holds in-memory repository doubles used by handler and
// end-to-end tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/civicline/civicline-api/internal/core"
	"github.com/civicline/civicline-api/internal/domain/model"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

var _ core.ComplaintRepository = (*ComplaintRepo)(nil)

// ComplaintRepo is an in-memory core.ComplaintRepository.
type ComplaintRepo struct {
	mu     sync.Mutex
	items  map[int64]model.Complaint
	nextID int64
	Now    func() time.Time
}

// NewComplaintRepo creates an empty repository.
func NewComplaintRepo() *ComplaintRepo {
	return &ComplaintRepo{items: make(map[int64]model.Complaint), nextID: 1, Now: time.Now}
}

// Seed stores c as-is.
func (r *ComplaintRepo) Seed(c *model.Complaint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = *c
	r.nextID = max(r.nextID, c.ID+1)
}

// Create implements core.ComplaintRepository.
func (r *ComplaintRepo) Create(_ context.Context, nc model.NewComplaint) (*model.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	c := model.Complaint{
		ID:           r.nextID,
		UserID:       nc.UserID,
		DepartmentID: nc.DepartmentID,
		Title:        nc.Title,
		Description:  nc.Description,
		Category:     nc.Category,
		Status:       model.ComplaintStatusOpen,
		Priority:     nc.Priority,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.nextID++
	r.items[c.ID] = c
	return &c, nil
}

// GetByID implements core.ComplaintRepository.
func (r *ComplaintRepo) GetByID(_ context.Context, id int64) (*model.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFoundf("complaint %d not found", id)
	}
	return &c, nil
}

func (r *ComplaintRepo) filtered(opts model.ComplaintListOptions) []*model.Complaint {
	var out []*model.Complaint
	for _, c := range r.items {
		switch {
		case opts.Status != nil && c.Status != *opts.Status,
			opts.DepartmentID != nil && (c.DepartmentID == nil || *c.DepartmentID != *opts.DepartmentID),
			opts.OwnerID != nil && c.UserID != *opts.OwnerID,
			opts.AssigneeID != nil && (c.AssignedTo == nil || *c.AssignedTo != *opts.AssigneeID):
			continue
		}
		item := c
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// List implements core.ComplaintRepository.
func (r *ComplaintRepo) List(_ context.Context, opts model.ComplaintListOptions) ([]*model.Complaint, error) {
	opts.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filtered(opts)
	if opts.Offset >= len(out) {
		return []*model.Complaint{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Count implements core.ComplaintRepository.
func (r *ComplaintRepo) Count(_ context.Context, opts model.ComplaintListOptions) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filtered(opts)), nil
}

func (r *ComplaintRepo) update(id int64, fn func(*model.Complaint)) (*model.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFoundf("complaint %d not found", id)
	}
	fn(&c)
	c.UpdatedAt = r.Now()
	r.items[id] = c
	return &c, nil
}

// UpdateStatus implements core.ComplaintRepository.
func (r *ComplaintRepo) UpdateStatus(_ context.Context, id int64, status model.ComplaintStatus) (*model.Complaint, error) {
	return r.update(id, func(c *model.Complaint) { c.Status = status })
}

// Assign implements core.ComplaintRepository.
func (r *ComplaintRepo) Assign(_ context.Context, id, assigneeID int64) (*model.Complaint, error) {
	return r.update(id, func(c *model.Complaint) { c.AssignedTo = &assigneeID })
}
