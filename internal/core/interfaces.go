package core

import (
	"context"

	"github.com/civicline/civicline-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not concrete implementations.

// ComplaintRepository defines the interface for complaint data operations.
type ComplaintRepository interface {
	Create(ctx context.Context, c model.NewComplaint) (*model.Complaint, error)
	GetByID(ctx context.Context, id int64) (*model.Complaint, error)
	// List returns one page; OwnerID and AssigneeID in opts restrict visibility.
	List(ctx context.Context, opts model.ComplaintListOptions) ([]*model.Complaint, error)
	// Count returns the unpaged total for the same filters as List.
	Count(ctx context.Context, opts model.ComplaintListOptions) (int, error)
	UpdateStatus(ctx context.Context, id int64, status model.ComplaintStatus) (*model.Complaint, error)
	Assign(ctx context.Context, id, assigneeID int64) (*model.Complaint, error)
}
