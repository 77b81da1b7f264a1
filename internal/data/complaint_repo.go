package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civicline/civicline-api/internal/data/database"
	"github.com/civicline/civicline-api/internal/domain/model"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

var complaintColumns = []string{
	"id", "user_id", "assigned_to", "department_id", "title", "description", "category",
	"status", "priority", "sla_due_at", "sla_breached", "created_at", "updated_at",
}

const (
	complaintReturning = ` RETURNING id, user_id, assigned_to, department_id, title, description, category,
		status, priority, sla_due_at, sla_breached, created_at, updated_at`

	complaintInsertQuery = `
		INSERT INTO complaints (user_id, department_id, title, description, category, priority)
		VALUES ($1, $2, $3, $4, $5, $6)` + complaintReturning

	complaintGetByIDQuery = `SELECT id, user_id, assigned_to, department_id, title, description, category,
		status, priority, sla_due_at, sla_breached, created_at, updated_at
		FROM complaints WHERE id = $1`

	complaintUpdateStatusQuery = `UPDATE complaints SET status = $2, updated_at = now() WHERE id = $1` + complaintReturning
	complaintAssignQuery       = `UPDATE complaints SET assigned_to = $2, updated_at = now() WHERE id = $1` + complaintReturning
)

// ComplaintRepo provides database operations for complaints.
type ComplaintRepo struct {
	DB *sql.DB
}

// NewComplaintRepo creates a new ComplaintRepo.
func NewComplaintRepo(db *sql.DB) *ComplaintRepo {
	return &ComplaintRepo{DB: db}
}

func scanComplaint(row rowScanner) (*model.Complaint, error) {
	var (
		c        model.Complaint
		assigned sql.NullInt64
		dept     sql.NullInt64
		slaDue   sql.NullTime
	)
	if err := row.Scan(
		&c.ID, &c.UserID, &assigned, &dept, &c.Title, &c.Description, &c.Category,
		&c.Status, &c.Priority, &slaDue, &c.SLABreached, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if assigned.Valid {
		c.AssignedTo = &assigned.Int64
	}
	if dept.Valid {
		c.DepartmentID = &dept.Int64
	}
	if slaDue.Valid {
		c.SLADueAt = &slaDue.Time
	}
	return &c, nil
}

func (r *ComplaintRepo) one(ctx context.Context, id int64, query string, args ...any) (*model.Complaint, error) {
	c, err := scanComplaint(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("complaint %d not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return c, nil
}

// Create inserts a complaint in the open state.
func (r *ComplaintRepo) Create(ctx context.Context, nc model.NewComplaint) (*model.Complaint, error) {
	priority := nc.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	c, err := scanComplaint(r.DB.QueryRowContext(ctx, complaintInsertQuery,
		nc.UserID, nc.DepartmentID, nc.Title, nc.Description, nc.Category, string(priority),
	))
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return c, nil
}

// GetByID retrieves a complaint by ID.
func (r *ComplaintRepo) GetByID(ctx context.Context, id int64) (*model.Complaint, error) {
	return r.one(ctx, id, complaintGetByIDQuery, id)
}

// UpdateStatus sets the status and returns the updated row.
func (r *ComplaintRepo) UpdateStatus(
	ctx context.Context,
	id int64,
	status model.ComplaintStatus,
) (*model.Complaint, error) {
	return r.one(ctx, id, complaintUpdateStatusQuery, id, string(status))
}

// Assign sets the assignee and returns the updated row.
func (r *ComplaintRepo) Assign(ctx context.Context, id, assigneeID int64) (*model.Complaint, error) {
	return r.one(ctx, id, complaintAssignQuery, id, assigneeID)
}

func complaintFilters(opts model.ComplaintListOptions) []database.ListQueryOption {
	var out []database.ListQueryOption
	if opts.Status != nil {
		out = append(out, database.WithCondition(database.WhereCond("status", database.Equal, string(*opts.Status))))
	}
	if opts.DepartmentID != nil {
		out = append(out, database.WithCondition(database.WhereCond("department_id", database.Equal, *opts.DepartmentID)))
	}
	if opts.OwnerID != nil {
		out = append(out, database.WithCondition(database.WhereCond("user_id", database.Equal, *opts.OwnerID)))
	}
	if opts.AssigneeID != nil {
		out = append(out, database.WithCondition(database.WhereCond("assigned_to", database.Equal, *opts.AssigneeID)))
	}
	return out
}

// List returns one page, newest first.
func (r *ComplaintRepo) List(ctx context.Context, opts model.ComplaintListOptions) ([]*model.Complaint, error) {
	opts.Normalize()
	qopts := append([]database.ListQueryOption{
		database.WithColumns(complaintColumns...),
		database.WithOrderBy("DESC", "created_at", "id"),
		database.WithLimit(opts.Limit),
		database.WithOffset(opts.Offset),
	}, complaintFilters(opts)...)
	query, args := database.BuildListQuery(database.NewListQueryOptions("complaints", qopts...))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	out := make([]*model.Complaint, 0, opts.Limit)
	for rows.Next() {
		c, scanErr := scanComplaint(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan complaint: %w", scanErr)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list complaints: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Count returns the unpaged total matching the same filters as List.
func (r *ComplaintRepo) Count(ctx context.Context, opts model.ComplaintListOptions) (int, error) {
	qopts := append([]database.ListQueryOption{database.WithCountOnly()}, complaintFilters(opts)...)
	query, args := database.BuildListQuery(database.NewListQueryOptions("complaints", qopts...))

	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count complaints: %w", apperrors.MapDBError(err))
	}
	return n, nil
}
