package data

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicline/civicline-api/internal/domain/model"
	apperrors "github.com/civicline/civicline-api/internal/errors"
	"github.com/civicline/civicline-api/internal/testutil"
)

const complaintSelectCols = `SELECT "id", "user_id", "assigned_to", "department_id", "title", "description", "category", "status", "priority", "sla_due_at", "sla_breached", "created_at", "updated_at" FROM "complaints"`

func complaintRow(rows *sqlmock.Rows, id, owner int64, assigned any) *sqlmock.Rows {
	now := testutil.TestTime()
	return rows.AddRow(id, owner, assigned, nil, "Pothole", "Deep pothole on Main", "roads",
		"open", "high", now.Add(48*time.Hour), false, now, now)
}

func TestComplaintRepo_Create(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewComplaintRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(complaintInsertQuery)).
		WithArgs(int64(5), nil, "Pothole", "Deep pothole on Main", "roads", "medium").
		WillReturnRows(complaintRow(sqlmock.NewRows(complaintColumns), 1, 5, nil))

	c, err := repo.Create(context.Background(), model.NewComplaint{
		UserID: 5, Title: "Pothole", Description: "Deep pothole on Main", Category: "roads",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.UserID)
	assert.Nil(t, c.AssignedTo)
	require.NotNil(t, c.SLADueAt)
}

func TestComplaintRepo_CreateUnknownDepartment(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewComplaintRepo(db)
	dept := int64(404)

	mock.ExpectQuery(regexp.QuoteMeta(complaintInsertQuery)).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "complaints_department_id_fkey"})

	_, err := repo.Create(context.Background(), model.NewComplaint{UserID: 5, DepartmentID: &dept, Title: "t"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForeignKey, apperrors.GetCode(err))
}

func TestComplaintRepo_GetByID(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewComplaintRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(complaintGetByIDQuery)).WithArgs(int64(1)).
		WillReturnRows(complaintRow(sqlmock.NewRows(complaintColumns), 1, 5, int64(9)))
	mock.ExpectQuery(regexp.QuoteMeta(complaintGetByIDQuery)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(complaintColumns))

	c, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, c.AssignedTo)
	assert.Equal(t, int64(9), *c.AssignedTo)

	_, err = repo.GetByID(context.Background(), 2)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComplaintRepo_ListScopedToOwner(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewComplaintRepo(db)
	owner := int64(5)
	status := model.ComplaintStatusOpen

	mock.ExpectQuery(regexp.QuoteMeta(complaintSelectCols+
		` WHERE "status" = $1 AND "user_id" = $2 ORDER BY "created_at" DESC, "id" DESC LIMIT $3 OFFSET $4`)).
		WithArgs("open", owner, 20, 0).
		WillReturnRows(complaintRow(sqlmock.NewRows(complaintColumns), 1, 5, nil))

	out, err := repo.List(context.Background(), model.ComplaintListOptions{OwnerID: &owner, Status: &status})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestComplaintRepo_CountScopedToAssignee(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewComplaintRepo(db)
	assignee := int64(9)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "complaints" WHERE "assigned_to" = $1`)).
		WithArgs(assignee).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(context.Background(), model.ComplaintListOptions{AssigneeID: &assignee})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestComplaintRepo_UpdateStatusAndAssign(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewComplaintRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(complaintUpdateStatusQuery)).WithArgs(int64(1), "in_progress").
		WillReturnRows(complaintRow(sqlmock.NewRows(complaintColumns), 1, 5, nil))
	mock.ExpectQuery(regexp.QuoteMeta(complaintAssignQuery)).WithArgs(int64(1), int64(9)).
		WillReturnRows(complaintRow(sqlmock.NewRows(complaintColumns), 1, 5, int64(9)))
	mock.ExpectQuery(regexp.QuoteMeta(complaintAssignQuery)).WithArgs(int64(2), int64(9)).
		WillReturnError(errors.New("boom"))

	_, err := repo.UpdateStatus(ctx, 1, model.ComplaintStatusInProgress)
	require.NoError(t, err)

	c, err := repo.Assign(ctx, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), *c.AssignedTo)

	_, err = repo.Assign(ctx, 2, 9)
	assert.Error(t, err)
}
