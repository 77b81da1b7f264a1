package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	apperrors "github.com/civicline/civicline-api/internal/errors"
	"github.com/civicline/civicline-api/internal/mocks"
	mockauth "github.com/civicline/civicline-api/internal/mocks/auth"
	"github.com/civicline/civicline-api/internal/mocks/memory"
	tu "github.com/civicline/civicline-api/internal/testutil"
)

var (
	testAdmin    = domainauth.Snapshot{ID: 1, Role: domainauth.RoleAdmin}
	testStaff    = domainauth.Snapshot{ID: 2, Role: domainauth.RoleStaff}
	testStaff2   = domainauth.Snapshot{ID: 3, Role: domainauth.RoleStaff}
	testCitizen  = domainauth.Snapshot{ID: 10, Role: domainauth.RoleCitizen}
	otherCitizen = domainauth.Snapshot{ID: 11, Role: domainauth.RoleCitizen}
)

type complaintFixture struct {
	svc       *ComplaintService
	repo      *memory.ComplaintRepo
	accounts  *mockauth.MemoryAccountStore
	publisher *mockauth.RecordingPublisher
}

func newComplaintFixture(t *testing.T) *complaintFixture {
	t.Helper()
	f := &complaintFixture{
		repo:      memory.NewComplaintRepo(),
		accounts:  mockauth.NewMemoryAccountStore(),
		publisher: &mockauth.RecordingPublisher{},
	}
	f.repo.Now = tu.TestTime
	f.accounts.Seed(tu.NewAccount().WithID(1).WithEmail("admin@city.gov").WithRole(domainauth.RoleAdmin).Build())
	f.accounts.Seed(tu.NewAccount().WithID(2).WithEmail("staff@city.gov").WithRole(domainauth.RoleStaff).Build())
	f.accounts.Seed(tu.NewAccount().WithID(3).WithEmail("staff2@city.gov").WithRole(domainauth.RoleStaff).Inactive().Build())
	f.accounts.Seed(tu.NewAccount().WithID(10).WithEmail("cit@example.org").Build())

	svc, err := NewComplaintService(ComplaintServiceOptions{
		Repo:      f.repo,
		Accounts:  f.accounts,
		Publisher: f.publisher,
		Clock:     tu.TestTime,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewComplaintService_RequiresDependencies(t *testing.T) {
	_, err := NewComplaintService(ComplaintServiceOptions{Accounts: mockauth.NewMemoryAccountStore()})
	require.Error(t, err)
	_, err = NewComplaintService(ComplaintServiceOptions{Repo: memory.NewComplaintRepo()})
	require.Error(t, err)
}

func TestComplaintService_Create(t *testing.T) {
	f := newComplaintFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, testCitizen, model.CreateComplaintRequest{
		Title:       " Pothole ",
		Description: "Deep pothole on 3rd Ave",
		Category:    "Roads",
	})
	require.NoError(t, err)
	assert.Equal(t, testCitizen.ID, c.UserID)
	assert.Equal(t, model.ComplaintStatusOpen, c.Status)
	assert.Equal(t, model.PriorityMedium, c.Priority)
	assert.Equal(t, "Pothole", c.Title)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventComplaintCreated, events[0].Type)
	assert.Equal(t, []int64{testCitizen.ID}, events[0].UserIDs)

	_, err = f.svc.Create(ctx, testStaff, model.CreateComplaintRequest{Title: "x", Description: "y", Category: "z"})
	assert.ErrorIs(t, err, domainauth.ErrForbidden)

	_, err = f.svc.Create(ctx, testCitizen, model.CreateComplaintRequest{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestComplaintService_GetOwnership(t *testing.T) {
	f := newComplaintFixture(t)
	f.repo.Seed(tu.NewComplaint().WithID(5).OwnedBy(testCitizen.ID).AssignedTo(testStaff.ID).Build())
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   domainauth.Snapshot
		allowed bool
	}{
		{"owner", testCitizen, true},
		{"other citizen", otherCitizen, false},
		{"assignee", testStaff, true},
		{"other staff", testStaff2, false},
		{"admin", testAdmin, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.svc.Get(ctx, tt.actor, 5)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, int64(5), c.ID)
			} else {
				assert.ErrorIs(t, err, domainauth.ErrForbidden)
			}
		})
	}

	_, err := f.svc.Get(ctx, testAdmin, 404)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComplaintService_ListScoped(t *testing.T) {
	f := newComplaintFixture(t)
	f.repo.Seed(tu.NewComplaint().WithID(1).OwnedBy(testCitizen.ID).AssignedTo(testStaff.ID).Build())
	f.repo.Seed(tu.NewComplaint().WithID(2).OwnedBy(testCitizen.ID).Build())
	f.repo.Seed(tu.NewComplaint().WithID(3).OwnedBy(otherCitizen.ID).AssignedTo(testStaff.ID).Build())
	f.repo.Seed(tu.NewComplaint().WithID(4).OwnedBy(otherCitizen.ID).Build())
	ctx := context.Background()

	ids := func(p *model.ComplaintPage) []int64 {
		out := make([]int64, 0, len(p.Items))
		for _, c := range p.Items {
			out = append(out, c.ID)
		}
		return out
	}

	page, err := f.svc.List(ctx, testCitizen, model.ComplaintListOptions{OwnerID: tu.Int64Ptr(otherCitizen.ID)})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(page), "client owner filter cannot widen scope")
	assert.Equal(t, 2, page.Total)

	page, err = f.svc.List(ctx, testStaff, model.ComplaintListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(page))

	page, err = f.svc.List(ctx, testAdmin, model.ComplaintListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(page))
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Limit)

	page, err = f.svc.List(ctx, testStaff2, model.ComplaintListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestComplaintService_ListCountError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockComplaintRepository(ctrl)
	svc, err := NewComplaintService(ComplaintServiceOptions{Repo: repo, Accounts: mockauth.NewMemoryAccountStore()})
	require.NoError(t, err)

	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*model.Complaint{}, nil).AnyTimes()
	repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New("db down"))

	_, err = svc.List(context.Background(), testAdmin, model.ComplaintListOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list complaints")
}

func TestComplaintService_UpdateStatus(t *testing.T) {
	f := newComplaintFixture(t)
	f.repo.Seed(tu.NewComplaint().WithID(7).OwnedBy(testCitizen.ID).AssignedTo(testStaff.ID).Build())
	ctx := context.Background()
	to := func(s model.ComplaintStatus) model.UpdateComplaintStatusRequest {
		return model.UpdateComplaintStatusRequest{Status: s}
	}

	_, err := f.svc.UpdateStatus(ctx, testCitizen, 7, to(model.ComplaintStatusInProgress))
	assert.ErrorIs(t, err, domainauth.ErrForbidden, "owners cannot move their own complaint")

	_, err = f.svc.UpdateStatus(ctx, testStaff2, 7, to(model.ComplaintStatusInProgress))
	assert.ErrorIs(t, err, domainauth.ErrForbidden, "only the assignee")

	_, err = f.svc.UpdateStatus(ctx, testStaff, 7, to(model.ComplaintStatusResolved))
	assert.Equal(t, "status", apperrors.GetField(err), "open cannot jump to resolved")

	c, err := f.svc.UpdateStatus(ctx, testStaff, 7, to(model.ComplaintStatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusInProgress, c.Status)

	c, err = f.svc.UpdateStatus(ctx, testStaff, 7, to(model.ComplaintStatusResolved))
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusResolved, c.Status)

	_, err = f.svc.UpdateStatus(ctx, testStaff, 7, to(model.ComplaintStatusInProgress))
	assert.True(t, apperrors.IsValidation(err), "reopen is admin only")

	c, err = f.svc.UpdateStatus(ctx, testAdmin, 7, to(model.ComplaintStatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, model.ComplaintStatusInProgress, c.Status)

	events := f.publisher.Events()
	require.Len(t, events, 3)
	last := events[2]
	assert.Equal(t, model.EventComplaintStatusChanged, last.Type)
	assert.Equal(t, []int64{testCitizen.ID, testStaff.ID}, last.UserIDs)
	assert.Equal(t, model.ComplaintStatusResolved, last.Data["from"])
	assert.Equal(t, tu.TestTime(), last.OccurredAt)
	assert.NotEmpty(t, last.ID)

	_, err = f.svc.UpdateStatus(ctx, testAdmin, 7, model.UpdateComplaintStatusRequest{Status: "archived"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestComplaintService_Assign(t *testing.T) {
	f := newComplaintFixture(t)
	f.repo.Seed(tu.NewComplaint().WithID(8).OwnedBy(testCitizen.ID).Build())
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, testStaff, 8, model.AssignComplaintRequest{AssigneeID: 2})
	assert.ErrorIs(t, err, domainauth.ErrForbidden)

	_, err = f.svc.Assign(ctx, testAdmin, 8, model.AssignComplaintRequest{AssigneeID: 404})
	assert.Equal(t, "assignee_id", apperrors.GetField(err))

	_, err = f.svc.Assign(ctx, testAdmin, 8, model.AssignComplaintRequest{AssigneeID: 3})
	assert.Equal(t, "assignee_id", apperrors.GetField(err), "inactive staff")

	_, err = f.svc.Assign(ctx, testAdmin, 8, model.AssignComplaintRequest{AssigneeID: 10})
	assert.Equal(t, "assignee_id", apperrors.GetField(err), "citizens cannot be assigned")

	c, err := f.svc.Assign(ctx, testAdmin, 8, model.AssignComplaintRequest{AssigneeID: 2})
	require.NoError(t, err)
	require.NotNil(t, c.AssignedTo)
	assert.Equal(t, int64(2), *c.AssignedTo)

	got, err := f.svc.Get(ctx, testStaff, 8)
	require.NoError(t, err, "assignee gains access")
	assert.Equal(t, int64(8), got.ID)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventComplaintAssigned, events[0].Type)

	_, err = f.svc.Assign(ctx, testAdmin, 404, model.AssignComplaintRequest{AssigneeID: 2})
	assert.True(t, apperrors.IsNotFound(err))
}
