package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/mocks"
	tu "github.com/civicline/civicline-api/internal/testutil"
)

func TestNewAuthorizer_RequiresCodec(t *testing.T) {
	_, err := NewAuthorizer(nil)
	require.Error(t, err)
}

func TestAuthorizer_Authorize(t *testing.T) {
	now := tu.TestTime()
	staff := domainauth.Snapshot{ID: 7, Role: domainauth.RoleStaff}

	tests := []struct {
		name       string
		token      string
		allowed    []domainauth.Role
		setup      func(c *mocks.MockTokenCodec)
		wantAllow  bool
		wantReason domainauth.DenialReason
		wantErr    error
	}{
		{
			name:       "missing token",
			allowed:    domainauth.AllRoles(),
			wantReason: domainauth.ReasonUnauthenticated,
			wantErr:    domainauth.ErrUnauthenticated,
		},
		{
			name:    "expired token",
			token:   "t",
			allowed: domainauth.AllRoles(),
			setup: func(c *mocks.MockTokenCodec) {
				c.EXPECT().Verify("t", now).Return(domainauth.Snapshot{}, domainauth.ErrTokenExpired)
			},
			wantReason: domainauth.ReasonUnauthenticated,
			wantErr:    domainauth.ErrTokenExpired,
		},
		{
			name:    "tampered token",
			token:   "t",
			allowed: []domainauth.Role{domainauth.RoleAdmin},
			setup: func(c *mocks.MockTokenCodec) {
				c.EXPECT().Verify("t", now).Return(domainauth.Snapshot{}, domainauth.ErrBadSignature)
			},
			wantReason: domainauth.ReasonUnauthenticated,
			wantErr:    domainauth.ErrBadSignature,
		},
		{
			name:    "valid token wrong role",
			token:   "t",
			allowed: []domainauth.Role{domainauth.RoleAdmin},
			setup: func(c *mocks.MockTokenCodec) {
				c.EXPECT().Verify("t", now).Return(staff, nil)
			},
			wantReason: domainauth.ReasonForbidden,
			wantErr:    domainauth.ErrForbidden,
		},
		{
			name:    "valid token allowed role",
			token:   "t",
			allowed: []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleStaff},
			setup: func(c *mocks.MockTokenCodec) {
				c.EXPECT().Verify("t", now).Return(staff, nil)
			},
			wantAllow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			codec := mocks.NewMockTokenCodec(ctrl)
			if tt.setup != nil {
				tt.setup(codec)
			}
			a, err := NewAuthorizer(codec)
			require.NoError(t, err)

			d := a.Authorize(tt.token, tt.allowed, now)
			assert.Equal(t, tt.wantAllow, d.Allowed)
			assert.Equal(t, tt.wantReason, d.Reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, d.Err, tt.wantErr)
			} else {
				assert.NoError(t, d.Err)
				assert.Equal(t, staff, d.Identity)
			}
		})
	}
}

func TestAuthorizer_GrantsExactlyListedRoles(t *testing.T) {
	now := tu.TestTime()
	subsets := [][]domainauth.Role{
		{},
		{domainauth.RoleAdmin},
		{domainauth.RoleStaff},
		{domainauth.RoleCitizen},
		{domainauth.RoleAdmin, domainauth.RoleStaff},
		{domainauth.RoleStaff, domainauth.RoleCitizen},
		domainauth.AllRoles(),
	}
	for _, role := range domainauth.AllRoles() {
		for _, allowed := range subsets {
			ctrl := gomock.NewController(t)
			codec := mocks.NewMockTokenCodec(ctrl)
			codec.EXPECT().Verify("t", now).Return(domainauth.Snapshot{ID: 1, Role: role}, nil)
			a, err := NewAuthorizer(codec)
			require.NoError(t, err)

			d := a.Authorize("t", allowed, now)
			want := false
			for _, r := range allowed {
				want = want || r == role
			}
			assert.Equal(t, want, d.Allowed, "role %s allowed %v", role, allowed)
			if !want {
				assert.Equal(t, domainauth.ReasonForbidden, d.Reason)
			}
		}
	}
}

func TestCanAccessResource(t *testing.T) {
	admin := domainauth.Snapshot{ID: 1, Role: domainauth.RoleAdmin}
	staff := domainauth.Snapshot{ID: 2, Role: domainauth.RoleStaff}
	citizen := domainauth.Snapshot{ID: 3, Role: domainauth.RoleCitizen}

	tests := []struct {
		name     string
		identity domainauth.Snapshot
		owner    int64
		assignee *int64
		want     bool
	}{
		{"admin unassigned", admin, 3, nil, true},
		{"admin other assignee", admin, 3, tu.Int64Ptr(9), true},
		{"staff assignee", staff, 3, tu.Int64Ptr(2), true},
		{"staff not assignee", staff, 3, tu.Int64Ptr(9), false},
		{"staff unassigned", staff, 3, nil, false},
		{"staff owner but not assignee", staff, 2, tu.Int64Ptr(9), false},
		{"citizen owner", citizen, 3, nil, true},
		{"citizen owner with assignee", citizen, 3, tu.Int64Ptr(2), true},
		{"citizen not owner", citizen, 4, nil, false},
		{"citizen assignee but not owner", citizen, 4, tu.Int64Ptr(3), false},
		{"unknown role", domainauth.Snapshot{ID: 3, Role: "auditor"}, 3, tu.Int64Ptr(3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessResource(tt.identity, tt.owner, tt.assignee))
		})
	}
}

func TestScopeComplaints(t *testing.T) {
	opts := model.ComplaintListOptions{OwnerID: tu.Int64Ptr(99)}
	ScopeComplaints(domainauth.Snapshot{ID: 1, Role: domainauth.RoleAdmin}, &opts)
	assert.Nil(t, opts.OwnerID, "client supplied owner filter is dropped")
	assert.Nil(t, opts.AssigneeID)

	ScopeComplaints(domainauth.Snapshot{ID: 2, Role: domainauth.RoleStaff}, &opts)
	assert.Nil(t, opts.OwnerID)
	assert.Equal(t, int64(2), *opts.AssigneeID)

	ScopeComplaints(domainauth.Snapshot{ID: 3, Role: domainauth.RoleCitizen}, &opts)
	assert.Equal(t, int64(3), *opts.OwnerID)
	assert.Nil(t, opts.AssigneeID)
}

func TestGuardRoleChange(t *testing.T) {
	admin := domainauth.Snapshot{ID: 1, Role: domainauth.RoleAdmin}

	assert.ErrorIs(t, GuardRoleChange(admin, 1, domainauth.RoleStaff), domainauth.ErrSelfDemotion)
	assert.ErrorIs(t, GuardRoleChange(admin, 1, domainauth.RoleCitizen), domainauth.ErrSelfDemotion)
	assert.NoError(t, GuardRoleChange(admin, 1, domainauth.RoleAdmin))
	assert.NoError(t, GuardRoleChange(admin, 2, domainauth.RoleCitizen))
	assert.ErrorIs(t, GuardRoleChange(domainauth.Snapshot{ID: 2, Role: domainauth.RoleStaff}, 3, domainauth.RoleAdmin), domainauth.ErrForbidden)
}

func TestGuardStatusChange(t *testing.T) {
	admin := domainauth.Snapshot{ID: 1, Role: domainauth.RoleAdmin}

	assert.ErrorIs(t, GuardStatusChange(admin, 1, domainauth.StatusInactive), domainauth.ErrSelfDeactivation)
	assert.NoError(t, GuardStatusChange(admin, 1, domainauth.StatusActive))
	assert.NoError(t, GuardStatusChange(admin, 2, domainauth.StatusInactive))
	assert.ErrorIs(t, GuardStatusChange(domainauth.Snapshot{ID: 2, Role: domainauth.RoleCitizen}, 2, domainauth.StatusInactive), domainauth.ErrForbidden)
}
