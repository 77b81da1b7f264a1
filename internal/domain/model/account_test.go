package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicline/civicline-api/internal/domain/auth"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

func TestRegisterRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       RegisterRequest
		wantField string
	}{
		{name: "valid", req: RegisterRequest{FullName: "Ana Ruiz", Email: " Ana@Example.org ", Password: "correct horse"}},
		{name: "missing name", req: RegisterRequest{Email: "a@b.org", Password: "longenough"}, wantField: "full_name"},
		{name: "bad email", req: RegisterRequest{FullName: "A", Email: "not-an-email", Password: "longenough"}, wantField: "email"},
		{name: "display-name email", req: RegisterRequest{FullName: "A", Email: "Ana <a@b.org>", Password: "longenough"}, wantField: "email"},
		{name: "short password", req: RegisterRequest{FullName: "A", Email: "a@b.org", Password: "short"}, wantField: "password"},
		{name: "password over bcrypt limit", req: RegisterRequest{FullName: "A", Email: "a@b.org", Password: strings.Repeat("p", 73)}, wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "ana@example.org", tt.req.Email)
				return
			}
			assert.Equal(t, tt.wantField, apperrors.GetField(err))
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	r := LoginRequest{Email: " USER@x.org", Password: "pw"}
	require.NoError(t, r.Validate())
	assert.Equal(t, "user@x.org", r.Email)

	empty := LoginRequest{Email: "user@x.org"}
	assert.True(t, apperrors.IsValidation(empty.Validate()))
}

func TestCreateStaffRequest_Validate(t *testing.T) {
	r := CreateStaffRequest{FullName: "Officer", Email: "o@city.gov", Password: "12345678"}
	require.NoError(t, r.Validate())
	assert.Equal(t, auth.RoleStaff, r.Role)

	citizen := CreateStaffRequest{FullName: "C", Email: "c@city.gov", Password: "12345678", Role: auth.RoleCitizen}
	assert.Equal(t, "role", apperrors.GetField(citizen.Validate()))
}

func TestUpdateUserRequest_Validate(t *testing.T) {
	assert.Error(t, (&UpdateUserRequest{}).Validate())

	bad := auth.Role("root")
	assert.Equal(t, "role", apperrors.GetField((&UpdateUserRequest{Role: &bad}).Validate()))

	inactive := auth.StatusInactive
	assert.NoError(t, (&UpdateUserRequest{Status: &inactive}).Validate())
}

func TestUserFromAccount(t *testing.T) {
	assert.Nil(t, UserFromAccount(nil))
	u := UserFromAccount(&auth.Account{ID: 3, Email: "x@y.z", PasswordHash: "secret", Role: auth.RoleCitizen, Status: auth.StatusActive})
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, auth.RoleCitizen, u.Role)
}
