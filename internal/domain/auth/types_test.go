package auth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Valid(t *testing.T) {
	for _, r := range AllRoles() {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusInactive.Valid())
	assert.False(t, Status("deleted").Valid())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@city.gov", NormalizeEmail("  Jane@City.GOV "))
}

func TestAccount_Snapshot(t *testing.T) {
	dept := int64(4)
	a := Account{
		ID:           9,
		FullName:     "Sam Officer",
		Email:        "sam@city.gov",
		PasswordHash: "$2a$...",
		Role:         RoleStaff,
		DepartmentID: &dept,
		Status:       StatusActive,
	}

	s := a.Snapshot()
	assert.Equal(t, Snapshot{ID: 9, Name: "Sam Officer", Email: "sam@city.gov", Role: RoleStaff, DepartmentID: &dept}, s)
	assert.True(t, a.IsActive())
}

func TestSnapshot_HasRole(t *testing.T) {
	s := Snapshot{Role: RoleCitizen}
	assert.True(t, s.HasRole(RoleCitizen, RoleAdmin))
	assert.False(t, s.HasRole(RoleStaff))
	assert.False(t, s.HasRole())
}

func TestIsTokenError(t *testing.T) {
	assert.True(t, IsTokenError(fmt.Errorf("verify: %w", ErrTokenExpired)))
	assert.True(t, IsTokenError(ErrBadSignature))
	assert.False(t, IsTokenError(ErrForbidden))
}
