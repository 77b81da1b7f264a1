//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/civicline/civicline-api/internal/domain/auth"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

const (
	maxNameLen       = 255
	minPasswordLen   = 8
	maxPasswordBytes = 72 // bcrypt ignores anything longer
	defaultUserLimit = 50
	maxUserListLimit = 200
	maxEmailLen      = 254
)

// User is the public view of an account. It never carries the password hash.
type User struct {
	ID           int64       `json:"id"`
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	Role         auth.Role   `json:"role"`
	DepartmentID *int64      `json:"department_id,omitempty"`
	Status       auth.Status `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// UserFromAccount strips credentials from a stored account.
func UserFromAccount(a *auth.Account) *User {
	if a == nil {
		return nil
	}
	return &User{
		ID:           a.ID,
		FullName:     a.FullName,
		Email:        a.Email,
		Role:         a.Role,
		DepartmentID: a.DepartmentID,
		Status:       a.Status,
		CreatedAt:    a.CreatedAt,
	}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks shape only; it never reveals whether an account exists.
func (r *LoginRequest) Validate() error {
	r.Email = auth.NormalizeEmail(r.Email)
	if r.Email == "" || r.Password == "" {
		return apperrors.Validation("email and password are required")
	}
	return nil
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate normalizes and validates a registration.
func (r *RegisterRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = auth.NormalizeEmail(r.Email)
	if err := validateName(r.FullName); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword("password", r.Password)
}

// ChangePasswordRequest is the body of POST /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate validates ChangePasswordRequest.
func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return apperrors.ValidationField("current_password", "current_password is required")
	}
	return ValidatePassword("new_password", r.NewPassword)
}

// CreateStaffRequest is the body of POST /api/admin/staff.
type CreateStaffRequest struct {
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	Role         auth.Role `json:"role,omitempty"`
	DepartmentID *int64    `json:"department_id,omitempty"`
}

// Validate validates CreateStaffRequest. Role defaults to staff; citizens
// are only created through registration.
func (r *CreateStaffRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = auth.NormalizeEmail(r.Email)
	if r.Role == "" {
		r.Role = auth.RoleStaff
	}
	if r.Role != auth.RoleStaff && r.Role != auth.RoleAdmin {
		return apperrors.ValidationField("role", "role must be staff or admin")
	}
	if err := validateName(r.FullName); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword("password", r.Password)
}

// UpdateUserRequest is the body of PATCH /api/admin/users/{id}.
type UpdateUserRequest struct {
	Role         *auth.Role   `json:"role,omitempty"`
	Status       *auth.Status `json:"status,omitempty"`
	DepartmentID *int64       `json:"department_id,omitempty"`
}

// Validate validates UpdateUserRequest.
func (r *UpdateUserRequest) Validate() error {
	if r.Role == nil && r.Status == nil && r.DepartmentID == nil {
		return apperrors.Validation("at least one of role, status or department_id is required")
	}
	if r.Role != nil && !r.Role.Valid() {
		return apperrors.ValidationField("role", "role must be admin, staff or citizen")
	}
	if r.Status != nil && !r.Status.Valid() {
		return apperrors.ValidationField("status", "status must be active or inactive")
	}
	return nil
}

// UserListOptions controls paging and filtering for listing users.
type UserListOptions struct {
	Limit  int
	Offset int
	Role   *auth.Role
	Status *auth.Status
}

// Normalize applies default and maximum page sizes.
func (o *UserListOptions) Normalize() {
	o.Limit, o.Offset = normalizePage(o.Limit, o.Offset, defaultUserLimit, maxUserListLimit)
}

// ValidatePassword enforces length bounds on a new password.
func ValidatePassword(field, pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return apperrors.ValidationField(field, field+" must be at least 8 characters")
	}
	if len(pw) > maxPasswordBytes {
		return apperrors.ValidationField(field, field+" cannot exceed 72 bytes")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperrors.ValidationField("full_name", "full_name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return apperrors.ValidationField("full_name", "full_name cannot exceed 255 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLen {
		return apperrors.ValidationField("email", "a valid email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.ValidationField("email", "a valid email is required")
	}
	return nil
}

func normalizePage(limit, offset, def, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
