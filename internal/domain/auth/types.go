// Package auth contains domain-level types for identities, tokens and
// authorization decisions. It is pure and free of framework/adapter concerns.
package auth

import (
	"slices"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and token claims.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleCitizen Role = "citizen"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCitizen:
		return true
	default:
		return false
	}
}

// AllRoles lists every role, used by endpoints open to any authenticated caller.
func AllRoles() []Role { return []Role{RoleAdmin, RoleStaff, RoleCitizen} }

// Status is the account lifecycle state. Accounts are never hard-deleted.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive }

// NormalizeEmail case-folds and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Account is the stored identity record, including its password hash.
type Account struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	DepartmentID *int64
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account may authenticate.
func (a Account) IsActive() bool { return a.Status == StatusActive }

// Snapshot returns the point-in-time identity embedded in tokens.
func (a Account) Snapshot() Snapshot {
	return Snapshot{
		ID:           a.ID,
		Name:         a.FullName,
		Email:        a.Email,
		Role:         a.Role,
		DepartmentID: a.DepartmentID,
	}
}

// NewAccount carries the fields needed to insert an identity.
type NewAccount struct {
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	DepartmentID *int64
}

// AccountUpdate lists administrative changes to one account. Nil fields are
// left unchanged and all set fields are written together.
type AccountUpdate struct {
	Role         *Role
	Status       *Status
	DepartmentID *int64
}

// Snapshot is the identity carried inside a signed token. It is not a live
// reference: role changes take effect only after re-authentication.
type Snapshot struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// HasRole reports whether the snapshot's role is in allowed.
func (s Snapshot) HasRole(allowed ...Role) bool {
	return slices.Contains(allowed, s.Role)
}

// IssuedToken is a freshly signed token and its expiry.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// DenialReason distinguishes why a request was rejected.
type DenialReason string

const (
	ReasonNone            DenialReason = ""
	ReasonUnauthenticated DenialReason = "unauthenticated"
	ReasonForbidden       DenialReason = "forbidden"
)

// Decision is the ephemeral outcome of authorizing one request.
type Decision struct {
	Allowed  bool
	Identity Snapshot
	Reason   DenialReason
	// Err is the underlying verification failure for unauthenticated decisions.
	Err error
}
