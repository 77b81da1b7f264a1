package service

import (
	"errors"
	"time"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/ports"
)

// Authorizer turns a bearer token into an authorization decision and answers
// ownership questions for already authenticated identities.
type Authorizer struct {
	codec ports.TokenCodec
}

// NewAuthorizer constructs an Authorizer backed by codec.
func NewAuthorizer(codec ports.TokenCodec) (*Authorizer, error) {
	if codec == nil {
		return nil, errors.New("TokenCodec is required")
	}
	return &Authorizer{codec: codec}, nil
}

// Authorize verifies token and checks its role against allowed.
// A missing or unverifiable token is unauthenticated; a valid token whose
// role is not listed is forbidden.
func (a *Authorizer) Authorize(token string, allowed []domainauth.Role, now time.Time) domainauth.Decision {
	if token == "" {
		return domainauth.Decision{Reason: domainauth.ReasonUnauthenticated, Err: domainauth.ErrUnauthenticated}
	}
	identity, err := a.codec.Verify(token, now)
	if err != nil {
		return domainauth.Decision{Reason: domainauth.ReasonUnauthenticated, Err: err}
	}
	if !identity.HasRole(allowed...) {
		return domainauth.Decision{Identity: identity, Reason: domainauth.ReasonForbidden, Err: domainauth.ErrForbidden}
	}
	return domainauth.Decision{Allowed: true, Identity: identity}
}

// CanAccessResource reports whether identity may see a resource owned by
// ownerID and assigned to assigneeID. Admins see everything, staff see what
// is assigned to them and citizens see what they own.
func CanAccessResource(identity domainauth.Snapshot, ownerID int64, assigneeID *int64) bool {
	switch identity.Role {
	case domainauth.RoleAdmin:
		return true
	case domainauth.RoleStaff:
		return assigneeID != nil && *assigneeID == identity.ID
	case domainauth.RoleCitizen:
		return ownerID == identity.ID
	default:
		return false
	}
}

// ScopeComplaints restricts list options to what identity may see.
func ScopeComplaints(identity domainauth.Snapshot, opts *model.ComplaintListOptions) {
	opts.OwnerID, opts.AssigneeID = nil, nil
	id := identity.ID
	switch identity.Role {
	case domainauth.RoleAdmin:
	case domainauth.RoleStaff:
		opts.AssigneeID = &id
	default:
		opts.OwnerID = &id
	}
}

// GuardRoleChange rejects an administrator changing their own role.
func GuardRoleChange(actor domainauth.Snapshot, targetID int64, newRole domainauth.Role) error {
	if actor.Role != domainauth.RoleAdmin {
		return domainauth.ErrForbidden
	}
	if actor.ID == targetID && newRole != actor.Role {
		return domainauth.ErrSelfDemotion
	}
	return nil
}

// GuardStatusChange rejects an administrator deactivating their own account.
func GuardStatusChange(actor domainauth.Snapshot, targetID int64, newStatus domainauth.Status) error {
	if actor.Role != domainauth.RoleAdmin {
		return domainauth.ErrForbidden
	}
	if actor.ID == targetID && newStatus != domainauth.StatusActive {
		return domainauth.ErrSelfDeactivation
	}
	return nil
}
