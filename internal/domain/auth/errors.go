package auth

import "errors"

// Token verification failures. Each maps to Unauthenticated at the boundary.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("token signature mismatch")
	ErrTokenExpired   = errors.New("token expired")
)

// Authorization and authentication outcomes.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account inactive")
	ErrSelfDemotion       = errors.New("administrators cannot change their own role")
	ErrSelfDeactivation   = errors.New("administrators cannot deactivate their own account")
)

// ErrStoreUnavailable marks failures of a backing store.
var ErrStoreUnavailable = errors.New("store unavailable")

// IsTokenError reports whether err is any token verification failure.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrBadSignature) || errors.Is(err, ErrTokenExpired)
}
