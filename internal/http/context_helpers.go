package httpx

import (
	"context"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
)

// Unexported context key types avoid collisions across packages.
type (
	identityKey  struct{}
	requestIDKey struct{}
)

// SetIdentityInContext returns a child context that carries the verified identity.
func SetIdentityInContext(ctx context.Context, identity domainauth.Snapshot) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity placed by Gateway.Require.
func IdentityFromContext(ctx context.Context) (domainauth.Snapshot, bool) {
	identity, ok := ctx.Value(identityKey{}).(domainauth.Snapshot)
	return identity, ok
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
