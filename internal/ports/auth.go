package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
)

// CredentialStore reads and writes identity records. Every operation is a
// parameterized statement; implementations hold no logic beyond data access.
type CredentialStore interface {
	// FindByEmail returns nil, nil when no account matches the case-folded email.
	FindByEmail(ctx context.Context, email string) (*domainauth.Account, error)
	FindByID(ctx context.Context, id int64) (*domainauth.Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	Insert(ctx context.Context, acc domainauth.NewAccount) (int64, error)
}

// AccountAdminStore adds the administrative update path for accounts.
type AccountAdminStore interface {
	CredentialStore
	List(ctx context.Context, opts model.UserListOptions) ([]*domainauth.Account, error)
	// UpdateAccount applies every set field of upd in one write; a failure
	// leaves the account unchanged.
	UpdateAccount(ctx context.Context, id int64, upd domainauth.AccountUpdate) error
}

// PasswordHasher is a salted adaptive one-way hash.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	// NeedsUpgrade reports whether hash was produced with a weaker work factor
	// than currently configured.
	NeedsUpgrade(hash string) bool
}

// TokenCodec signs and verifies bearer tokens. It performs no I/O and never
// reads the wall clock; callers pass now.
type TokenCodec interface {
	Issue(identity domainauth.Snapshot, now time.Time) (domainauth.IssuedToken, error)
	Verify(token string, now time.Time) (domainauth.Snapshot, error)
}
