package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	apperrors "github.com/civicline/civicline-api/internal/errors"
	"github.com/civicline/civicline-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AccountAdminStore = (*MemoryAccountStore)(nil)
	_ ports.RateLimitStore    = (*MemoryRateLimitStore)(nil)
	_ ports.EventPublisher    = (*RecordingPublisher)(nil)
)

// MemoryAccountStore is an in-memory credential store. Set FindByEmailFunc
// to inject failures.
type MemoryAccountStore struct {
	FindByEmailFunc func(ctx context.Context, email string) (*domainauth.Account, error)
	// UpdateErr makes UpdateAccount fail without writing.
	UpdateErr error

	mu       sync.Mutex
	accounts map[int64]domainauth.Account
	nextID   int64
	lookups  int
	now      func() time.Time
}

// NewMemoryAccountStore creates an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[int64]domainauth.Account), nextID: 1, now: time.Now}
}

// Seed stores acc as-is, keeping its ID when set.
func (m *MemoryAccountStore) Seed(acc *domainauth.Account) *domainauth.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := *acc
	if a.ID == 0 {
		a.ID = m.nextID
	}
	if a.Status == "" {
		a.Status = domainauth.StatusActive
	}
	a.Email = domainauth.NormalizeEmail(a.Email)
	m.accounts[a.ID] = a
	m.nextID = max(m.nextID, a.ID+1)
	return &a
}

// EmailLookups reports how many FindByEmail calls reached the store.
func (m *MemoryAccountStore) EmailLookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

// FindByEmail implements ports.CredentialStore.
func (m *MemoryAccountStore) FindByEmail(ctx context.Context, email string) (*domainauth.Account, error) {
	m.mu.Lock()
	m.lookups++
	fn := m.FindByEmailFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	email = domainauth.NormalizeEmail(email)
	for _, a := range m.accounts {
		if a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, nil //nolint:nilnil // absence is not an error for credential lookups
}

// FindByID implements ports.CredentialStore.
func (m *MemoryAccountStore) FindByID(_ context.Context, id int64) (*domainauth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperrors.NotFoundf("user %d not found", id)
	}
	return &a, nil
}

// Insert implements ports.CredentialStore.
func (m *MemoryAccountStore) Insert(_ context.Context, acc domainauth.NewAccount) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := domainauth.NormalizeEmail(acc.Email)
	for _, a := range m.accounts {
		if a.Email == email {
			return 0, &apperrors.AppError{Code: apperrors.ErrCodeConflict, Message: "This value already exists.", Field: "email"}
		}
	}
	role := acc.Role
	if role == "" {
		role = domainauth.RoleCitizen
	}
	now := m.now()
	id := m.nextID
	m.nextID++
	m.accounts[id] = domainauth.Account{
		ID:           id,
		FullName:     acc.FullName,
		Email:        email,
		PasswordHash: acc.PasswordHash,
		Role:         role,
		DepartmentID: acc.DepartmentID,
		Status:       domainauth.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return id, nil
}

// List implements ports.AccountAdminStore.
func (m *MemoryAccountStore) List(_ context.Context, opts model.UserListOptions) ([]*domainauth.Account, error) {
	opts.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []*domainauth.Account
	for _, id := range ids {
		a := m.accounts[id]
		if opts.Role != nil && a.Role != *opts.Role {
			continue
		}
		if opts.Status != nil && a.Status != *opts.Status {
			continue
		}
		out = append(out, &a)
	}
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryAccountStore) update(id int64, fn func(*domainauth.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return apperrors.NotFoundf("user %d not found", id)
	}
	fn(&a)
	a.UpdatedAt = m.now()
	m.accounts[id] = a
	return nil
}

// UpdatePasswordHash implements ports.CredentialStore.
func (m *MemoryAccountStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return m.update(id, func(a *domainauth.Account) { a.PasswordHash = hash })
}

// UpdateAccount implements ports.AccountAdminStore. When UpdateErr is set
// the call fails and the account is left unchanged.
func (m *MemoryAccountStore) UpdateAccount(_ context.Context, id int64, upd domainauth.AccountUpdate) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	return m.update(id, func(a *domainauth.Account) {
		if upd.Role != nil {
			a.Role = *upd.Role
		}
		if upd.Status != nil {
			a.Status = *upd.Status
		}
		if upd.DepartmentID != nil {
			a.DepartmentID = upd.DepartmentID
		}
	})
}

// MemoryRateLimitStore is an in-memory sliding-window store. When Err is set
// every operation fails with it.
type MemoryRateLimitStore struct {
	Err error

	mu      sync.Mutex
	entries map[string][]ratelimit.Entry
}

// NewMemoryRateLimitStore creates an empty store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{entries: make(map[string][]ratelimit.Entry)}
}

// Count returns the number of stored entries for key.
func (m *MemoryRateLimitStore) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[key])
}

// Window implements ports.RateLimitStore.
func (m *MemoryRateLimitStore) Window(_ context.Context, key string, since time.Time) (ratelimit.Window, error) {
	if m.Err != nil {
		return ratelimit.Window{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[key][:0]
	for _, e := range m.entries[key] {
		if !e.CreatedAt.Before(since) {
			kept = append(kept, e)
		}
	}
	m.entries[key] = kept
	if len(kept) == 0 {
		return ratelimit.Window{}, nil
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].CreatedAt.Before(kept[j].CreatedAt) })
	return ratelimit.Window{Count: len(kept), Oldest: kept[0].CreatedAt}, nil
}

// Append implements ports.RateLimitStore.
func (m *MemoryRateLimitStore) Append(_ context.Context, entry ratelimit.Entry) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key] = append(m.entries[entry.Key], entry)
	return nil
}

// DeleteKey implements ports.RateLimitStore.
func (m *MemoryRateLimitStore) DeleteKey(_ context.Context, key string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// PurgeBefore implements ports.RateLimitStore.
func (m *MemoryRateLimitStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, list := range m.entries {
		kept := list[:0]
		for _, e := range list {
			if e.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(m.entries, key)
		} else {
			m.entries[key] = kept
		}
	}
	return removed, nil
}

// RecordingPublisher captures published events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []model.RelayEvent
}

// Publish implements ports.EventPublisher.
func (p *RecordingPublisher) Publish(_ context.Context, event model.RelayEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []model.RelayEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}
