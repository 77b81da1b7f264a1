package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	apperrors "github.com/civicline/civicline-api/internal/errors"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/ports"
)

// Auth attempt outcomes recorded as metric labels.
const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeLimited   = "limited"
	outcomeDuplicate = "duplicate"
	outcomeInvalid   = "invalid"
	outcomeError     = "error"
)

// AuthSecurity groups the credential primitives used by AuthService.
type AuthSecurity struct {
	Hasher ports.PasswordHasher // Required: password hashing
	Codec  ports.TokenCodec     // Required: token issuing
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Accounts ports.CredentialStore // Required: account lookup and insert
	Security AuthSecurity          // Required: hasher and codec
	Limiter  *RateLimitService     // Required: login and register throttling
	Logger   *slog.Logger          // Optional: structured logger
	Metrics  *metrics.Registry     // Optional: attempt counters
	Clock    func() time.Time      // Optional: defaults to time.Now
}

// AuthService implements password login, self-registration and password changes.
type AuthService struct {
	accounts ports.CredentialStore
	hasher   ports.PasswordHasher
	codec    ports.TokenCodec
	limiter  *RateLimitService
	logger   *slog.Logger
	metrics  *metrics.Registry
	now      func() time.Time

	// dummyHash is compared against when no account matches so that unknown
	// emails cost one bcrypt comparison like known ones.
	dummyHash string
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	switch {
	case opts.Accounts == nil:
		return nil, errors.New("CredentialStore is required")
	case opts.Security.Hasher == nil:
		return nil, errors.New("PasswordHasher is required")
	case opts.Security.Codec == nil:
		return nil, errors.New("TokenCodec is required")
	case opts.Limiter == nil:
		return nil, errors.New("RateLimitService is required")
	}

	dummy, err := opts.Security.Hasher.Hash("civicline-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	logger := slog.Default()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		accounts:  opts.Accounts,
		hasher:    opts.Security.Hasher,
		codec:     opts.Security.Codec,
		limiter:   opts.Limiter,
		logger:    logger.With("component", "auth_service"),
		metrics:   opts.Metrics,
		now:       now,
		dummyHash: dummy,
	}, nil
}

// LoginInput groups parameters for a login attempt.
type LoginInput struct {
	Request  model.LoginRequest
	SourceIP string
}

// LoginResult contains the issued token and the authenticated user.
type LoginResult struct {
	Token domainauth.IssuedToken
	User  *model.User
}

// Login verifies credentials and issues a token.
//
// The limiter is consulted before the account store: a limited caller gets a
// *ratelimit.LimitedError without any lookup. Unknown email, wrong password
// and inactive account all return ErrInvalidCredentials and each counts as a
// failure. A successful login clears the caller's failures.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	req := in.Request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	policy := s.limiter.LoginPolicy()
	if err := s.limiter.Guard(ctx, policy, in.SourceIP, now); err != nil {
		s.metrics.AuthAttempt(ratelimit.EndpointLogin, outcomeLimited)
		return nil, err
	}

	acc, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		s.metrics.AuthAttempt(ratelimit.EndpointLogin, outcomeError)
		s.metrics.StoreError("find_account", err)
		return nil, fmt.Errorf("find account: %w", errors.Join(domainauth.ErrStoreUnavailable, err))
	}

	hash := s.dummyHash
	if acc != nil {
		hash = acc.PasswordHash
	}
	passwordOK := s.hasher.Verify(req.Password, hash)

	if acc == nil || !passwordOK || !acc.IsActive() {
		var userID *int64
		if acc != nil {
			userID = &acc.ID
		}
		s.limiter.Record(ctx, policy, Attempt{Subject: in.SourceIP, SourceIP: in.SourceIP, UserID: userID}, now)
		s.metrics.AuthAttempt(ratelimit.EndpointLogin, outcomeFailure)
		if acc != nil && passwordOK {
			s.logger.InfoContext(ctx, "login rejected for inactive account", "user_id", acc.ID)
		}
		return nil, domainauth.ErrInvalidCredentials
	}

	s.limiter.Clear(ctx, policy, in.SourceIP)
	s.upgradeHash(ctx, acc, req.Password)

	token, err := s.codec.Issue(acc.Snapshot(), now)
	if err != nil {
		s.metrics.AuthAttempt(ratelimit.EndpointLogin, outcomeError)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.AuthAttempt(ratelimit.EndpointLogin, outcomeSuccess)
	s.logger.InfoContext(ctx, "user logged in", "user_id", acc.ID, "role", acc.Role)
	return &LoginResult{Token: token, User: model.UserFromAccount(acc)}, nil
}

// upgradeHash rehashes a verified password stored at an outdated cost.
// Failures are logged; the login still succeeds.
func (s *AuthService) upgradeHash(ctx context.Context, acc *domainauth.Account, password string) {
	if !s.hasher.NeedsUpgrade(acc.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, acc.ID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to upgrade password hash", "user_id", acc.ID, "error", err)
		return
	}
	acc.PasswordHash = hash
	s.logger.DebugContext(ctx, "password hash upgraded", "user_id", acc.ID)
}

// RegisterInput groups parameters for a self-registration.
type RegisterInput struct {
	Request  model.RegisterRequest
	SourceIP string
}

// RegisterResult reports whether a new account was created. Callers must
// answer identically whether or not Created is set.
type RegisterResult struct {
	Created bool
	User    *model.User
}

// Register creates a citizen account. Every attempt, successful or not,
// counts against the register policy. A duplicate email is not an error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	now := s.now()
	policy := s.limiter.RegisterPolicy()
	subject := s.limiter.RegisterSubject(in.SourceIP)
	if err := s.limiter.Guard(ctx, policy, subject, now); err != nil {
		s.metrics.AuthAttempt(ratelimit.EndpointRegister, outcomeLimited)
		return nil, err
	}
	s.limiter.Record(ctx, policy, Attempt{Subject: subject, SourceIP: in.SourceIP}, now)

	req := in.Request
	if err := req.Validate(); err != nil {
		s.metrics.AuthAttempt(ratelimit.EndpointRegister, outcomeInvalid)
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.metrics.AuthAttempt(ratelimit.EndpointRegister, outcomeError)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.accounts.Insert(ctx, domainauth.NewAccount{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domainauth.RoleCitizen,
	})
	if apperrors.IsConflict(err) {
		s.metrics.AuthAttempt(ratelimit.EndpointRegister, outcomeDuplicate)
		s.logger.InfoContext(ctx, "registration for existing email ignored")
		return &RegisterResult{}, nil
	}
	if err != nil {
		s.metrics.AuthAttempt(ratelimit.EndpointRegister, outcomeError)
		s.metrics.StoreError("insert_account", err)
		return nil, fmt.Errorf("insert account: %w", err)
	}

	s.metrics.AuthAttempt(ratelimit.EndpointRegister, outcomeSuccess)
	s.logger.InfoContext(ctx, "citizen registered", "user_id", id)
	return &RegisterResult{
		Created: true,
		User: &model.User{
			ID:       id,
			FullName: req.FullName,
			Email:    req.Email,
			Role:     domainauth.RoleCitizen,
			Status:   domainauth.StatusActive,
		},
	}, nil
}

// CurrentUser loads the live account behind a token identity.
func (s *AuthService) CurrentUser(ctx context.Context, identity domainauth.Snapshot) (*model.User, error) {
	acc, err := s.accounts.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return model.UserFromAccount(acc), nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, identity domainauth.Snapshot, req model.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	acc, err := s.accounts.FindByID(ctx, identity.ID)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if !s.hasher.Verify(req.CurrentPassword, acc.PasswordHash) {
		return apperrors.ValidationField("current_password", "current password is incorrect")
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, acc.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", acc.ID)
	return nil
}
