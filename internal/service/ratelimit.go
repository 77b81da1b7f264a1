package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/ports"
)

// RateLimitServiceOptions groups dependencies for RateLimitService.
type RateLimitServiceOptions struct {
	Store   ports.RateLimitStore   // Required: sliding-window entry store
	Config  config.RateLimitConfig // Required: per-endpoint limits
	Logger  *slog.Logger           // Optional: structured logger
	Metrics *metrics.Registry      // Optional: decision counters
}

// RateLimitService counts attempts per key over a trailing window.
//
// Store failures never block a caller: Check reports an allowed decision with
// FailedOpen set, and Record or Clear failures are logged and dropped.
type RateLimitService struct {
	store         ports.RateLimitStore
	login         ratelimit.Policy
	register      ratelimit.Policy
	registerScope config.RegisterScope
	logger        *slog.Logger
	metrics       *metrics.Registry
}

// Attempt identifies one request counted against a policy.
type Attempt struct {
	Subject  string
	SourceIP string
	UserID   *int64
}

// NewRateLimitService constructs a new RateLimitService.
func NewRateLimitService(opts RateLimitServiceOptions) (*RateLimitService, error) {
	if opts.Store == nil {
		return nil, errors.New("RateLimitStore is required")
	}
	cfg := opts.Config
	cfg.Sanitize()

	logger := slog.Default()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	logger = logger.With("component", "rate_limiter")

	return &RateLimitService{
		store: opts.Store,
		login: ratelimit.Policy{
			Endpoint:    ratelimit.EndpointLogin,
			Window:      cfg.LoginWindow,
			MaxAttempts: cfg.LoginMaxAttempts,
		},
		register: ratelimit.Policy{
			Endpoint:    ratelimit.EndpointRegister,
			Window:      cfg.RegisterWindow,
			MaxAttempts: cfg.RegisterMaxAttempts,
		},
		registerScope: cfg.RegisterScope,
		logger:        logger,
		metrics:       opts.Metrics,
	}, nil
}

// LoginPolicy returns the policy applied to failed logins.
func (s *RateLimitService) LoginPolicy() ratelimit.Policy { return s.login }

// RegisterPolicy returns the policy applied to registrations.
func (s *RateLimitService) RegisterPolicy() ratelimit.Policy { return s.register }

// RegisterSubject returns the bucket a registration from sourceIP is counted in.
func (s *RateLimitService) RegisterSubject(sourceIP string) string {
	if s.registerScope == config.RegisterScopeGlobal {
		return ratelimit.GlobalSubject
	}
	return sourceIP
}

// Check reports whether subject may make another attempt under p.
func (s *RateLimitService) Check(ctx context.Context, p ratelimit.Policy, subject string, now time.Time) ratelimit.Decision {
	key := ratelimit.Key(p.Endpoint, subject)
	w, err := s.store.Window(ctx, key, now.Add(-p.Window))
	if err != nil {
		s.metrics.StoreError("ratelimit_window", err)
		s.metrics.RateLimitDecision(p.Endpoint, metrics.DecisionFailedOpen)
		s.logger.WarnContext(ctx, "rate limit store unavailable, allowing request",
			"endpoint", p.Endpoint,
			"error", err,
		)
		return ratelimit.Decision{Allowed: true, Limit: p.MaxAttempts, Remaining: p.MaxAttempts, FailedOpen: true}
	}

	d := ratelimit.Decide(p, w, now)
	if d.Allowed {
		s.metrics.RateLimitDecision(p.Endpoint, metrics.DecisionAllowed)
	} else {
		s.metrics.RateLimitDecision(p.Endpoint, metrics.DecisionLimited)
		s.logger.InfoContext(ctx, "rate limit exceeded",
			"endpoint", p.Endpoint,
			"count", d.Count,
			"retry_after", d.RetryAfter,
		)
	}
	return d
}

// Guard runs Check and converts a denial into a *ratelimit.LimitedError.
func (s *RateLimitService) Guard(ctx context.Context, p ratelimit.Policy, subject string, now time.Time) error {
	d := s.Check(ctx, p, subject, now)
	if d.Allowed {
		return nil
	}
	return &ratelimit.LimitedError{Endpoint: p.Endpoint, RetryAfter: d.RetryAfter}
}

// Record appends one attempt under p.
func (s *RateLimitService) Record(ctx context.Context, p ratelimit.Policy, a Attempt, now time.Time) {
	entry := ratelimit.Entry{
		Key:       ratelimit.Key(p.Endpoint, a.Subject),
		Endpoint:  p.Endpoint,
		UserID:    a.UserID,
		SourceIP:  a.SourceIP,
		CreatedAt: now,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		s.metrics.StoreError("ratelimit_append", err)
		s.logger.WarnContext(ctx, "failed to record rate limit attempt",
			"endpoint", p.Endpoint,
			"error", err,
		)
	}
}

// Clear forgets every attempt counted for subject under p.
func (s *RateLimitService) Clear(ctx context.Context, p ratelimit.Policy, subject string) {
	if err := s.store.DeleteKey(ctx, ratelimit.Key(p.Endpoint, subject)); err != nil {
		s.metrics.StoreError("ratelimit_clear", err)
		s.logger.WarnContext(ctx, "failed to clear rate limit key",
			"endpoint", p.Endpoint,
			"error", err,
		)
	}
}
