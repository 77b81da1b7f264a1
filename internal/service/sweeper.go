package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/ports"
)

// RateLimitSweeperOptions groups dependencies for RateLimitSweeper.
type RateLimitSweeperOptions struct {
	Store   ports.RateLimitStore   // Required: rate limit entry store
	Config  config.RateLimitConfig // Required: sweep interval and retention
	Logger  *slog.Logger           // Optional: structured logger
	Metrics *metrics.Registry      // Optional: sweep counters
	Clock   func() time.Time       // Optional: defaults to time.Now
}

// RateLimitSweeper deletes rate limit entries older than the retention
// period. Entries outside every window never affect a decision, so the
// sweeper only bounds storage growth.
type RateLimitSweeper struct {
	store     ports.RateLimitStore
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

// NewRateLimitSweeper constructs a new RateLimitSweeper.
func NewRateLimitSweeper(opts RateLimitSweeperOptions) (*RateLimitSweeper, error) {
	if opts.Store == nil {
		return nil, errors.New("RateLimitStore is required")
	}
	cfg := opts.Config
	cfg.Sanitize()

	logger := slog.Default()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	logger = logger.With("component", "ratelimit_sweeper")
	logger.Debug("RateLimitSweeper initialized",
		"interval", cfg.SweepInterval,
		"retention", cfg.SweepRetention,
	)

	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &RateLimitSweeper{
		store:     opts.Store,
		interval:  cfg.SweepInterval,
		retention: cfg.SweepRetention,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
	}, nil
}

// Run sweeps at the configured interval until ctx is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *RateLimitSweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting rate limit sweeper", "interval", s.interval)

	// Jitter spreads sweeps from instances started together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "rate limit sweeper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logSweepError(err, "sweep")
			}
		}
	}
}

// SweepOnce deletes every entry older than now minus retention and returns
// the number removed.
func (s *RateLimitSweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	removed, err := s.store.PurgeBefore(ctx, cutoff)
	s.metrics.SweepCompleted(removed, suppressContextCancellation(err))
	if err != nil {
		return removed, fmt.Errorf("purge rate limit entries: %w", err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "purged stale rate limit entries",
			"count", removed,
			"cutoff", cutoff,
		)
	}
	return removed, nil
}

// waitWithJitter sleeps a random delay up to 10% of the interval.
func (s *RateLimitSweeper) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *RateLimitSweeper) logSweepError(err error, label string) {
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
