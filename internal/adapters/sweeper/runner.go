// Package sweeper provides adapters for running the rate limit sweeper.
package sweeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/data"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/ports"
	"github.com/civicline/civicline-api/internal/service"
)

// Runner constructs the sweeper service and runs its loop.
type Runner struct {
	sweeper *service.RateLimitSweeper
	logger  *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.RateLimitConfig
	Logger *slog.Logger

	// Store overrides the Postgres store built from DB, e.g. for the Redis backend.
	Store   ports.RateLimitStore
	Metrics *metrics.Registry
}

// NewRunner creates a new sweeper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		store = data.NewRateLimitRepo(opts.DB)
	}

	sweeper, err := service.NewRateLimitSweeper(service.RateLimitSweeperOptions{
		Store:   store,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire sweeper service: %w", err)
	}

	return &Runner{sweeper: sweeper, logger: opts.Logger}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Store == nil {
		return errors.New("database connection or rate limit store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the sweeper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting rate limit sweeper runner")
	return r.sweeper.Run(ctx)
}

// SweepOnce runs a single pass, used by the operator CLI.
func (r *Runner) SweepOnce(ctx context.Context) (int64, error) {
	return r.sweeper.SweepOnce(ctx)
}
