package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	"github.com/civicline/civicline-api/internal/mocks"
	mockauth "github.com/civicline/civicline-api/internal/mocks/auth"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	tu "github.com/civicline/civicline-api/internal/testutil"
)

func sweeperConfig() config.RateLimitConfig {
	cfg := testRateLimitConfig()
	cfg.SweepInterval = time.Minute
	cfg.SweepRetention = 24 * time.Hour
	return cfg
}

func TestNewRateLimitSweeper(t *testing.T) {
	t.Run("returns error when store is nil", func(t *testing.T) {
		_, err := NewRateLimitSweeper(RateLimitSweeperOptions{Config: sweeperConfig()})
		require.Error(t, err)
	})

	t.Run("retention never shorter than the longest window", func(t *testing.T) {
		cfg := sweeperConfig()
		cfg.SweepRetention = time.Minute
		s, err := NewRateLimitSweeper(RateLimitSweeperOptions{Store: mockauth.NewMemoryRateLimitStore(), Config: cfg})
		require.NoError(t, err)
		assert.Equal(t, time.Hour, s.retention)
	})
}

func TestRateLimitSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	store := mockauth.NewMemoryRateLimitStore()
	reg := metrics.New()
	now := tu.TestTime()

	key := ratelimit.Key(ratelimit.EndpointLogin, "a")
	require.NoError(t, store.Append(ctx, ratelimit.Entry{Key: key, CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Append(ctx, ratelimit.Entry{Key: key, CreatedAt: now.Add(-25 * time.Hour)}))
	require.NoError(t, store.Append(ctx, ratelimit.Entry{Key: key, CreatedAt: now.Add(-time.Hour)}))

	s, err := NewRateLimitSweeper(RateLimitSweeperOptions{
		Store:   store,
		Config:  sweeperConfig(),
		Metrics: reg,
		Clock:   tu.FixedTimeFunc(now),
	})
	require.NoError(t, err)

	removed, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, 1, store.Count(key))

	removed, err = s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	n, err := testutil.GatherAndCount(reg.Gatherer(), "ratelimit_sweep_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "success and noop series")
}

func TestRateLimitSweeper_SweepOnceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	now := tu.TestTime()
	s, err := NewRateLimitSweeper(RateLimitSweeperOptions{
		Store:  store,
		Config: sweeperConfig(),
		Clock:  tu.FixedTimeFunc(now),
	})
	require.NoError(t, err)

	store.EXPECT().PurgeBefore(gomock.Any(), now.Add(-24*time.Hour)).Return(int64(0), errors.New("db down"))
	_, err = s.SweepOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge rate limit entries")
}

func TestRateLimitSweeper_Run(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		store := mockauth.NewMemoryRateLimitStore()
		s, err := NewRateLimitSweeper(RateLimitSweeperOptions{Store: store, Config: sweeperConfig()})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("sweeper did not stop after cancellation")
		}
	})

	t.Run("returns deadline error", func(t *testing.T) {
		store := mockauth.NewMemoryRateLimitStore()
		s, err := NewRateLimitSweeper(RateLimitSweeperOptions{Store: store, Config: sweeperConfig()})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	})
}
