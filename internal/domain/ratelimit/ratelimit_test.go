package ratelimit

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	k := Key(EndpointLogin, "203.0.113.7")
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key(EndpointLogin, "203.0.113.7"), "deterministic")
	assert.NotEqual(t, k, Key(EndpointRegister, "203.0.113.7"), "endpoint is part of the key")
	assert.NotContains(t, k, "203.0.113.7")
}

func TestDecide(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Policy{Endpoint: EndpointLogin, Window: 5 * time.Minute, MaxAttempts: 3}

	t.Run("under limit", func(t *testing.T) {
		d := Decide(p, Window{Count: 2, Oldest: now.Add(-time.Minute)}, now)
		assert.True(t, d.Allowed)
		assert.Equal(t, 1, d.Remaining)
		assert.Zero(t, d.RetryAfter)
	})

	t.Run("at limit retries when oldest leaves window", func(t *testing.T) {
		d := Decide(p, Window{Count: 3, Oldest: now.Add(-4 * time.Minute)}, now)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, time.Minute, d.RetryAfter)
	})

	t.Run("retry never below one second", func(t *testing.T) {
		d := Decide(p, Window{Count: 5, Oldest: now.Add(-5 * time.Minute)}, now)
		assert.False(t, d.Allowed)
		assert.Equal(t, time.Second, d.RetryAfter)
	})

	t.Run("empty window", func(t *testing.T) {
		d := Decide(p, Window{}, now)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3, d.Remaining)
	})
}

func TestLimitedError(t *testing.T) {
	err := &LimitedError{Endpoint: EndpointLogin, RetryAfter: 1500 * time.Millisecond}
	assert.Equal(t, 2, err.RetryAfterSeconds())
	assert.True(t, errors.Is(fmt.Errorf("login: %w", err), ErrLimited))

	var limited *LimitedError
	assert.True(t, errors.As(fmt.Errorf("x: %w", err), &limited))
	assert.Equal(t, 1, (&LimitedError{}).RetryAfterSeconds())
}
