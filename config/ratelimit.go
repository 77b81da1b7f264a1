package config

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitBackend selects the store that holds sliding-window entries.
type RateLimitBackend string

const (
	// RateLimitBackendPostgres stores entries in the rate_limits table.
	RateLimitBackendPostgres RateLimitBackend = "postgres"
	// RateLimitBackendRedis stores entries in per-key sorted sets.
	RateLimitBackendRedis RateLimitBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for RateLimitBackend.
func (b *RateLimitBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch RateLimitBackend(v) {
	case RateLimitBackendPostgres, RateLimitBackendRedis:
		*b = RateLimitBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid RateLimitBackend: %q (valid options: postgres, redis)", v)
	}
}

// RegisterScope controls how registration attempts are grouped.
type RegisterScope string

const (
	// RegisterScopeSource keys registration attempts by client address.
	RegisterScopeSource RegisterScope = "source"
	// RegisterScopeGlobal shares one bucket across every registrant.
	RegisterScopeGlobal RegisterScope = "global"
)

// UnmarshalText implements encoding.TextUnmarshaler for RegisterScope.
func (s *RegisterScope) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch RegisterScope(v) {
	case RegisterScopeSource, RegisterScopeGlobal:
		*s = RegisterScope(v)
		return nil
	default:
		return fmt.Errorf("invalid RegisterScope: %q (valid options: source, global)", v)
	}
}

// RateLimitConfig contains login and registration throttling configuration.
type RateLimitConfig struct {
	Backend RateLimitBackend `env:"RATE_LIMIT_BACKEND" envDefault:"postgres"`

	LoginMaxAttempts int           `env:"RATE_LIMIT_LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	LoginWindow      time.Duration `env:"RATE_LIMIT_LOGIN_WINDOW"       envDefault:"5m"`

	RegisterMaxAttempts int           `env:"RATE_LIMIT_REGISTER_MAX_ATTEMPTS" envDefault:"5"`
	RegisterWindow      time.Duration `env:"RATE_LIMIT_REGISTER_WINDOW"       envDefault:"1h"`
	RegisterScope       RegisterScope `env:"RATE_LIMIT_REGISTER_SCOPE"        envDefault:"source"`

	// SweepInterval is how often the sweeper deletes stale entries.
	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"10m"`

	// SweepRetention is the age past which entries are deleted by the sweeper.
	// It is raised to the longest configured window if set lower.
	SweepRetention time.Duration `env:"RATE_LIMIT_SWEEP_RETENTION" envDefault:"24h"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.Backend == "" {
		r.Backend = RateLimitBackendPostgres
	}
	if r.LoginMaxAttempts < 1 {
		r.LoginMaxAttempts = 10
	}
	if r.LoginWindow < time.Second {
		r.LoginWindow = 5 * time.Minute
	}
	if r.RegisterMaxAttempts < 1 {
		r.RegisterMaxAttempts = 5
	}
	if r.RegisterWindow < time.Second {
		r.RegisterWindow = time.Hour
	}
	if r.RegisterScope == "" {
		r.RegisterScope = RegisterScopeSource
	}
	if r.SweepInterval < time.Minute {
		r.SweepInterval = time.Minute
	}
	longest := max(r.LoginWindow, r.RegisterWindow)
	if r.SweepRetention < longest {
		r.SweepRetention = longest
	}
}
