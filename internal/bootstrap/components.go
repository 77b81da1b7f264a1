package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/adapters/passwordhash"
	redisadapter "github.com/civicline/civicline-api/internal/adapters/redis"
	"github.com/civicline/civicline-api/internal/adapters/relay"
	"github.com/civicline/civicline-api/internal/adapters/tokencodec"
	"github.com/civicline/civicline-api/internal/data"
	"github.com/civicline/civicline-api/internal/observability/metrics"
	"github.com/civicline/civicline-api/internal/ports"
	"github.com/civicline/civicline-api/internal/service"
	"github.com/redis/go-redis/v9"
)

// relayRetryLimit is the number of extra delivery attempts per relay event.
const relayRetryLimit = 2

// BuildSecurity creates the token codec and password hasher from auth config.
func BuildSecurity(cfg config.AuthConfig) (service.AuthSecurity, error) {
	codec, err := tokencodec.New(tokencodec.Config{
		Secret:   []byte(cfg.TokenSecret),
		Issuer:   cfg.TokenIssuer,
		Lifetime: cfg.TokenLifetime,
	})
	if err != nil {
		return service.AuthSecurity{}, fmt.Errorf("create token codec: %w", err)
	}
	return service.AuthSecurity{
		Hasher: passwordhash.New(cfg.BcryptCost),
		Codec:  codec,
	}, nil
}

// RateLimitStoreConfig contains dependencies for building the rate limit store.
type RateLimitStoreConfig struct {
	RateLimit   config.RateLimitConfig
	Redis       config.RedisConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
}

// BuildRateLimitStore returns the store selected by the configured backend.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildRateLimitStore(cfg RateLimitStoreConfig) (ports.RateLimitStore, error) {
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis rate limit backend requires a redis client")
		}
		return redisadapter.NewRateLimitStore(redisadapter.RateLimitStoreOptions{
			Client:    cfg.RedisClient,
			Prefix:    cfg.Redis.KeyPrefix,
			Retention: cfg.RateLimit.SweepRetention,
		}), nil
	case config.RateLimitBackendPostgres, "":
		if cfg.DB == nil {
			return nil, errors.New("postgres rate limit backend requires a database")
		}
		return data.NewRateLimitRepo(cfg.DB), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}

// BuildEventPublisher returns a relay publisher when a relay URL is set and a
// no-op publisher otherwise.
//
//nolint:ireturn // relay fan-out is optional.
func BuildEventPublisher(cfg config.RelayConfig, reg *metrics.Registry, logger *slog.Logger) (ports.EventPublisher, error) {
	if !cfg.IsEnabled() {
		return relay.NopPublisher{}, nil
	}
	pub, err := relay.NewPublisher(relay.Config{
		URL:        cfg.URL,
		Timeout:    cfg.Timeout,
		RetryLimit: relayRetryLimit,
		Logger:     logger,
		Metrics:    reg,
	})
	if err != nil {
		return nil, fmt.Errorf("create relay publisher: %w", err)
	}
	return pub, nil
}
