package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/bootstrap"
	"github.com/civicline/civicline-api/internal/ports"
	"github.com/redis/go-redis/v9"
)

type connectInfraOptions struct {
	Logger    *slog.Logger
	Config    *config.AppConfig
	WantDB    bool
	WantRedis bool
}

var errRedisNotConfigured = errors.New("redis not configured")

// connectInfraWithOptions lets commands control which dependencies are created.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfraWithOptions(opts *connectInfraOptions) (*sql.DB, redis.UniversalClient, error) {
	var (
		db          *sql.DB
		err         error
		redisClient redis.UniversalClient
	)

	if opts.WantDB {
		db, err = bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: opts.Config.Postgres, Logger: opts.Logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	if opts.WantRedis {
		redisClient, err = maybeConnectRedis(opts.Logger, &opts.Config.Redis)
		if err != nil {
			if db != nil {
				if closeErr := db.Close(); closeErr != nil {
					err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
				}
			}
			return nil, nil, err
		}
	}

	return db, redisClient, nil
}

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

// rateLimitInfra holds the connections backing the configured rate limit store.
type rateLimitInfra struct {
	DB    *sql.DB
	Redis redis.UniversalClient
	Store ports.RateLimitStore
}

// openRateLimitStore connects whichever backend the config selects.
func openRateLimitStore(logger *slog.Logger, cfg *config.AppConfig) (*rateLimitInfra, error) {
	useRedis := cfg.RateLimit.Backend == config.RateLimitBackendRedis
	db, redisClient, err := connectInfraWithOptions(&connectInfraOptions{
		Logger:    logger,
		Config:    cfg,
		WantDB:    !useRedis,
		WantRedis: useRedis,
	})
	if err != nil {
		return nil, err
	}
	store, err := bootstrap.BuildRateLimitStore(bootstrap.RateLimitStoreConfig{
		RateLimit:   cfg.RateLimit,
		Redis:       cfg.Redis,
		DB:          db,
		RedisClient: redisClient,
	})
	if err != nil {
		return nil, errors.Join(err, closeInfra(db, redisClient))
	}
	return &rateLimitInfra{DB: db, Redis: redisClient, Store: store}, nil
}

func (i *rateLimitInfra) Close() error {
	return closeInfra(i.DB, i.Redis)
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}
