// Package redis provides Redis-backed adapters for the complaint portal.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/civicline/civicline-api/internal/domain/ratelimit"
)

const (
	defaultPrefix    = "ratelimit:"
	defaultRetention = 24 * time.Hour
	scanBatch        = 500
)

// windowScript trims entries older than ARGV[1] (ms) and returns the count
// and oldest score of what remains, atomically.
var windowScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
local n = redis.call("ZCARD", KEYS[1])
if n == 0 then
  return {0, "0"}
end
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
return {n, oldest[2]}
`)

// RateLimitStore keeps one sorted set per key, scored by creation time in
// milliseconds. Members are unique so simultaneous attempts never collapse.
type RateLimitStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// RateLimitStoreOptions configures a RateLimitStore.
type RateLimitStoreOptions struct {
	Client redis.UniversalClient
	Prefix string
	// Retention is the TTL refreshed on each append; it must cover the
	// longest policy window.
	Retention time.Duration
}

// NewRateLimitStore creates a Redis-backed rate limit store.
func NewRateLimitStore(opts RateLimitStoreOptions) *RateLimitStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	return &RateLimitStore{client: opts.Client, prefix: prefix, retention: retention}
}

func (s *RateLimitStore) key(k string) string { return s.prefix + k }

// Window implements ports.RateLimitStore.
func (s *RateLimitStore) Window(ctx context.Context, key string, since time.Time) (ratelimit.Window, error) {
	res, err := windowScript.Run(ctx, s.client, []string{s.key(key)}, since.UnixMilli()).Slice()
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("redis window: %w", err)
	}
	if len(res) != 2 {
		return ratelimit.Window{}, fmt.Errorf("redis window: unexpected reply length %d", len(res))
	}

	count, ok := res[0].(int64)
	if !ok {
		return ratelimit.Window{}, fmt.Errorf("redis window: unexpected count type %T", res[0])
	}
	if count == 0 {
		return ratelimit.Window{}, nil
	}
	oldestMS, err := parseScore(res[1])
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("redis window: %w", err)
	}
	return ratelimit.Window{Count: int(count), Oldest: time.UnixMilli(oldestMS).UTC()}, nil
}

func parseScore(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("parse score %q: %w", x, err)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unexpected score type %T", v)
	}
}

// Append implements ports.RateLimitStore.
func (s *RateLimitStore) Append(ctx context.Context, entry ratelimit.Entry) error {
	if entry.Key == "" {
		return errors.New("rate limit key cannot be empty")
	}
	k := s.key(entry.Key)
	member := redis.Z{
		Score:  float64(entry.CreatedAt.UnixMilli()),
		Member: uuid.NewString() + "|" + entry.Endpoint,
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, k, member)
		p.PExpire(ctx, k, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

// DeleteKey implements ports.RateLimitStore.
func (s *RateLimitStore) DeleteKey(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// PurgeBefore implements ports.RateLimitStore. Keys also expire on their own;
// this trims long-lived keys that keep receiving attempts.
func (s *RateLimitStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	var removed atomic.Int64

	purge := func(ctx context.Context, c redis.Cmdable) error {
		iter := c.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
		for iter.Next(ctx) {
			n, err := c.ZRemRangeByScore(ctx, iter.Val(), "-inf", upper).Result()
			if err != nil {
				return err
			}
			removed.Add(n)
		}
		return iter.Err()
	}

	var err error
	if cluster, ok := s.client.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return purge(ctx, node)
		})
	} else {
		err = purge(ctx, s.client)
	}
	if err != nil {
		return removed.Load(), fmt.Errorf("redis purge: %w", err)
	}
	return removed.Load(), nil
}
