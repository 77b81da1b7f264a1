package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/civicline/civicline-api/internal/domain/ratelimit"
)

const (
	// The data-modifying CTE runs against the same snapshot as the SELECT,
	// so the SELECT repeats the lower bound.
	rateLimitWindowQuery = `
		WITH purged AS (
			DELETE FROM rate_limits WHERE key = $1 AND created_at < $2
		)
		SELECT COUNT(*), MIN(created_at) FROM rate_limits WHERE key = $1 AND created_at >= $2`

	rateLimitInsertQuery = `
		INSERT INTO rate_limits (key, endpoint, user_id, source_ip, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	rateLimitDeleteKeyQuery   = `DELETE FROM rate_limits WHERE key = $1`
	rateLimitPurgeBeforeQuery = `DELETE FROM rate_limits WHERE created_at < $1`
)

// RateLimitRepo stores sliding-window entries in Postgres so every gateway
// instance shares one view of each key.
type RateLimitRepo struct {
	DB *sql.DB
}

// NewRateLimitRepo creates a new RateLimitRepo.
func NewRateLimitRepo(db *sql.DB) *RateLimitRepo {
	return &RateLimitRepo{DB: db}
}

// Window implements ports.RateLimitStore.
func (r *RateLimitRepo) Window(ctx context.Context, key string, since time.Time) (ratelimit.Window, error) {
	var (
		count  int
		oldest sql.NullTime
	)
	if err := r.DB.QueryRowContext(ctx, rateLimitWindowQuery, key, since.UTC()).Scan(&count, &oldest); err != nil {
		return ratelimit.Window{}, fmt.Errorf("rate limit window: %w", err)
	}
	w := ratelimit.Window{Count: count}
	if count > 0 && oldest.Valid {
		w.Oldest = oldest.Time.UTC()
	}
	return w, nil
}

// Append implements ports.RateLimitStore.
func (r *RateLimitRepo) Append(ctx context.Context, e ratelimit.Entry) error {
	if e.Key == "" {
		return errors.New("rate limit key cannot be empty")
	}
	if _, err := r.DB.ExecContext(ctx, rateLimitInsertQuery,
		e.Key, e.Endpoint, e.UserID, e.SourceIP, e.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("rate limit append: %w", err)
	}
	return nil
}

// DeleteKey implements ports.RateLimitStore.
func (r *RateLimitRepo) DeleteKey(ctx context.Context, key string) error {
	if _, err := r.DB.ExecContext(ctx, rateLimitDeleteKeyQuery, key); err != nil {
		return fmt.Errorf("rate limit delete: %w", err)
	}
	return nil
}

// PurgeBefore implements ports.RateLimitStore.
func (r *RateLimitRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, rateLimitPurgeBeforeQuery, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("rate limit purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
