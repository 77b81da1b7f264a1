package ports

import (
	"context"
	"time"

	"github.com/civicline/civicline-api/internal/domain/ratelimit"
)

// RateLimitStore persists sliding-window entries in a store shared by every
// gateway instance.
type RateLimitStore interface {
	// Window deletes entries for key created before since, then returns the
	// count and oldest timestamp of what remains.
	Window(ctx context.Context, key string, since time.Time) (ratelimit.Window, error)
	// Append records one attempt.
	Append(ctx context.Context, entry ratelimit.Entry) error
	// DeleteKey removes every entry for key. Deleting a missing key is not an error.
	DeleteKey(ctx context.Context, key string) error
	// PurgeBefore deletes entries of every key created before cutoff.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
