package ports

import (
	"context"

	"github.com/civicline/civicline-api/internal/domain/model"
)

// EventPublisher hands events to the real-time relay. Publish must not block
// the caller on delivery and never reports delivery failures.
type EventPublisher interface {
	Publish(ctx context.Context, event model.RelayEvent)
}
