//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// Relay event types.
const (
	EventComplaintCreated       = "complaint.created"
	EventComplaintStatusChanged = "complaint.status_changed"
	EventComplaintAssigned      = "complaint.assigned"
)

// RelayEvent is a fire-and-forget notification for the real-time relay.
// UserIDs lists the recipients the relay should fan out to.
type RelayEvent struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	ComplaintID int64          `json:"complaint_id"`
	UserIDs     []int64        `json:"user_ids"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}
