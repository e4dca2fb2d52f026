// Package events defines the activity lifecycle payloads published through the outbox.
package events

import "time"

// Event types recorded in the outbox.
const (
	ActivityCreatedType = "activity.created"
	ActivityUpdatedType = "activity.updated"
	ActivityDeletedType = "activity.deleted"
)

// ActivityChanged is emitted when an activity is created or updated.
type ActivityChanged struct {
	ActivityID   string    `json:"activity_id"`
	OwnerID      string    `json:"owner_id"`
	ActivityDate string    `json:"activity_date"`
	ActivityTime string    `json:"activity_time"`
	ClientName   string    `json:"client_name"`
	ActivityType string    `json:"activity_type"`
	Status       string    `json:"status"`
	DealValue    *string   `json:"deal_value,omitempty"`
	Attachments  int       `json:"attachments"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ActivityDeleted is emitted when an activity is soft-deleted.
type ActivityDeleted struct {
	ActivityID string    `json:"activity_id"`
	OwnerID    string    `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
