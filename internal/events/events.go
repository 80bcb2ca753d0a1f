// Package events defines the payloads published through the outbox.
package events

import "time"

// Event type identifiers carried in the outbox and in Kafka headers.
const (
	ActivityCreatedType = "activity.created"
	ActivityUpdatedType = "activity.updated"
	ActivityDeletedType = "activity.deleted"
	ActivityJoinedType  = "activity.joined"
	ActivityLeftType    = "activity.left"
	TagCreatedType      = "tag.created"
	TagDeletedType      = "tag.deleted"
)

// Aggregate names.
const (
	AggregateActivity = "activity"
	AggregateTag      = "tag"
)

// ActivityChanged is emitted when an activity is created, updated or deleted.
type ActivityChanged struct {
	ActivityID int64     `json:"activity_id"`
	Name       string    `json:"name,omitempty"`
	OwnerID    *int64    `json:"owner_id,omitempty"`
	TagIDs     []int64   `json:"tag_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ParticipationChanged is emitted when a user joins or leaves an activity.
type ParticipationChanged struct {
	ActivityID int64     `json:"activity_id"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TagChanged is emitted when a tag is created or deleted.
type TagChanged struct {
	TagID      int64     `json:"tag_id"`
	Type       string    `json:"type"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Envelope is the unit handed to the outbox inside a write transaction.
type Envelope struct {
	Type          string
	AggregateType string
	AggregateID   int64
	Payload       any
}

// IsActivityEvent reports whether eventType belongs to the activity aggregate.
func IsActivityEvent(eventType string) bool {
	switch eventType {
	case ActivityCreatedType, ActivityUpdatedType, ActivityDeletedType, ActivityJoinedType, ActivityLeftType:
		return true
	}
	return false
}
