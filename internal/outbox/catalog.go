package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/SnowDream39/vocamap-backend/internal/events"
)

// Route describes where an event type is published and which schema frames it.
type Route struct {
	Topic         string
	SchemaSubject string
	Schema        string
}

const (
	// ActivityTopic carries every activity.* event.
	ActivityTopic = "activity_events"
	// TagTopic carries every tag.* event.
	TagTopic = "tag_events"
)

var (
	activityChangedRoute = Route{Topic: ActivityTopic, SchemaSubject: ActivityTopic + "-value", Schema: activityChangedSchema}
	participationRoute   = Route{Topic: ActivityTopic, SchemaSubject: ActivityTopic + "-participation-value", Schema: participationChangedSchema}
	tagChangedRoute      = Route{Topic: TagTopic, SchemaSubject: TagTopic + "-value", Schema: tagChangedSchema}
)

var catalog = map[string]Route{
	events.ActivityCreatedType: activityChangedRoute,
	events.ActivityUpdatedType: activityChangedRoute,
	events.ActivityDeletedType: activityChangedRoute,
	events.ActivityJoinedType:  participationRoute,
	events.ActivityLeftType:    participationRoute,
	events.TagCreatedType:      tagChangedRoute,
	events.TagDeletedType:      tagChangedRoute,
}

// Lookup returns the route for eventType.
func Lookup(eventType string) (Route, bool) {
	r, ok := catalog[eventType]
	return r, ok
}

// Topics lists every topic the outbox publishes to.
func Topics() []string {
	return []string{ActivityTopic, TagTopic}
}

// Record inserts the envelope into the outbox as part of tx.
func Record(ctx context.Context, tx pgx.Tx, env events.Envelope) error {
	route, ok := Lookup(env.Type)
	if !ok {
		return fmt.Errorf("unknown event type: %s", env.Type)
	}

	body, err := json.Marshal(env.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", env.Type, err)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		env.AggregateType,
		env.AggregateID,
		env.Type,
		route.Topic,
		route.SchemaSubject,
		env.AggregateType+":"+strconv.FormatInt(env.AggregateID, 10),
		body,
		uuid.NewString(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", env.Type, err)
	}
	return nil
}
