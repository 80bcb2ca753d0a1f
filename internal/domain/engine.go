package domain

import (
	"context"

	"github.com/SnowDream39/vocamap-backend/internal/events"
	"github.com/SnowDream39/vocamap-backend/internal/search"
)

// Engine hands out request-scoped sessions against the persistence engine.
type Engine interface {
	Acquire(ctx context.Context) (Session, error)
}

// Session is owned by a single operation and must be released when done.
type Session interface {
	Release()
	// InTx runs fn in a transaction that commits when fn returns nil and
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(Tx) error) error

	QueryActivities(ctx context.Context, q search.Query) ([]ActivityRecord, error)
	ActivityExists(ctx context.Context, activityID int64) (bool, error)
	Participants(ctx context.Context, activityID int64) ([]User, error)
	ListTags(ctx context.Context, tagType TagType) ([]Tag, error)
	PopularArtistTags(ctx context.Context, limit int) ([]TagUsage, error)
}

// Tx exposes the primitives mutations are composed from. Implementations
// return the package sentinels for expected failures.
type Tx interface {
	// LockActivity loads the activity and serializes concurrent writers on it
	// until the transaction ends.
	LockActivity(ctx context.Context, activityID int64) (Activity, error)
	UserExists(ctx context.Context, userID int64) (bool, error)

	InsertActivity(ctx context.Context, a Activity) (int64, error)
	UpdateActivity(ctx context.Context, a Activity) error
	DeleteActivity(ctx context.Context, activityID int64) (bool, error)

	IsParticipant(ctx context.Context, activityID, userID int64) (bool, error)
	CountParticipants(ctx context.Context, activityID int64) (int, error)
	InsertParticipant(ctx context.Context, activityID, userID int64) error
	DeleteParticipant(ctx context.Context, activityID, userID int64) (bool, error)

	InsertActivityTag(ctx context.Context, activityID, tagID int64) error
	FindArtistTag(ctx context.Context, name string) (*Tag, error)
	InsertTag(ctx context.Context, t Tag) (int64, error)
	DeleteTag(ctx context.Context, tagID int64) (bool, error)
	InsertUserTag(ctx context.Context, userID, tagID int64) error

	RecordEvent(ctx context.Context, e events.Envelope) error
}

// ViewCache stores assembled read models keyed by activity id.
type ViewCache interface {
	Get(ctx context.Context, activityID int64) (*ActivityView, error)
	Set(ctx context.Context, view ActivityView) error
	Invalidate(ctx context.Context, activityIDs ...int64) error
	Purge(ctx context.Context) error
}
