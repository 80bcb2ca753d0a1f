// Package domain defines the business logic for the activity service.
package domain

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/events"
	"github.com/SnowDream39/vocamap-backend/internal/geo"
	"github.com/SnowDream39/vocamap-backend/internal/observability"
	"github.com/SnowDream39/vocamap-backend/internal/search"
)

const (
	// DefaultPageSize applies when a list request carries no limit.
	DefaultPageSize = 20
	// MaxPageSize caps list requests.
	MaxPageSize = 100
	// DefaultPopularTags is the number of popular artist tags returned by default.
	DefaultPopularTags = 20
)

// Service orchestrates activity workflows over an Engine.
type Service struct {
	engine Engine
	cache  ViewCache
	logger *zap.Logger
	now    func() time.Time
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithViewCache enables read-model caching for Get.
func WithViewCache(cache ViewCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a Service.
func NewService(engine Engine, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withSession(ctx context.Context, fn func(Session) error) error {
	sess, err := s.engine.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer sess.Release()
	return fn(sess)
}

func (s *Service) inTx(ctx context.Context, fn func(Tx) error) error {
	return s.withSession(ctx, func(sess Session) error {
		return sess.InTx(ctx, fn)
	})
}

func (s *Service) query(ctx context.Context, name string, q search.Query) ([]ActivityView, error) {
	start := time.Now()
	defer observability.ObserveQuery(name, start)

	var records []ActivityRecord
	err := s.withSession(ctx, func(sess Session) error {
		var err error
		records, err = sess.QueryActivities(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return AssembleAll(records), nil
}

// CreateActivity stores the activity, its tag bindings and the owner's
// participation in one transaction and returns the new id.
func (s *Service) CreateActivity(ctx context.Context, p Principal, input CreateActivityInput) (int64, error) {
	if err := input.Validate(); err != nil {
		return 0, NewValidationError(err)
	}

	now := s.now()
	owner := p.UserID
	activity := Activity{
		Name:        input.Name,
		StartTime:   input.StartTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		Location:    input.Location,
		Description: input.Description,
		MaxMember:   input.MaxMember,
		OwnerID:     &owner,
		Position:    *input.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var id int64
	err := s.inTx(ctx, func(tx Tx) error {
		exists, err := tx.UserExists(ctx, owner)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		id, err = tx.InsertActivity(ctx, activity)
		if err != nil {
			return err
		}
		for _, tagID := range input.TagIDs {
			if err := tx.InsertActivityTag(ctx, id, tagID); err != nil {
				return err
			}
		}
		if err := tx.InsertParticipant(ctx, id, owner); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, events.Envelope{
			Type:          events.ActivityCreatedType,
			AggregateType: events.AggregateActivity,
			AggregateID:   id,
			Payload: events.ActivityChanged{
				ActivityID: id,
				Name:       activity.Name,
				OwnerID:    activity.OwnerID,
				TagIDs:     input.TagIDs,
				OccurredAt: now,
			},
		})
	})
	if err != nil {
		return 0, err
	}

	observability.RecordActivityPersisted(now)
	s.logger.Info("activity created", zap.Int64("activity_id", id), zap.Int64("owner_id", owner))
	return id, nil
}

// UpdateActivity applies a partial update. Only the owner may update.
func (s *Service) UpdateActivity(ctx context.Context, p Principal, activityID int64, patch ActivityPatch) (*ActivityView, error) {
	if err := patch.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	now := s.now()
	err := s.inTx(ctx, func(tx Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if !canUpdate(p, activity) {
			return ErrForbidden
		}
		if patch.IsEmpty() {
			return nil
		}

		patch.Apply(&activity)
		if patch.MaxMember.Set && activity.MaxMember != nil {
			count, err := tx.CountParticipants(ctx, activityID)
			if err != nil {
				return err
			}
			if count > *activity.MaxMember {
				return ErrCapacityBelowParticipants
			}
		}
		activity.UpdatedAt = now
		if err := tx.UpdateActivity(ctx, activity); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, events.Envelope{
			Type:          events.ActivityUpdatedType,
			AggregateType: events.AggregateActivity,
			AggregateID:   activityID,
			Payload: events.ActivityChanged{
				ActivityID: activityID,
				Name:       activity.Name,
				OwnerID:    activity.OwnerID,
				OccurredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	observability.RecordActivityPersisted(now)
	s.invalidate(ctx, activityID)
	return s.GetActivity(ctx, activityID)
}

// DeleteActivity removes an activity and its associations. Admin only.
func (s *Service) DeleteActivity(ctx context.Context, p Principal, activityID int64) error {
	if !canDelete(p) {
		return ErrForbidden
	}

	now := s.now()
	err := s.inTx(ctx, func(tx Tx) error {
		found, err := tx.DeleteActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if !found {
			return ErrActivityNotFound
		}
		return tx.RecordEvent(ctx, events.Envelope{
			Type:          events.ActivityDeletedType,
			AggregateType: events.AggregateActivity,
			AggregateID:   activityID,
			Payload:       events.ActivityChanged{ActivityID: activityID, OccurredAt: now},
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, activityID)
	s.logger.Info("activity deleted", zap.Int64("activity_id", activityID), zap.Int64("admin_id", p.UserID))
	return nil
}

// GetActivity returns a single read model.
func (s *Service) GetActivity(ctx context.Context, activityID int64) (*ActivityView, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, activityID)
		if err != nil {
			s.logger.Warn("view cache get failed", zap.Int64("activity_id", activityID), zap.Error(err))
		}
		observability.RecordCacheLookup(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	views, err := s.query(ctx, "get", search.Where(search.HasID{ID: activityID}))
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrActivityNotFound
	}
	view := views[0]

	// The view may predate a concurrent write; the cache drops fills that
	// land inside an invalidation fence and the view TTL bounds the rest.
	if s.cache != nil {
		if err := s.cache.Set(ctx, view); err != nil {
			s.logger.Warn("view cache set failed", zap.Int64("activity_id", activityID), zap.Error(err))
		}
	}
	return &view, nil
}

// ListActivities returns a page of activities ordered by id.
func (s *Service) ListActivities(ctx context.Context, cursor *Cursor, limit int) ([]ActivityView, *Cursor, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	q := search.Query{Limit: limit}
	if cursor != nil {
		q.AfterID = cursor.AfterID
	}

	views, err := s.query(ctx, "list", q)
	if err != nil {
		return nil, nil, err
	}

	var next *Cursor
	if len(views) == limit {
		next = &Cursor{AfterID: views[len(views)-1].ID}
	}
	return views, next, nil
}

// ActivitiesByOwner returns activities owned by userID.
func (s *Service) ActivitiesByOwner(ctx context.Context, userID int64) ([]ActivityView, error) {
	return s.query(ctx, "by_owner", search.Where(search.OwnedBy{UserID: userID}))
}

// ActivitiesByParticipant returns activities userID has joined.
func (s *Service) ActivitiesByParticipant(ctx context.Context, userID int64) ([]ActivityView, error) {
	return s.query(ctx, "by_participant", search.Where(search.JoinedBy{UserID: userID}))
}

// ActivitiesByTag returns activities bound to tagID.
func (s *Service) ActivitiesByTag(ctx context.Context, tagID int64) ([]ActivityView, error) {
	return s.query(ctx, "by_tag", search.Where(search.HasTag{TagID: tagID}))
}

// Nearby returns activities within meters geodesic distance of center,
// boundary inclusive.
func (s *Service) Nearby(ctx context.Context, center geo.Point, meters float64) ([]ActivityView, error) {
	if err := center.Validate(); err != nil {
		return nil, NewValidationError(err)
	}
	if meters < 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return nil, NewValidationError(fmt.Errorf("distance must be a non-negative number of meters"))
	}
	return s.query(ctx, "nearby", search.Where(search.WithinDistance{Center: center, Meters: meters}))
}

// ByTimePoint returns activities running at instant.
func (s *Service) ByTimePoint(ctx context.Context, instant time.Time) ([]ActivityView, error) {
	return s.query(ctx, "by_time_point", search.Where(search.ActiveAt(instant)...))
}

// ByTimePeriod returns activities whose window overlaps [start, end].
func (s *Service) ByTimePeriod(ctx context.Context, start, end time.Time) ([]ActivityView, error) {
	return s.query(ctx, "by_time_period", search.Where(search.Overlapping(start, end)...))
}

// Search returns activities matching every supplied criterion.
func (s *Service) Search(ctx context.Context, criteria search.Criteria) ([]ActivityView, error) {
	return s.query(ctx, "search", search.Where(search.Compose(criteria)...))
}

// Participants lists the users who joined activityID.
func (s *Service) Participants(ctx context.Context, activityID int64) ([]UserView, error) {
	var users []User
	err := s.withSession(ctx, func(sess Session) error {
		exists, err := sess.ActivityExists(ctx, activityID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrActivityNotFound
		}
		users, err = sess.Participants(ctx, activityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toUserViews(users), nil
}

func (s *Service) invalidate(ctx context.Context, activityIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, activityIDs...); err != nil {
		s.logger.Warn("view cache invalidate failed", zap.Int64s("activity_ids", activityIDs), zap.Error(err))
	}
}
