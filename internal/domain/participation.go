package domain

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/events"
	"github.com/SnowDream39/vocamap-backend/internal/observability"
)

// Join moves (activityID, userID) from NotJoined to Joined.
//
// The activity row stays locked for the whole check-then-insert, so two
// joins racing for the last slot serialize and the loser sees ErrActivityFull.
func (s *Service) Join(ctx context.Context, activityID, userID int64) error {
	err := s.inTx(ctx, func(tx Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		joined, err := tx.IsParticipant(ctx, activityID, userID)
		if err != nil {
			return err
		}
		if joined {
			return ErrAlreadyJoined
		}

		if activity.MaxMember != nil {
			count, err := tx.CountParticipants(ctx, activityID)
			if err != nil {
				return err
			}
			if count >= *activity.MaxMember {
				return ErrActivityFull
			}
		}

		if err := tx.InsertParticipant(ctx, activityID, userID); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, participationEnvelope(events.ActivityJoinedType, activityID, userID, s.now()))
	})
	observability.RecordParticipation("join", participationResult(err))
	if err != nil {
		return err
	}

	s.logger.Debug("activity joined", zap.Int64("activity_id", activityID), zap.Int64("user_id", userID))
	return nil
}

// Leave moves (activityID, userID) from Joined to NotJoined.
func (s *Service) Leave(ctx context.Context, activityID, userID int64) error {
	err := s.inTx(ctx, func(tx Tx) error {
		if _, err := tx.LockActivity(ctx, activityID); err != nil {
			return err
		}
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		removed, err := tx.DeleteParticipant(ctx, activityID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotJoined
		}
		return tx.RecordEvent(ctx, participationEnvelope(events.ActivityLeftType, activityID, userID, s.now()))
	})
	observability.RecordParticipation("leave", participationResult(err))
	if err != nil {
		return err
	}

	s.logger.Debug("activity left", zap.Int64("activity_id", activityID), zap.Int64("user_id", userID))
	return nil
}

func participationEnvelope(eventType string, activityID, userID int64, at time.Time) events.Envelope {
	return events.Envelope{
		Type:          eventType,
		AggregateType: events.AggregateActivity,
		AggregateID:   activityID,
		Payload: events.ParticipationChanged{
			ActivityID: activityID,
			UserID:     userID,
			OccurredAt: at,
		},
	}
}

func participationResult(err error) string {
	switch {
	case err == nil:
		return observability.ResultOK
	case errors.Is(err, ErrActivityFull):
		return observability.ResultFull
	}
	switch KindOf(err) {
	case KindConflict:
		return observability.ResultConflict
	case KindNotFound:
		return observability.ResultNotFound
	}
	return observability.ResultError
}
