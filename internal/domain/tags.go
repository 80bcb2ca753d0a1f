package domain

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/events"
)

// CreateArtistTag inserts an artist tag. Artist names are unique.
func (s *Service) CreateArtistTag(ctx context.Context, name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if err := validateTagName(name); err != nil {
		return Tag{}, NewValidationError(err)
	}

	tag := Tag{Type: TagTypeArtist, Name: name}
	err := s.inTx(ctx, func(tx Tx) error {
		existing, err := tx.FindArtistTag(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrArtistExists
		}
		return s.insertTag(ctx, tx, &tag)
	})
	if err != nil {
		return Tag{}, err
	}
	return tag, nil
}

// CreateCategoryTag inserts a category tag. Admin only; names are not unique.
func (s *Service) CreateCategoryTag(ctx context.Context, p Principal, name string) (Tag, error) {
	if !p.IsAdmin() {
		return Tag{}, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if err := validateTagName(name); err != nil {
		return Tag{}, NewValidationError(err)
	}

	tag := Tag{Type: TagTypeCategory, Name: name}
	if err := s.inTx(ctx, func(tx Tx) error { return s.insertTag(ctx, tx, &tag) }); err != nil {
		return Tag{}, err
	}
	return tag, nil
}

func (s *Service) insertTag(ctx context.Context, tx Tx, tag *Tag) error {
	id, err := tx.InsertTag(ctx, *tag)
	if err != nil {
		return err
	}
	tag.ID = id
	return tx.RecordEvent(ctx, events.Envelope{
		Type:          events.TagCreatedType,
		AggregateType: events.AggregateTag,
		AggregateID:   id,
		Payload: events.TagChanged{
			TagID:      id,
			Type:       string(tag.Type),
			Name:       tag.Name,
			OccurredAt: s.now(),
		},
	})
}

// DeleteTag removes a tag and its associations. Admin only.
func (s *Service) DeleteTag(ctx context.Context, p Principal, tagID int64) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}

	err := s.inTx(ctx, func(tx Tx) error {
		found, err := tx.DeleteTag(ctx, tagID)
		if err != nil {
			return err
		}
		if !found {
			return ErrTagNotFound
		}
		return tx.RecordEvent(ctx, events.Envelope{
			Type:          events.TagDeletedType,
			AggregateType: events.AggregateTag,
			AggregateID:   tagID,
			Payload:       events.TagChanged{TagID: tagID, OccurredAt: s.now()},
		})
	})
	if err != nil {
		return err
	}

	// Every cached view may embed the tag.
	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil {
			s.logger.Warn("view cache purge failed", zap.Error(err))
		}
	}
	return nil
}

// AddTags binds tags to an activity. Only the owner may add tags, and a
// pair that already exists is a conflict.
func (s *Service) AddTags(ctx context.Context, p Principal, activityID int64, tagIDs []int64) error {
	now := s.now()
	err := s.inTx(ctx, func(tx Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if !canUpdate(p, activity) {
			return ErrForbidden
		}
		for _, tagID := range tagIDs {
			if err := tx.InsertActivityTag(ctx, activityID, tagID); err != nil {
				return err
			}
		}
		return tx.RecordEvent(ctx, events.Envelope{
			Type:          events.ActivityUpdatedType,
			AggregateType: events.AggregateActivity,
			AggregateID:   activityID,
			Payload: events.ActivityChanged{
				ActivityID: activityID,
				Name:       activity.Name,
				OwnerID:    activity.OwnerID,
				TagIDs:     tagIDs,
				OccurredAt: now,
			},
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, activityID)
	return nil
}

// AddUserTags records that the user follows the given tags.
func (s *Service) AddUserTags(ctx context.Context, p Principal, tagIDs []int64) error {
	return s.inTx(ctx, func(tx Tx) error {
		exists, err := tx.UserExists(ctx, p.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
		for _, tagID := range tagIDs {
			if err := tx.InsertUserTag(ctx, p.UserID, tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// CategoryTags lists every category tag.
func (s *Service) CategoryTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := s.withSession(ctx, func(sess Session) error {
		var err error
		tags, err = sess.ListTags(ctx, TagTypeCategory)
		return err
	})
	return tags, err
}

// PopularArtistTags lists artist tags by descending activity count.
func (s *Service) PopularArtistTags(ctx context.Context, limit int) ([]TagUsage, error) {
	if limit <= 0 {
		limit = DefaultPopularTags
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	var usage []TagUsage
	err := s.withSession(ctx, func(sess Session) error {
		var err error
		usage, err = sess.PopularArtistTags(ctx, limit)
		return err
	})
	return usage, err
}
