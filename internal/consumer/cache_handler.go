package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
	"github.com/SnowDream39/vocamap-backend/internal/events"
)

// CacheHandler evicts read models touched by an event. It lets every API
// replica converge on writes made by its peers.
type CacheHandler struct {
	cache  domain.ViewCache
	logger *zap.Logger
}

// NewCacheHandler constructs a CacheHandler.
func NewCacheHandler(cache domain.ViewCache, logger *zap.Logger) *CacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheHandler{cache: cache, logger: logger}
}

// Handle invalidates one activity view for activity events and purges every
// view when a tag disappears. Other events are ignored.
func (h *CacheHandler) Handle(ctx context.Context, msg Message) error {
	switch {
	case events.IsActivityEvent(msg.EventType):
		var payload struct {
			ActivityID int64 `json:"activity_id"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
		}
		if payload.ActivityID == 0 {
			return fmt.Errorf("%s payload has no activity_id", msg.EventType)
		}
		h.logger.Debug("invalidating activity view", zap.String("event_type", msg.EventType), zap.Int64("activity_id", payload.ActivityID))
		if err := h.cache.Invalidate(ctx, payload.ActivityID); err != nil {
			return err
		}
		recordEviction("activity")
		return nil
	case msg.EventType == events.TagDeletedType:
		h.logger.Debug("purging activity views", zap.String("event_type", msg.EventType))
		if err := h.cache.Purge(ctx); err != nil {
			return err
		}
		recordEviction("all")
		return nil
	default:
		return nil
	}
}
