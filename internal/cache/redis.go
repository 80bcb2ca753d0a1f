// Package cache stores assembled activity read models in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
)

const (
	keyPrefix   = "activity:view:"
	fencePrefix = "activity:fence:"
)

// DefaultTTL bounds how long a view may outlive a missed invalidation.
const DefaultTTL = 5 * time.Minute

// DefaultFence is how long an invalidation blocks refills of the same view.
const DefaultFence = 5 * time.Second

// setUnlessFenced writes the view only when no invalidation fence is live.
var setUnlessFenced = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// NewRedis parses url, connects and pings before returning the client.
func NewRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// RedisViewCache implements domain.ViewCache.
type RedisViewCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	fence  time.Duration
}

// NewRedisViewCache wraps client. A non-positive ttl falls back to DefaultTTL.
func NewRedisViewCache(client redis.UniversalClient, ttl time.Duration) *RedisViewCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisViewCache{client: client, ttl: ttl, fence: DefaultFence}
}

// WithFence overrides how long Invalidate blocks refills.
func (c *RedisViewCache) WithFence(d time.Duration) *RedisViewCache {
	if d > 0 {
		c.fence = d
	}
	return c
}

func key(activityID int64) string {
	return keyPrefix + strconv.FormatInt(activityID, 10)
}

func fenceKey(activityID int64) string {
	return fencePrefix + strconv.FormatInt(activityID, 10)
}

// Get returns nil without error on a miss.
func (c *RedisViewCache) Get(ctx context.Context, activityID int64) (*domain.ActivityView, error) {
	data, err := c.client.Get(ctx, key(activityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading view %d: %w", activityID, err)
	}

	var view domain.ActivityView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("unmarshaling view %d: %w", activityID, err)
	}
	return &view, nil
}

// Set is skipped while an invalidation fence for the view is live, so a read
// that raced a write cannot put its older view back.
func (c *RedisViewCache) Set(ctx context.Context, view domain.ActivityView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshaling view %d: %w", view.ID, err)
	}
	keys := []string{key(view.ID), fenceKey(view.ID)}
	if err := setUnlessFenced.Run(ctx, c.client, keys, data, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("writing view %d: %w", view.ID, err)
	}
	return nil
}

// Invalidate deletes the views and fences them against refills for c.fence.
func (c *RedisViewCache) Invalidate(ctx context.Context, activityIDs ...int64) error {
	if len(activityIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range activityIDs {
			pipe.Del(ctx, key(id))
			pipe.Set(ctx, fenceKey(id), 1, c.fence)
		}
		return nil
	})
	return err
}

// Purge drops every cached view. Tag deletion touches an unknown set of activities.
func (c *RedisViewCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}
