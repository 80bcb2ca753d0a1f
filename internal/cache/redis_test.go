package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewRedisRejectsMalformedURL(t *testing.T) {
	_, err := NewRedis("not-a-redis-url")
	require.ErrorContains(t, err, "parsing redis URL")
}

func TestNewRedisViewCacheDefaultsTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	require.Equal(t, DefaultTTL, NewRedisViewCache(client, 0).ttl)
	require.Equal(t, time.Second, NewRedisViewCache(client, time.Second).ttl)
	require.Equal(t, "activity:view:42", key(42))
}

func TestRedisViewCacheFence(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	c := NewRedisViewCache(client, 0)
	require.Equal(t, DefaultFence, c.fence)
	require.Equal(t, DefaultFence, c.WithFence(0).fence)
	require.Equal(t, time.Second, c.WithFence(time.Second).fence)
	require.Equal(t, "activity:fence:42", fenceKey(42))
}
