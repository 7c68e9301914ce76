package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *UnreadCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUnreadCache(client, time.Minute)
}

func TestUnreadCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1, 10)
	require.False(t, ok)

	cache.Set(ctx, 1, 10, 4)
	count, ok := cache.Get(ctx, 1, 10)
	require.True(t, ok)
	require.Equal(t, int64(4), count)

	cache.Invalidate(ctx, 1, 10)
	_, ok = cache.Get(ctx, 1, 10)
	require.False(t, ok)
}

func TestUnreadCacheIsScopedPerUser(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, 1, 10, 4)
	cache.Set(ctx, 1, 11, 7)

	count, ok := cache.Get(ctx, 1, 11)
	require.True(t, ok)
	require.Equal(t, int64(7), count)

	_, ok = cache.Get(ctx, 2, 10)
	require.False(t, ok)
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *UnreadCache
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1, 10)
	require.False(t, ok)
	cache.Set(ctx, 1, 10, 3)
	cache.Invalidate(ctx, 1, 10)
}
