package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCache keeps per-user unread counters in Redis so the badge
// endpoint does not hit Postgres on every poll. A nil cache is a no-op.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUnreadCache constructs a cache with the given TTL.
func NewUnreadCache(client *redis.Client, ttl time.Duration) *UnreadCache {
	return &UnreadCache{client: client, ttl: ttl}
}

func unreadKey(accountID, userID int64) string {
	return fmt.Sprintf("notifications:unread:%d:%d", accountID, userID)
}

// Get returns the cached count; ok is false on miss or error.
func (c *UnreadCache) Get(ctx context.Context, accountID, userID int64) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	raw, err := c.client.Get(ctx, unreadKey(accountID, userID)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

// Set stores the count.
func (c *UnreadCache) Set(ctx context.Context, accountID, userID, count int64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, unreadKey(accountID, userID), count, c.ttl)
}

// Invalidate drops the cached count after a write.
func (c *UnreadCache) Invalidate(ctx context.Context, accountID, userID int64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, unreadKey(accountID, userID))
}
