package authcore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const usernameCachePrefix = "uname"

// usernameCache is a best-effort negative-availability cache in front of the
// durable store. Only a positive "taken" hit short-circuits; a miss or any
// cache failure falls through to the store, which stays authoritative.
type usernameCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func newUsernameCache(client *redis.Client, ttl time.Duration) *usernameCache {
	return &usernameCache{
		redis: client,
		ttl:   ttl,
	}
}

func (c *usernameCache) key(name string) string {
	return usernameCachePrefix + ":" + name
}

// IsTaken reports a cached taken marker. False means unknown, not available.
func (c *usernameCache) IsTaken(ctx context.Context, name string) bool {
	if c == nil || c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, c.key(name)).Result()
	if err != nil {
		// Miss or cache trouble; the store stays authoritative either way.
		return false
	}
	return val == "taken"
}

func (c *usernameCache) MarkTaken(ctx context.Context, name string) {
	if c == nil || c.redis == nil || c.ttl <= 0 {
		return
	}
	_ = c.redis.Set(ctx, c.key(name), "taken", c.ttl).Err()
}

// Invalidate drops the marker for a name. Called when a claim frees the
// holder's previous name.
func (c *usernameCache) Invalidate(ctx context.Context, name string) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, c.key(name)).Err()
}
