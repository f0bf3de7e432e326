package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshUsePrefix = "artk"

// refreshRevocationStore marks refresh token ids as used. SetNX gives the
// first presenter of a jti the write; everyone after sees firstUse=false,
// which the engine treats as reuse when rotation is enforced.
type refreshRevocationStore struct {
	redis *redis.Client
}

func newRefreshRevocationStore(client *redis.Client) *refreshRevocationStore {
	return &refreshRevocationStore{redis: client}
}

func (s *refreshRevocationStore) key(jti string) string {
	return refreshUsePrefix + ":" + jti
}

// Use records the jti and reports whether this was its first use. The entry
// lives as long as the token could still be replayed, so ttl should be the
// token's remaining lifetime.
func (s *refreshRevocationStore) Use(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	firstUse, err := s.redis.SetNX(ctx, s.key(jti), "used", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return firstUse, nil
}
