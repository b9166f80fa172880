package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amoradev/amora/internal/config"
)

// likeCountTTL bounds staleness of cached like counters.
const likeCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForLikeCount generates the Redis key for a user's like count.
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// GetLikeCount returns the cached like count for the user and whether
// the key was present. A hit refreshes the TTL.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	_ = c.Client.Expire(ctx, key, likeCountTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	return n, true, nil
}

// SetLikeCount overwrites the cached like count with a fresh TTL.
func (c *RedisCache) SetLikeCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikeCount(userID), count, likeCountTTL).Err()
}

// BumpLikeCount adjusts the cached like count by delta (+1 on like,
// -1 on dislike) and refreshes the TTL. No-op on a missing key would
// seed a wrong counter, so the key is created implicitly by INCR/DECR
// and corrected on the next DB fallback read.
func (c *RedisCache) BumpLikeCount(ctx context.Context, userID uint64, delta int64) error {
	key := c.KeyForLikeCount(userID)
	var err error
	if delta >= 0 {
		err = c.Client.IncrBy(ctx, key, delta).Err()
	} else {
		err = c.Client.DecrBy(ctx, key, -delta).Err()
	}
	if err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, likeCountTTL).Err()
}
