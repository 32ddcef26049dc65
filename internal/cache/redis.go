package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/friender/internal/config"
)

// CounterTTL bounds how long a cached counter may live without being touched.
const CounterTTL = time.Hour

// RedisCache holds derived counters. Every value here can be rebuilt from
// the database, so callers treat errors as misses.
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

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForUnreadCount generates the Redis key for a user's unread message count.
func (c *RedisCache) KeyForUnreadCount(username string) string {
	return fmt.Sprintf("messages:unread:%s", username)
}

// GetCounter reads a cached counter. ok is false on a miss or a value that
// does not parse; a hit refreshes the TTL.
func (c *RedisCache) GetCounter(ctx context.Context, key string) (n int64, ok bool, err error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, perr := strconv.ParseInt(val, 10, 64)
	if perr != nil {
		return 0, false, nil
	}
	_ = c.Client.Expire(ctx, key, CounterTTL).Err()
	return n, true, nil
}

// SetCounter stores a counter with CounterTTL.
func (c *RedisCache) SetCounter(ctx context.Context, key string, n int64) error {
	return c.Client.Set(ctx, key, strconv.FormatInt(n, 10), CounterTTL).Err()
}
