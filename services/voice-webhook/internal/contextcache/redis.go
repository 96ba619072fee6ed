package contextcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares tenant bundles across webhook instances. Misses on any
// Redis error: the loader then falls back to the store, so a flaky Redis
// degrades to uncached reads instead of failed calls.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, prefix string, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "bizctx"
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *RedisCache) key(businessID string) string {
	return c.prefix + ":" + businessID
}

func (c *RedisCache) Get(ctx context.Context, businessID string) (Context, bool) {
	raw, err := c.rdb.Get(ctx, c.key(businessID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis context cache read failed", "business_id", businessID, "err", err)
		}
		return Context{}, false
	}
	var bc Context
	if err := json.Unmarshal(raw, &bc); err != nil {
		c.logger.Warn("redis context cache payload invalid", "business_id", businessID, "err", err)
		return Context{}, false
	}
	return bc, true
}

func (c *RedisCache) Set(ctx context.Context, businessID string, bc Context) {
	raw, err := json.Marshal(bc)
	if err != nil {
		c.logger.Warn("redis context cache encode failed", "business_id", businessID, "err", err)
		return
	}
	if err := c.rdb.Set(ctx, c.key(businessID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis context cache write failed", "business_id", businessID, "err", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, businessID string) {
	if err := c.rdb.Del(ctx, c.key(businessID)).Err(); err != nil {
		c.logger.Warn("redis context cache invalidate failed", "business_id", businessID, "err", err)
	}
}
