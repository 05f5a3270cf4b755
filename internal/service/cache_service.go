package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheService stores JSON snapshots of list responses in Redis. Each
// namespace carries a generation counter; invalidation bumps the counter so
// stale snapshots simply fall out of reach and expire on their TTL. A nil
// CacheService disables caching.
type CacheService struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *MetricsService
}

// NewCacheService constructs the cache layer.
func NewCacheService(client *redis.Client, ttl time.Duration, logger *zap.Logger, metrics *MetricsService) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{client: client, ttl: ttl, logger: logger, metrics: metrics}
}

// Get loads a cached snapshot into out, reporting whether it was present.
// Cache failures degrade to a miss, never to a request failure.
func (c *CacheService) Get(ctx context.Context, namespace, key string, out interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	payload, err := c.client.Get(ctx, c.fullKey(ctx, namespace, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", zap.String("namespace", namespace), zap.Error(err))
		}
		c.metrics.RecordCacheLookup(false)
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("namespace", namespace), zap.Error(err))
		c.metrics.RecordCacheLookup(false)
		return false
	}
	c.metrics.RecordCacheLookup(true)
	return true
}

// Set stores a snapshot under the namespace's current generation.
func (c *CacheService) Set(ctx context.Context, namespace, key string, value interface{}) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.fullKey(ctx, namespace, key), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("namespace", namespace), zap.Error(err))
	}
}

// Invalidate bumps the namespace generation, orphaning every snapshot
// written under the previous one.
func (c *CacheService) Invalidate(ctx context.Context, namespace string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, genKey(namespace)).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.String("namespace", namespace), zap.Error(err))
	}
}

func (c *CacheService) fullKey(ctx context.Context, namespace, key string) string {
	gen, err := c.client.Get(ctx, genKey(namespace)).Int64()
	if err != nil && err != redis.Nil {
		gen = 0
	}
	return fmt.Sprintf("%s:%d:%s", namespace, gen, key)
}

func genKey(namespace string) string {
	return namespace + ":gen"
}
