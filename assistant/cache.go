package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ============================================================================
// ANSWER CACHE — Identical requests reuse the previous answer
// ============================================================================
// A request is identified by a SHA-256 of its JSON form (system prompt,
// history, user prompt). The data context is part of the user prompt, so a
// snapshot reload naturally produces new keys.
// ============================================================================

// Cache stores answers by request key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, answer string) error
}

// RedisCache keeps answers in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db).
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisCache{
		client: redis.NewClient(opts),
		prefix: "pulse:answer:",
		ttl:    ttl,
	}, nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, answer string) error {
	if err := c.client.Set(ctx, c.prefix+key, answer, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedGateway answers from the cache when it can. Cache failures are
// logged and never fail the request.
type CachedGateway struct {
	next   Gateway
	cache  Cache
	logger *zap.Logger
}

// WithCache wraps next. A nil logger disables logging.
func WithCache(next Gateway, cache Cache, logger *zap.Logger) *CachedGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGateway{next: next, cache: cache, logger: logger}
}

// Complete implements Gateway.
func (g *CachedGateway) Complete(ctx context.Context, req Request) (string, error) {
	key := RequestKey(req)

	if answer, ok, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Warn("⚠️ Pulse Cache: lookup failed", zap.Error(err))
	} else if ok {
		g.logger.Debug("Pulse Cache: hit", zap.String("key", key[:12]))
		return answer, nil
	}

	answer, err := g.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := g.cache.Set(ctx, key, answer); err != nil {
		g.logger.Warn("⚠️ Pulse Cache: store failed", zap.Error(err))
	}
	return answer, nil
}

// RequestKey is the hex SHA-256 of the request's JSON encoding.
func RequestKey(req Request) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
