package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

const redisKeyPrefix = "verify:addr:"

// RedisCache is a Redis implementation of the VerificationCache
// interface. Entries are stored as JSON with a native TTL, so Redis
// performs expiry server side and the periodic sweep is unnecessary.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr, password string, db int, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		logger: logger,
	}, nil
}

// Get retrieves a cached entry for an address
func (c *RedisCache) Get(ctx context.Context, address string) (*core.CacheEntry, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+address).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var entry core.CacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached entry: %w", err)
	}

	// Redis expires keys server side; this guards against clock skew
	if time.Now().After(entry.ExpiresAt) {
		if err := c.client.Del(ctx, redisKeyPrefix+address).Err(); err != nil {
			c.logger.Warn("Failed to evict expired cache entry", zap.Error(err), zap.String("address", address))
		}
		return nil, ErrExpired
	}

	return &entry, nil
}

// Set stores a cache entry with a TTL derived from its expiry time
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, redisKeyPrefix+entry.Address, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Cleanup is a no-op: Redis removes expired keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis connection
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
	}
}
