package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// DefaultCacheTTL is used when NewCached receives a zero TTL
const DefaultCacheTTL = 5 * time.Minute

// RedisClient is the subset of the go-redis client the cache needs
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Cached wraps a Store with a Redis read-through cache for codexes, units
// and batches. Writes go to the backing store first, then refresh the cache.
// Cache failures are logged and never fail the operation.
type Cached struct {
	Store
	client RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached creates a cached store
func NewCached(backing Store, client RedisClient, ttl time.Duration, log *zap.Logger) *Cached {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{Store: backing, client: client, ttl: ttl, logger: logger.OrNop(log)}
}

// NewRedisClient connects to the Redis instance at url (redis://host:port/db)
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func codexKey(id string) string { return "codex:" + id }
func unitKey(id string) string  { return "unit:" + id }
func batchKey(id string) string { return "batch:" + id }

func (c *Cached) load(ctx context.Context, key string, dst any) bool {
	cached := c.client.Get(ctx, key)
	if cached.Err() != nil {
		return false
	}
	if err := json.Unmarshal([]byte(cached.Val()), dst); err != nil {
		c.logger.Debug("failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cached) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to marshal value for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache value", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cached) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("failed to invalidate cache entry", zap.String("key", key), zap.Error(err))
	}
}

// GetCodex reads through the cache
func (c *Cached) GetCodex(ctx context.Context, id string) (*types.Codex, error) {
	var codex types.Codex
	if c.load(ctx, codexKey(id), &codex) {
		return &codex, nil
	}
	out, err := c.Store.GetCodex(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(ctx, codexKey(id), out)
	return out, nil
}

// PutCodex writes through and drops the cached copy
func (c *Cached) PutCodex(ctx context.Context, codex *types.Codex) error {
	if err := c.Store.PutCodex(ctx, codex); err != nil {
		return err
	}
	c.invalidate(ctx, codexKey(codex.ID))
	return nil
}

// GetUnit reads through the cache
func (c *Cached) GetUnit(ctx context.Context, id string) (*types.ProcessingUnit, error) {
	var unit types.ProcessingUnit
	if c.load(ctx, unitKey(id), &unit) {
		return &unit, nil
	}
	out, err := c.Store.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(ctx, unitKey(id), out)
	return out, nil
}

// PutUnit writes through and refreshes the cached copy
func (c *Cached) PutUnit(ctx context.Context, unit *types.ProcessingUnit) error {
	if err := c.Store.PutUnit(ctx, unit); err != nil {
		return err
	}
	c.save(ctx, unitKey(unit.ID), unit)
	return nil
}

// GetBatch reads through the cache
func (c *Cached) GetBatch(ctx context.Context, id string) (*types.BatchJob, error) {
	var batch types.BatchJob
	if c.load(ctx, batchKey(id), &batch) {
		return &batch, nil
	}
	out, err := c.Store.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(ctx, batchKey(id), out)
	return out, nil
}

// PutBatch writes through and refreshes the cached copy
func (c *Cached) PutBatch(ctx context.Context, batch *types.BatchJob) error {
	if err := c.Store.PutBatch(ctx, batch); err != nil {
		return err
	}
	c.save(ctx, batchKey(batch.ID), batch)
	return nil
}
