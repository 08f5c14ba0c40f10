package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/logger"
)

// DefaultPageTTL is how long a fetched page stays cached.
const DefaultPageTTL = 24 * time.Hour

// PageCache is the subset of the go-redis client the cached fetcher needs.
type PageCache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// CachedFetcher wraps a Fetcher with a Redis page cache keyed by URL.
// Failed fetches are never cached.
type CachedFetcher struct {
	next   Fetcher
	cache  PageCache
	ttl    time.Duration
	logger *zap.Logger
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool
}

// NewCachedFetcher creates a cached fetcher. A zero ttl uses DefaultPageTTL.
func NewCachedFetcher(next Fetcher, cache PageCache, ttl time.Duration, log *zap.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: logger.OrNop(log)}
}

// Fetch implements Fetcher.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	res, err := f.FetchCached(ctx, urlStr)
	if err != nil {
		if res != nil {
			return res.Result, err
		}
		return nil, err
	}
	return res.Result, nil
}

// FetchCached returns the cached page when present, otherwise fetches and
// stores it.
func (f *CachedFetcher) FetchCached(ctx context.Context, urlStr string) (*CachedResult, error) {
	key := pageKey(urlStr)
	if cmd := f.cache.Get(ctx, key); cmd.Err() == nil {
		var cached Result
		if err := json.Unmarshal([]byte(cmd.Val()), &cached); err == nil {
			f.logger.Debug("page cache hit", zap.String("url", urlStr))
			return &CachedResult{Result: &cached, FromCache: true}, nil
		}
	}

	res, err := f.next.Fetch(ctx, urlStr)
	if err != nil {
		if res != nil {
			return &CachedResult{Result: res}, err
		}
		return nil, err
	}

	data, err := json.Marshal(res)
	if err == nil {
		if setErr := f.cache.Set(ctx, key, data, f.ttl).Err(); setErr != nil {
			f.logger.Warn("failed to cache page", zap.String("url", urlStr), zap.Error(setErr))
		}
	}
	return &CachedResult{Result: res}, nil
}

func pageKey(urlStr string) string {
	sum := sha256.Sum256([]byte(urlStr))
	return "page:" + hex.EncodeToString(sum[:])
}
