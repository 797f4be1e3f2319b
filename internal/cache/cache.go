// Package cache memoizes normalized search results for a bounded time.
// It is a read-through TTL cache, not an eviction engine: expired entries are
// treated as absent and lazily replaced on the next access.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/domain"
)

// ErrKeyNotFound signals a missing or expired cache entry.
var ErrKeyNotFound = errors.New("cache key not found")

const keyPrefix = "assetlink:related:"

// Store is the consumer interface for the result cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives a deterministic cache key for one service's result list.
// Every part that can change which results a search would return must be a
// part here: record identity, enabled field-set signature, and the service's
// filter configuration. Any configuration change changes the key, so stale
// cross-configuration results can never leak.
func Key(service string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + service + ":" + hex.EncodeToString(h[:])
}

// ResultCache wraps a fetch function with TTL memoization.
type ResultCache struct {
	store      Store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(store Store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *ResultCache {
	return &ResultCache{store: store, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// GetOrFetch returns the cached result set for key, or invokes fetch, stores
// its outcome under key, and returns it. The second return reports whether
// the set was served from cache. Store failures degrade to a plain fetch:
// the cache never fails a request that the upstream could serve.
func (c *ResultCache) GetOrFetch(
	ctx context.Context, key string,
	fetch func(ctx context.Context) (domain.ResultSet, error),
) (domain.ResultSet, bool, error) {
	if rs, ok := c.get(ctx, key); ok {
		c.inc("hit")
		return rs, true, nil
	}
	c.inc("miss")

	rs, err := fetch(ctx)
	if err != nil {
		return domain.ResultSet{}, false, err
	}

	c.put(ctx, key, rs)
	return rs, false, nil
}

func (c *ResultCache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *ResultCache) get(ctx context.Context, key string) (domain.ResultSet, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.logger.Warn("Failed to read result cache", zap.String("key", key), zap.Error(err))
		}
		return domain.ResultSet{}, false
	}

	var rs domain.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		c.logger.Warn("Failed to decode cached results", zap.String("key", key), zap.Error(err))
		return domain.ResultSet{}, false
	}
	return rs, true
}

func (c *ResultCache) put(ctx context.Context, key string, rs domain.ResultSet) {
	data, err := json.Marshal(rs)
	if err != nil {
		c.logger.Warn("Failed to encode results for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to write result cache", zap.String("key", key), zap.Error(err))
	}
}
