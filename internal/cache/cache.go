// Package cache memoizes the pure compress/cover computations behind a
// Redis-backed result cache.
//
// Caching is purely observational: a cache hit or miss never changes what
// Compress or Cover would have returned for the same input, it only
// avoids recomputing it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/flybeeper/geocover/internal/config"
	"github.com/flybeeper/geocover/internal/metrics"
)

const (
	// compressPrefix namespaces compress() memoization keys.
	compressPrefix = "geocover:compress:"
	// coverPrefix namespaces cover() memoization keys.
	coverPrefix = "geocover:cover:"
)

// Cache wraps a Redis client with the compress/cover memoization
// conventions. The zero value is not usable; construct with New.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// New connects to the Redis instance described by cfg. It does not
// verify connectivity; call Ping for that.
func New(cfg config.RedisConfig, logger *logrus.Entry) (*Cache, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	opt.PoolSize = cfg.PoolSize
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second

	return &Cache{
		client: redis.NewClient(opt),
		ttl:    cfg.TTL,
		logger: logger.WithField("component", "cache"),
	}, nil
}

// Ping verifies connectivity to the backing Redis instance.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// CompressKey returns the deterministic memoization key for a
// compress.Compress(geohashes, minLevel, maxLevel) call: a SHA-256 digest
// of the sorted, deduplicated input, so insertion order never affects the
// cache key.
func CompressKey(geohashes []string, minLevel, maxLevel int) string {
	sorted := append([]string(nil), geohashes...)
	sort.Strings(sorted)
	h := sha256.New()
	for i, g := range sorted {
		if i > 0 && g == sorted[i-1] {
			continue
		}
		h.Write([]byte(g))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "|%d|%d", minLevel, maxLevel)
	return compressPrefix + hex.EncodeToString(h.Sum(nil))
}

// CoverKey returns the deterministic memoization key for a Cover call
// over the given JSON-encoded polygon ring representation, precision, and
// criterion label.
func CoverKey(ringsJSON string, precision int, criterion string) string {
	h := sha256.New()
	h.Write([]byte(ringsJSON))
	fmt.Fprintf(h, "|%d|%s", precision, criterion)
	return coverPrefix + hex.EncodeToString(h.Sum(nil))
}

// GetStrings fetches a cached []string result (a compress or cover
// output) by key. The bool return is false on a miss; an error is only
// returned for backend failures, never for a miss.
func (c *Cache) GetStrings(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues(operationFor(key)).Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheErrors.WithLabelValues(operationFor(key)).Inc()
		return nil, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		metrics.CacheErrors.WithLabelValues(operationFor(key)).Inc()
		return nil, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	metrics.CacheHits.WithLabelValues(operationFor(key)).Inc()
	return out, true, nil
}

// SetStrings stores a []string result under key with the cache's
// configured TTL.
func (c *Cache) SetStrings(ctx context.Context, key string, values []string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues(operationFor(key)).Inc()
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func operationFor(key string) string {
	switch {
	case len(key) >= len(compressPrefix) && key[:len(compressPrefix)] == compressPrefix:
		return "compress"
	case len(key) >= len(coverPrefix) && key[:len(coverPrefix)] == coverPrefix:
		return "cover"
	default:
		return "unknown"
	}
}
