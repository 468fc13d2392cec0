// Package cache keeps fetched catalog record sets so repeated runs over the
// same archive query skip the network. Stores are keyed by the query key of
// the wrapped source; concurrent fetches of one key share a single request.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/redis"
)

const keyPrefix = "catalog:"

// Store holds record sets by key. Get reports a miss for any failure.
type Store interface {
	Get(ctx context.Context, key string) ([]catalog.RawRecord, bool)
	Set(ctx context.Context, key string, records []catalog.RawRecord)
	// Clear drops every cached record set and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}

// MemoryStore is an in-process Store with per-entry expiry.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a MemoryStore whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(ttl, 2*ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]catalog.RawRecord, bool) {
	v, ok := s.c.Get(keyPrefix + key)
	if !ok {
		return nil, false
	}
	records, ok := v.([]catalog.RawRecord)
	if !ok {
		return nil, false
	}
	return slices.Clone(records), true
}

func (s *MemoryStore) Set(_ context.Context, key string, records []catalog.RawRecord) {
	s.c.Set(keyPrefix+key, slices.Clone(records), gocache.DefaultExpiration)
}

func (s *MemoryStore) Clear(context.Context) (int64, error) {
	n := int64(s.c.ItemCount())
	s.c.Flush()
	return n, nil
}

// RedisStore keeps record sets as JSON arrays in Redis.
type RedisStore struct {
	client *pkgredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore creates a RedisStore over an open client.
func NewRedisStore(client *pkgredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "catalog-cache"),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]catalog.RawRecord, bool) {
	data, found, err := s.client.Load(ctx, keyPrefix+key)
	if err != nil {
		s.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	records, err := catalog.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Error("cache decode failed", "key", key, "error", err)
		return nil, false
	}
	return records, true
}

func (s *RedisStore) Set(ctx context.Context, key string, records []catalog.RawRecord) {
	if records == nil {
		records = []catalog.RawRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		s.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := s.client.Store(ctx, keyPrefix+key, data, s.ttl); err != nil {
		s.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Clear deletes every catalog:* key.
func (s *RedisStore) Clear(ctx context.Context) (int64, error) {
	n, err := s.client.DeleteMatching(ctx, keyPrefix+"*")
	if err != nil {
		return n, fmt.Errorf("clearing catalog cache: %w", err)
	}
	return n, nil
}

// KeyFunc derives the cache key for a fetch of limit records.
type KeyFunc func(limit int) string

// CachedSource serves a Source through a Store.
type CachedSource struct {
	source  catalog.Source
	store   Store
	key     KeyFunc
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCachedSource wraps source. m may be nil.
func NewCachedSource(source catalog.Source, store Store, key KeyFunc, m *metrics.Metrics) *CachedSource {
	return &CachedSource{
		source:  source,
		store:   store,
		key:     key,
		metrics: m,
		logger:  slog.Default().With("component", "catalog-cache"),
	}
}

// Fetch returns the cached record set for limit or fetches and stores it.
func (c *CachedSource) Fetch(ctx context.Context, limit int) ([]catalog.RawRecord, error) {
	key := c.key(limit)
	if records, ok := c.lookup(ctx, key); ok {
		return records, nil
	}
	val, err, shared := c.group.Do(key, func() (any, error) {
		if records, ok := c.store.Get(ctx, key); ok {
			return records, nil
		}
		records, err := c.source.Fetch(ctx, limit)
		if err != nil {
			return nil, err
		}
		c.store.Set(ctx, key, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	records := val.([]catalog.RawRecord)
	if shared {
		records = slices.Clone(records)
	}
	return records, nil
}

func (c *CachedSource) lookup(ctx context.Context, key string) ([]catalog.RawRecord, bool) {
	records, ok := c.store.Get(ctx, key)
	result := "miss"
	if ok {
		result = "hit"
		c.hits.Add(1)
		c.logger.Debug("cache hit", "key", key, "records", len(records))
	} else {
		c.misses.Add(1)
	}
	if c.metrics != nil {
		c.metrics.CatalogCacheTotal.WithLabelValues(result).Inc()
	}
	return records, ok
}

// Stats returns the hit and miss counts.
func (c *CachedSource) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Open builds the Store selected by cfg. The returned close function
// releases any connection and is never nil. A "none" backend yields a nil
// Store.
func Open(ctx context.Context, cfg config.CacheConfig, redisCfg config.RedisConfig) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "", "none":
		return nil, noop, nil
	case "memory":
		return NewMemoryStore(cfg.TTL), noop, nil
	case "redis":
		client, err := pkgredis.Dial(ctx, redisCfg)
		if err != nil {
			return nil, noop, fmt.Errorf("opening catalog cache: %w", err)
		}
		return NewRedisStore(client, cfg.TTL), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
