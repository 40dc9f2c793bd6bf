// Package cache stores serialized parse results in two levels: an
// in-process go-cache (L1) in front of Redis (L2) shared by all replicas.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/resilience"
)

// Entry is the cached form of a successful parse.
type Entry struct {
	Parsed              map[string]any `json:"parsed"`
	CrossSearchStrategy string         `json:"crossSearchStrategy"`
	Classes             []string       `json:"classes"`
	FeaturesUsed        []string       `json:"featuresUsed"`
	Warnings            []string       `json:"warnings,omitempty"`
}

// NewEntry captures everything the service reports about pq.
func NewEntry(pq *ast.ParsedQuery) *Entry {
	e := &Entry{
		Parsed:              pq.ToArray(),
		CrossSearchStrategy: pq.CrossSearchStrategy().String(),
		Classes:             pq.Classes(),
		FeaturesUsed:        pq.FeaturesUsed(),
	}
	if e.Classes == nil {
		e.Classes = []string{}
	}
	for _, w := range pq.Warnings() {
		e.Warnings = append(e.Warnings, w.Message)
	}
	return e
}

// Level says where a cached entry came from.
type Level string

const (
	LevelNone   Level = ""
	LevelLocal  Level = "local"
	LevelRemote Level = "redis"
)

// Store is the shared L2 backend. *pkgredis.Client implements it; Get
// returns pkgredis.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	LocalHits  int64  `json:"localHits"`
	RemoteHits int64  `json:"remoteHits"`
	Misses     int64  `json:"misses"`
	LocalItems int    `json:"localItems"`
	Remote     bool   `json:"remote"`
	Breaker    string `json:"breaker,omitempty"`
}

// ParseCache is safe for concurrent use.
type ParseCache struct {
	local     *gocache.Cache
	remote    Store
	remoteTTL time.Duration
	timeout   time.Duration
	prefix    string
	breaker   *resilience.CircuitBreaker
	group     singleflight.Group
	metrics   *metrics.Metrics
	logger    *slog.Logger

	localHits  atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
}

// New creates a cache. remote and m may be nil; without remote only the
// in-process level is used.
func New(cfg config.CacheConfig, remoteTTL time.Duration, remote Store, m *metrics.Metrics) *ParseCache {
	c := &ParseCache{
		local:     gocache.New(cfg.LocalTTL, cfg.CleanupInterval),
		remote:    remote,
		remoteTTL: remoteTTL,
		timeout:   cfg.RemoteTimeout,
		prefix:    cfg.KeyPrefix,
		metrics:   m,
		logger:    slog.Default().With("component", "parse-cache"),
	}
	if remote != nil {
		c.breaker = resilience.NewCircuitBreaker("parse-cache-redis", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
			OnStateChange: func(name string, to resilience.State) {
				if m != nil {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		})
	}
	return c
}

// Key derives the cache key for query under the parser configuration
// identified by fingerprint. Queries are hashed verbatim: offsets in the
// result depend on every code point.
func (c *ParseCache) Key(fingerprint, query string) string {
	sum := sha256.Sum256([]byte(fingerprint + "\x00" + query))
	return c.prefix + hex.EncodeToString(sum[:16])
}

// Get looks key up in L1, then L2. An L2 hit is copied into L1.
func (c *ParseCache) Get(ctx context.Context, key string) (*Entry, Level, bool) {
	if v, ok := c.local.Get(key); ok {
		c.localHits.Add(1)
		c.observeHit(LevelLocal)
		return v.(*Entry), LevelLocal, true
	}
	if e, ok := c.getRemote(ctx, key); ok {
		c.local.SetDefault(key, e)
		c.remoteHits.Add(1)
		c.observeHit(LevelRemote)
		return e, LevelRemote, true
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return nil, LevelNone, false
}

// Set stores e in both levels. L2 failures are logged, not returned.
func (c *ParseCache) Set(ctx context.Context, key string, e *Entry) {
	c.local.SetDefault(key, e)
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.callRemote(ctx, "redis.set", func(ctx context.Context) error {
		return c.remote.Set(ctx, key, data, c.remoteTTL)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry for key or computes, stores and
// returns it. Concurrent misses on one key share a single compute call.
// Errors from compute are returned and never cached.
func (c *ParseCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func() (*Entry, error),
) (*Entry, Level, error) {
	if e, level, ok := c.Get(ctx, key); ok {
		return e, level, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.local.Get(key); ok {
			return v.(*Entry), nil
		}
		e, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, e)
		return e, nil
	})
	if err != nil {
		return nil, LevelNone, err
	}
	return v.(*Entry), LevelNone, nil
}

// FlushLocal drops every L1 entry.
func (c *ParseCache) FlushLocal() {
	c.local.Flush()
}

// Invalidate drops L1 and every L2 key under the cache prefix.
func (c *ParseCache) Invalidate(ctx context.Context) (int64, error) {
	c.FlushLocal()
	if c.remote == nil {
		return 0, nil
	}
	deleted, err := c.remote.DeletePrefix(ctx, c.prefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating parse cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *ParseCache) Stats() Stats {
	s := Stats{
		LocalHits:  c.localHits.Load(),
		RemoteHits: c.remoteHits.Load(),
		Misses:     c.misses.Load(),
		LocalItems: c.local.ItemCount(),
		Remote:     c.remote != nil,
	}
	if c.breaker != nil {
		s.Breaker = c.breaker.GetState().String()
	}
	return s
}

func (c *ParseCache) getRemote(ctx context.Context, key string) (*Entry, bool) {
	if c.remote == nil {
		return nil, false
	}
	var data string
	found := false
	err := c.callRemote(ctx, "redis.get", func(ctx context.Context) error {
		v, err := c.remote.Get(ctx, key)
		if errors.Is(err, pkgredis.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &e, true
}

// callRemote runs fn through the breaker with the configured timeout and
// counts failures by kind.
func (c *ParseCache) callRemote(ctx context.Context, op string, fn func(context.Context) error) error {
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, op, fn)
	})
	if err != nil && c.metrics != nil {
		c.metrics.CacheRemoteErrors.WithLabelValues(op, resilience.ErrorKind(err)).Inc()
	}
	return err
}

func (c *ParseCache) observeHit(level Level) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(string(level)).Inc()
	}
}
