// Package cache is the read-side query cache. Entries live under versioned
// keys, so invalidating a namespace is a single counter increment that makes
// every query shape cached in it unreachable at once.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Namespace groups the cache entries invalidated together.
type Namespace string

const (
	Documents  Namespace = "documents"
	Categories Namespace = "categories"
)

// Params identify one variant of a query shape, e.g. limit and offset.
type Params map[string]string

// Backend is the storage primitive under Cache.
type Backend interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr atomically increments an integer key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter reads an integer key, 0 when absent.
	Counter(ctx context.Context, key string) (int64, error)
	Close() error
}

// Cache wraps a Backend with versioned keys, JSON encoding and per-namespace TTLs.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	backend Backend
	prefix  string
	ttls    map[Namespace]time.Duration
	log     *slog.Logger
	metrics *Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the freshness window for a namespace.
func WithTTL(ns Namespace, ttl time.Duration) Option {
	return func(c *Cache) { c.ttls[ns] = ttl }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns a Cache over backend. Default TTLs are 30 minutes for
// documents and 24 hours for categories.
func New(backend Backend, prefix string, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		prefix:  prefix,
		ttls: map[Namespace]time.Duration{
			Documents:  30 * time.Minute,
			Categories: 24 * time.Hour,
		},
		log: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key renders "<prefix>:<namespace>:v<version>:<shape>:<k=v,...>" with
// params sorted by name and escaped.
func Key(prefix string, ns Namespace, version int64, shape string, params Params) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	return fmt.Sprintf("%s:%s:v%d:%s:%s", prefix, ns, version, shape, strings.Join(pairs, ","))
}

// VersionKey is where the current version of ns is stored.
func VersionKey(prefix string, ns Namespace) string {
	return fmt.Sprintf("%s:%s:version", prefix, ns)
}

// Invalidate bumps the namespace version.
func (c *Cache) Invalidate(ctx context.Context, ns Namespace) error {
	if c == nil {
		return nil
	}
	if _, err := c.backend.Incr(ctx, VersionKey(c.prefix, ns)); err != nil {
		return fmt.Errorf("invalidate %s: %w", ns, err)
	}
	return nil
}

// Close releases the backend.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.backend.Close()
}

// Remember returns the cached value for (ns, shape, params) or computes,
// stores and returns it. Cache failures are logged and never fail the read.
func Remember[T any](ctx context.Context, c *Cache, ns Namespace, shape string, params Params, compute func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}

	version, err := c.backend.Counter(ctx, VersionKey(c.prefix, ns))
	if err != nil {
		c.fail(ctx, "version", ns, err)
		return compute(ctx)
	}
	key := Key(c.prefix, ns, version, shape, params)

	raw, ok, err := c.backend.Get(ctx, key)
	switch {
	case err != nil:
		c.fail(ctx, "get", ns, err)
		return compute(ctx)
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.metrics.observe(resultHit)
			return v, nil
		}
		c.log.WarnContext(ctx, "cache entry undecodable", "key", key)
	}
	c.metrics.observe(resultMiss)

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	if b, err := json.Marshal(v); err != nil {
		c.fail(ctx, "encode", ns, err)
	} else if err := c.backend.Set(ctx, key, b, c.ttls[ns]); err != nil {
		c.fail(ctx, "set", ns, err)
	}
	return v, nil
}

func (c *Cache) fail(ctx context.Context, op string, ns Namespace, err error) {
	c.metrics.observe(resultError)
	c.log.WarnContext(ctx, "cache operation failed", "op", op, "namespace", string(ns), "error", err)
}
