package cache

import (
	"context"
	"log/slog"

	"docvault/internal/config"
)

// NewFromConfig builds the configured cache. It returns nil when caching is
// disabled. An unreachable Redis degrades to the in-process backend.
func NewFromConfig(ctx context.Context, cfg config.CacheConfig, log *slog.Logger, metrics *Metrics) *Cache {
	if !cfg.Enabled {
		log.InfoContext(ctx, "query cache disabled", "component", "cache")
		return nil
	}

	opts := []Option{WithLogger(log), WithMetrics(metrics)}
	if cfg.DocumentsTTL > 0 {
		opts = append(opts, WithTTL(Documents, cfg.DocumentsTTL))
	}
	if cfg.CategoriesTTL > 0 {
		opts = append(opts, WithTTL(Categories, cfg.CategoriesTTL))
	}

	if cfg.RedisURL != "" {
		backend, err := NewRedis(ctx, cfg.RedisURL)
		if err == nil {
			log.InfoContext(ctx, "query cache ready", "component", "cache", "backend", "redis")
			return New(backend, cfg.Prefix, opts...)
		}
		log.WarnContext(ctx, "redis unavailable, falling back to memory cache", "component", "cache", "error", err)
	}

	log.InfoContext(ctx, "query cache ready", "component", "cache", "backend", "memory")
	return New(NewMemory(), cfg.Prefix, opts...)
}
