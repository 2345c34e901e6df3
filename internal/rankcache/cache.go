package rankcache

import (
	"context"
	"time"

	"livebetter/internal/common/config"
	"livebetter/internal/common/logger"
	"livebetter/internal/common/metrics"
)

// Cache is the ranking result cache used by the orchestrator. All backend
// failures are absorbed: Get degrades to a miss, Set to a no-op. Ranking
// must keep working with no cache at all.
type Cache struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	logger  logger.Logger
	enabled bool
	// hitTier labels hits counted here when the backend is a single tier
	// that does not count its own. Empty for tiered backends.
	hitTier string
}

// New builds the result cache from configuration. primary may be nil, in
// which case only the in-process tier is used.
func New(cfg *config.CacheConfig, primary Backend, log logger.Logger) *Cache {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	fallback := NewMemoryBackend(cfg.MemoryLimit)
	var backend Backend = fallback
	hitTier := "memory"
	if primary != nil {
		backend = NewTieredBackend(primary, fallback, log)
		hitTier = ""
	}

	return &Cache{
		backend: backend,
		prefix:  cfg.KeyPrefix,
		ttl:     ttl,
		logger:  log,
		enabled: cfg.Enabled,
		hitTier: hitTier,
	}
}

// KeyFor derives the cache key for a request.
func (c *Cache) KeyFor(req interface{}) (string, error) {
	return RequestKey(c.prefix, req)
}

// Get returns the cached payload for key, or found=false on a miss or any
// backend failure.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	value, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).Warn("Cache read failed, treating as miss",
			map[string]interface{}{"key": key})
		return nil, false
	}
	if !found {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	if c.hitTier != "" {
		metrics.CacheHits.WithLabelValues(c.hitTier).Inc()
	}
	return value, true
}

// Set stores payload under key with the configured TTL. Failures are logged
// and dropped.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if !c.enabled {
		return
	}
	if err := c.backend.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.WithError(err).Warn("Cache write failed, result not cached",
			map[string]interface{}{"key": key})
	}
}

// InvalidateAll removes every cached ranking, across both tiers. Called
// after a catalog data refresh.
func (c *Cache) InvalidateAll(ctx context.Context) (int, error) {
	removed, err := c.backend.DeletePrefix(ctx, c.prefix)
	if err != nil {
		return removed, err
	}
	c.logger.Info("Invalidated cached rankings",
		map[string]interface{}{"removed": removed})
	return removed, nil
}

// Ping reports primary tier connectivity for health checks.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}
