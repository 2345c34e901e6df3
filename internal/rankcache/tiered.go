package rankcache

import (
	"context"
	"time"

	"livebetter/internal/common/logger"
	"livebetter/internal/common/metrics"
)

// TieredBackend routes operations to the primary tier and falls back to the
// in-process tier only when the primary returns an error. A clean miss on
// the primary is a miss; the fallback exists for availability, not capacity.
type TieredBackend struct {
	primary  Backend
	fallback Backend
	logger   logger.Logger
}

// NewTieredBackend composes a primary and fallback tier.
func NewTieredBackend(primary, fallback Backend, log logger.Logger) *TieredBackend {
	return &TieredBackend{primary: primary, fallback: fallback, logger: log}
}

func (t *TieredBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, err := t.primary.Get(ctx, key)
	if err == nil {
		if found {
			metrics.CacheHits.WithLabelValues("primary").Inc()
		}
		return value, found, nil
	}

	metrics.CacheBackendErrors.WithLabelValues("primary").Inc()
	t.logger.WithError(err).Warn("Primary cache tier unavailable, trying fallback", nil)

	value, found, err = t.fallback.Get(ctx, key)
	if err != nil {
		metrics.CacheBackendErrors.WithLabelValues("fallback").Inc()
		return nil, false, err
	}
	if found {
		metrics.CacheHits.WithLabelValues("fallback").Inc()
	}
	return value, found, nil
}

func (t *TieredBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.primary.Set(ctx, key, value, ttl); err != nil {
		metrics.CacheBackendErrors.WithLabelValues("primary").Inc()
		t.logger.WithError(err).Warn("Primary cache tier rejected write, using fallback", nil)
		if err := t.fallback.Set(ctx, key, value, ttl); err != nil {
			metrics.CacheBackendErrors.WithLabelValues("fallback").Inc()
			return err
		}
	}
	return nil
}

func (t *TieredBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	// Invalidation must reach both tiers; a stale fallback entry would
	// otherwise resurface after a primary outage.
	removed, primaryErr := t.primary.DeletePrefix(ctx, prefix)
	if primaryErr != nil {
		metrics.CacheBackendErrors.WithLabelValues("primary").Inc()
		t.logger.WithError(primaryErr).Warn("Primary cache tier invalidation failed", nil)
	}
	fallbackRemoved, fallbackErr := t.fallback.DeletePrefix(ctx, prefix)
	removed += fallbackRemoved
	if primaryErr != nil {
		return removed, primaryErr
	}
	return removed, fallbackErr
}

func (t *TieredBackend) Ping(ctx context.Context) error {
	return t.primary.Ping(ctx)
}
