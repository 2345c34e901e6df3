// Package rankcache memoizes full ranked result sets per request. Storage is
// two-tier: a primary backend that may be unavailable (Redis) and an
// in-process fallback used automatically when the primary is unreachable.
// Backend failures never surface to callers, only as hit-rate degradation.
package rankcache

import (
	"context"
	"time"
)

// Backend is a single cache storage tier.
type Backend interface {
	// Get returns the stored value for key. found is false on a miss;
	// expired entries are indistinguishable from misses.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes all keys with the given prefix and returns the
	// number of keys removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
