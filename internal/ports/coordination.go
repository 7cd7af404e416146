package ports

import (
	"context"
	"time"
)

// Fixed-window limiter shared across workers.
type RateLimiter interface {
	// Allow reports whether the call identified by key fits in limit per window,
	// along with the current count.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Single-writer guard for a key.
type KeyLocker interface {
	// TryLock returns ok=false without error when another holder owns the key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}
