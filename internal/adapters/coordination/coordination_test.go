package coordination

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *Locker, *RateLimiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, NewLocker(c), NewRateLimiter(c)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr, _, rl := newClient(t)

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)

	mr.FastForward(2 * time.Minute)
	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}

func TestLocker_SingleHolder(t *testing.T) {
	mr, l, _ := newClient(t)
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "lock:route:acme:2026-06-15", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "lock:route:acme:2026-06-15", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, unlock(ctx))
	require.False(t, mr.Exists("lock:route:acme:2026-06-15"))

	_, ok, err = l.TryLock(ctx, "lock:route:acme:2026-06-15", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLocker_StaleUnlockKeepsNewHolder(t *testing.T) {
	mr, l, _ := newClient(t)
	ctx := context.Background()

	stale, ok, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, stale(ctx))
	require.True(t, mr.Exists("k"))
}

func TestNewRedisClient_BadAddr(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisClient(ctx, "127.0.0.1:1")
	require.Error(t, err)
}
