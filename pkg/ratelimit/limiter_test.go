package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ideamans/wunderlistauth/pkg/kvs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryLimiter(t *testing.T, rate int, interval time.Duration) *Limiter {
	t.Helper()
	kv := kvs.NewMemoryStore("ratelimit", kvs.MemoryConfig{})
	t.Cleanup(func() { _ = kv.Close() })
	return NewLimiter(rate, interval, kv)
}

func TestLimiter_Allow(t *testing.T) {
	limiter := newMemoryLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(ctx, "10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, limiter.Allow(ctx, "10.0.0.1"))

	assert.True(t, limiter.Allow(ctx, "10.0.0.2"), "keys are independent")
}

func TestLimiter_Refill(t *testing.T) {
	limiter := newMemoryLimiter(t, 2, time.Minute)
	ctx := context.Background()

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow(ctx, "k"))
	assert.True(t, limiter.Allow(ctx, "k"))
	assert.False(t, limiter.Allow(ctx, "k"))

	now = now.Add(59 * time.Second)
	assert.False(t, limiter.Allow(ctx, "k"))

	now = now.Add(2 * time.Second)
	assert.True(t, limiter.Allow(ctx, "k"))
	assert.True(t, limiter.Allow(ctx, "k"))
	assert.False(t, limiter.Allow(ctx, "k"))
}

func TestLimiter_ZeroRate(t *testing.T) {
	limiter := newMemoryLimiter(t, 0, time.Minute)
	assert.False(t, limiter.Allow(context.Background(), "k"))
}

func TestLimiter_Reset(t *testing.T) {
	limiter := newMemoryLimiter(t, 1, time.Hour)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "k"))
	assert.False(t, limiter.Allow(ctx, "k"))

	require.NoError(t, limiter.Reset(ctx, "k"))
	assert.True(t, limiter.Allow(ctx, "k"))
}

func TestLimiter_CorruptBucket(t *testing.T) {
	kv := kvs.NewMemoryStore("ratelimit", kvs.MemoryConfig{})
	defer kv.Close()
	require.NoError(t, kv.Set(context.Background(), "k", []byte("not json"), 0))

	limiter := NewLimiter(1, time.Hour, kv)
	assert.True(t, limiter.Allow(context.Background(), "k"))
	assert.False(t, limiter.Allow(context.Background(), "k"))
}

func TestLimiter_ClosedStoreFailsOpen(t *testing.T) {
	kv := kvs.NewMemoryStore("ratelimit", kvs.MemoryConfig{})
	require.NoError(t, kv.Close())

	limiter := NewLimiter(1, time.Hour, kv)
	assert.True(t, limiter.Allow(context.Background(), "k"))
	assert.True(t, limiter.Allow(context.Background(), "k"))
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := newMemoryLimiter(t, 10, time.Hour)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(context.Background(), "k") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), allowed.Load())
}

func TestLimiter_RedisBucketExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	kv, err := kvs.NewRedisStore("login:ratelimit", kvs.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer kv.Close()

	limiter := NewLimiter(1, time.Minute, kv)
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1"))
	assert.True(t, mr.Exists("login:ratelimit:10.0.0.1"))
	assert.Equal(t, 2*time.Minute, mr.TTL("login:ratelimit:10.0.0.1"))

	mr.FastForward(3 * time.Minute)
	assert.False(t, mr.Exists("login:ratelimit:10.0.0.1"))
}
