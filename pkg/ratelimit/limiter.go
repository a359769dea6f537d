// Package ratelimit limits how often a client may start a login.
package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ideamans/wunderlistauth/pkg/kvs"
)

// Limiter is a token bucket limiter whose buckets live in a kvs.Store, so
// limits are shared by every process using the same Redis backend.
// Buckets expire two intervals after their last refill.
type Limiter struct {
	kv       kvs.Store
	rate     int // tokens per interval
	interval time.Duration
	now      func() time.Time

	// Serializes the read-modify-write of a bucket within this process.
	mu sync.Mutex
}

type bucket struct {
	Tokens     int       `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

// NewLimiter creates a limiter allowing rate requests per interval and key
func NewLimiter(rate int, interval time.Duration, kv kvs.Store) *Limiter {
	return &Limiter{
		kv:       kv,
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// Allow takes a token for key. Store errors allow the request: a broken
// store must not lock every user out.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.rate <= 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := bucket{Tokens: l.rate, LastRefill: now}

	if data, err := l.kv.Get(ctx, key); err == nil {
		var stored bucket
		if json.Unmarshal(data, &stored) == nil {
			b = stored
		}
	}

	if elapsed := now.Sub(b.LastRefill); elapsed >= l.interval {
		b.Tokens = l.rate
		b.LastRefill = b.LastRefill.Add(elapsed / l.interval * l.interval)
	}

	if b.Tokens <= 0 {
		return false
	}
	b.Tokens--

	if data, err := json.Marshal(b); err == nil {
		_ = l.kv.Set(ctx, key, data, 2*l.interval)
	}
	return true
}

// Reset clears the bucket for key
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.kv.Delete(ctx, key)
}
