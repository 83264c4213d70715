package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// KeyedLimiter hands out one token bucket per key, created on first use.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func NewKeyedLimiter(r rate.Limit, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

func (k *KeyedLimiter) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.r, k.burst)
		k.limiters[key] = l
	}
	return l
}

// Allow reports whether a request for key may proceed now and consumes a
// token if so.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.get(key).Allow()
}

// Wait blocks until a token for key is available or ctx is done.
func (k *KeyedLimiter) Wait(ctx context.Context, key string) error {
	return k.get(key).Wait(ctx)
}

func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}
