package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/DevDizzle/profit-scout/pkg/errors"
)

// Limiter wraps a token bucket limiter for a single consumer
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a limiter allowing requestsPerWindow requests per window,
// with a burst of the full window budget so a quiet sender can use it at once.
func NewLimiter(name string, requestsPerWindow int, window time.Duration) *Limiter {
	if requestsPerWindow < 1 {
		requestsPerWindow = 1
	}
	rps := float64(requestsPerWindow) / window.Seconds()
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), requestsPerWindow),
		name:    name,
	}
}

// Wait blocks until the limiter allows the request
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

type entry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// KeyedLimiter maintains one limiter per key (sender id, provider name).
// Idle entries are evicted by Sweep so the map stays bounded over the
// process lifetime.
type KeyedLimiter struct {
	mu                sync.Mutex
	entries           map[string]*entry
	requestsPerWindow int
	window            time.Duration
}

// NewKeyedLimiter creates a keyed limiter with a shared per-key budget
func NewKeyedLimiter(requestsPerWindow int, window time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		entries:           make(map[string]*entry),
		requestsPerWindow: requestsPerWindow,
		window:            window,
	}
}

// Allow checks whether key may proceed, creating its limiter on first use
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: NewLimiter(key, k.requestsPerWindow, k.window)}
		k.entries[key] = e
	}
	e.lastSeen = time.Now()
	k.mu.Unlock()

	return e.limiter.Allow()
}

// Len returns the number of tracked keys
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Sweep evicts keys not seen within maxIdle and returns the eviction count
func (k *KeyedLimiter) Sweep(maxIdle time.Duration) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	evicted := 0
	for key, e := range k.entries {
		if e.lastSeen.Before(cutoff) {
			delete(k.entries, key)
			evicted++
		}
	}
	return evicted
}
