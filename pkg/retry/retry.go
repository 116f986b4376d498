package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/DevDizzle/profit-scout/pkg/errors"
)

// Config configures bounded retry with exponential backoff
type Config struct {
	MaxAttempts int           // Total attempts including the first (e.g. 3)
	BaseDelay   time.Duration // Initial backoff (e.g. 500ms)
	MaxDelay    time.Duration // Backoff cap (e.g. 10s)
	Multiplier  float64       // Backoff growth factor (e.g. 2.0)
}

// DefaultConfig returns the conservative policy used for external calls
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 2.0
	}
	return c
}

// Transient marks an error as retryable. Non-transient errors abort immediately.
type Transient struct {
	Err error
}

func (t *Transient) Error() string { return t.Err.Error() }
func (t *Transient) Unwrap() error { return t.Err }

// Mark wraps err so Do treats it as transient
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return &Transient{Err: err}
}

// IsTransient reports whether err was marked transient
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// Do runs fn up to cfg.MaxAttempts times, sleeping an exponentially growing,
// jittered delay between attempts. Only transient errors are retried; the
// context aborts the wait. Returns the last error after attempts exhaust.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	delay := cfg.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "retry aborted")
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		// Up to 25% jitter keeps concurrent retries from aligning
		sleep := delay + time.Duration(rand.Int63n(int64(delay)/4+1))
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry aborted")
		case <-time.After(sleep):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
