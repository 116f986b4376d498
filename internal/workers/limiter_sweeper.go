package workers

import (
	"context"
	"time"

	"github.com/DevDizzle/profit-scout/pkg/ratelimit"
)

// LimiterSweeperWorker evicts idle per-sender rate limiters so the keyed
// limiter map does not grow with every sender the service has ever seen
type LimiterSweeperWorker struct {
	*BaseWorker
	limiter *ratelimit.KeyedLimiter
	maxIdle time.Duration
}

// NewLimiterSweeperWorker creates the limiter eviction worker
func NewLimiterSweeperWorker(limiter *ratelimit.KeyedLimiter, interval, maxIdle time.Duration, enabled bool) *LimiterSweeperWorker {
	return &LimiterSweeperWorker{
		BaseWorker: NewBaseWorker("limiter_sweeper", interval, enabled),
		limiter:    limiter,
		maxIdle:    maxIdle,
	}
}

// Run evicts limiters idle longer than maxIdle
func (w *LimiterSweeperWorker) Run(ctx context.Context) error {
	start := time.Now()

	evicted := w.limiter.Sweep(w.maxIdle)
	if evicted > 0 {
		w.Log().Infow("Idle limiters evicted",
			"evicted", evicted,
			"remaining", w.limiter.Len(),
		)
	}

	w.RecordRun(time.Since(start))
	return nil
}
