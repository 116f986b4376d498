package workers

import (
	"context"
	"time"
)

// TaskRegistry is the janitor's view of the orchestrator
type TaskRegistry interface {
	SweepExpired() int
	Len() int
}

// TaskJanitorWorker drops terminal analysis tasks past their retention
// window so the in-memory registry stays bounded even when results are
// never streamed out.
type TaskJanitorWorker struct {
	*BaseWorker
	registry TaskRegistry
}

// NewTaskJanitorWorker creates the task retention janitor
func NewTaskJanitorWorker(registry TaskRegistry, interval time.Duration, enabled bool) *TaskJanitorWorker {
	return &TaskJanitorWorker{
		BaseWorker: NewBaseWorker("task_janitor", interval, enabled),
		registry:   registry,
	}
}

// Run performs one retention sweep
func (w *TaskJanitorWorker) Run(ctx context.Context) error {
	start := time.Now()

	removed := w.registry.SweepExpired()
	if removed > 0 {
		w.Log().Infow("Expired tasks removed",
			"removed", removed,
			"remaining", w.registry.Len(),
		)
	}

	w.RecordRun(time.Since(start))
	return nil
}
