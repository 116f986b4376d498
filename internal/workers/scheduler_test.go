package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	*BaseWorker
	runs    int32
	runFunc func(ctx context.Context) error
}

func newCountingWorker(name string, interval time.Duration, enabled bool) *countingWorker {
	return &countingWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
	}
}

func (w *countingWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&w.runs, 1)
	if w.runFunc != nil {
		return w.runFunc(ctx)
	}
	return nil
}

func (w *countingWorker) Runs() int {
	return int(atomic.LoadInt32(&w.runs))
}

func TestScheduler_RunsEnabledWorkersOnInterval(t *testing.T) {
	scheduler := NewScheduler()

	enabled := newCountingWorker("enabled", 50*time.Millisecond, true)
	disabled := newCountingWorker("disabled", 50*time.Millisecond, false)
	scheduler.RegisterWorker(enabled)
	scheduler.RegisterWorker(disabled)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(180 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// Immediate run plus at least two ticks
	assert.GreaterOrEqual(t, enabled.Runs(), 3)
	assert.Equal(t, 0, disabled.Runs())
}

func TestScheduler_StopWaitsForInFlightRun(t *testing.T) {
	scheduler := NewScheduler()

	var finished atomic.Bool
	worker := newCountingWorker("slow", 50*time.Millisecond, true)
	worker.runFunc = func(ctx context.Context) error {
		time.Sleep(80 * time.Millisecond)
		finished.Store(true)
		return nil
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.True(t, finished.Load())
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newCountingWorker("w", 50*time.Millisecond, true))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Error(t, scheduler.Start(context.Background()))

	_ = scheduler.Stop()
}

func TestScheduler_SurvivesWorkerError(t *testing.T) {
	scheduler := NewScheduler()

	worker := newCountingWorker("flaky", 40*time.Millisecond, true)
	worker.runFunc = func(ctx context.Context) error {
		return assert.AnError
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	// Errors are logged, not fatal; the worker keeps its schedule
	assert.GreaterOrEqual(t, worker.Runs(), 3)
}
