package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/pkg/errors"
)

type fakeStage struct {
	stage  task.Stage
	result task.StageResult
	delay  time.Duration
	calls  int32
}

func (f *fakeStage) Stage() task.Stage { return f.stage }

func (f *fakeStage) Run(ctx context.Context, _ string) task.StageResult {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return task.Failed(f.stage, ctx.Err())
		}
	}
	return f.result
}

type fakeSynth struct {
	calls  int32
	result task.StageResult
}

func (f *fakeSynth) Synthesize(ctx context.Context, t *task.Task) task.StageResult {
	atomic.AddInt32(&f.calls, 1)
	if ctx.Err() != nil {
		return task.Failed(task.StageSynthesis, ctx.Err())
	}
	return f.result
}

func okStage(stage task.Stage) *fakeStage {
	return &fakeStage{stage: stage, result: task.StageResult{Stage: stage, Text: "ok"}}
}

func failedStage(stage task.Stage) *fakeStage {
	return &fakeStage{stage: stage, result: task.Failed(stage, errors.ErrNoData)}
}

func okSynth() *fakeSynth {
	return &fakeSynth{result: task.StageResult{Stage: task.StageSynthesis, Text: "Buy."}}
}

func testOptions() Options {
	return Options{
		MaxActiveTasks:   16,
		StageTimeout:     time.Second,
		SynthesisTimeout: time.Second,
		Retention:        time.Minute,
		DeleteOnDelivery: true,
	}
}

// collectTerminal drains ch until a terminal notification or timeout,
// returning every received notification
func collectTerminal(t *testing.T, ch <-chan task.Notification) []task.Notification {
	t.Helper()

	var got []task.Notification
	deadline := time.After(2 * time.Second)
	for {
		select {
		case notif, open := <-ch:
			if !open {
				return got
			}
			got = append(got, notif)
			if notif.Status.Terminal() {
				return got
			}
		case <-deadline:
			t.Fatal("no terminal notification within deadline")
		}
	}
}

func TestStart_CompletesAndNotifiesOnce(t *testing.T) {
	svc := NewService(okStage(task.StageQuantitative), okStage(task.StageQualitative), okSynth(), testOptions())

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)
	assert.NotEmpty(t, tsk.ID)

	ch, unsubscribe, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	defer unsubscribe()

	got := collectTerminal(t, ch)
	require.NotEmpty(t, got)

	terminal := got[len(got)-1]
	assert.Equal(t, task.StatusCompleted, terminal.Status)
	for _, notif := range got[:len(got)-1] {
		assert.False(t, notif.Status.Terminal(), "only the last notification may be terminal")
	}

	var result task.Result
	require.NoError(t, json.Unmarshal(terminal.Data, &result))
	assert.Equal(t, "AAPL", result.Ticker)
	assert.Equal(t, "Buy.", result.Synthesis)
}

func TestStart_PartialStageFailureStillCompletes(t *testing.T) {
	svc := NewService(failedStage(task.StageQuantitative), okStage(task.StageQualitative), okSynth(), testOptions())

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	ch, unsubscribe, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	defer unsubscribe()

	got := collectTerminal(t, ch)
	assert.Equal(t, task.StatusCompleted, got[len(got)-1].Status)
}

func TestStart_BothStagesFailedFailsWithoutSynthesis(t *testing.T) {
	synth := okSynth()
	svc := NewService(failedStage(task.StageQuantitative), failedStage(task.StageQualitative), synth, testOptions())

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	ch, unsubscribe, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	defer unsubscribe()

	got := collectTerminal(t, ch)
	terminal := got[len(got)-1]
	assert.Equal(t, task.StatusError, terminal.Status,
		"failure must reach the wire as the error status")
	assert.Equal(t, int32(0), atomic.LoadInt32(&synth.calls))

	var detail task.ErrorDetail
	require.NoError(t, json.Unmarshal(terminal.Data, &detail))
	assert.Contains(t, detail.Message, "AAPL")

	snapshot, err := svc.Get(tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, snapshot.Status, "the tracked task keeps the internal status")
}

func TestSubscribe_LateSubscriberGetsTerminalImmediately(t *testing.T) {
	opts := testOptions()
	opts.DeleteOnDelivery = false
	svc := NewService(okStage(task.StageQuantitative), okStage(task.StageQualitative), okSynth(), opts)

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.Get(tsk.ID)
		return err == nil && got.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	ch, unsubscribe, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case notif := <-ch:
		assert.Equal(t, task.StatusCompleted, notif.Status)
	case <-time.After(time.Second):
		t.Fatal("late subscriber did not receive terminal notification")
	}
}

func TestSubscribe_DeleteOnDeliveryReleasesTask(t *testing.T) {
	svc := NewService(okStage(task.StageQuantitative), okStage(task.StageQualitative), okSynth(), testOptions())

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.Get(tsk.ID)
		return err == nil && got.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	// Late subscription delivers the stored terminal and drops the task
	ch, _, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	notif := <-ch
	assert.True(t, notif.Status.Terminal())

	_, err = svc.Get(tsk.ID)
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
}

func TestSubscribe_UnknownTask(t *testing.T) {
	svc := NewService(okStage(task.StageQuantitative), okStage(task.StageQualitative), okSynth(), testOptions())

	_, _, err := svc.Subscribe("no-such-task")
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
}

func TestCancel_FailsRunningTask(t *testing.T) {
	slowQuant := okStage(task.StageQuantitative)
	slowQuant.delay = 500 * time.Millisecond
	slowQual := okStage(task.StageQualitative)
	slowQual.delay = 500 * time.Millisecond
	synth := okSynth()

	svc := NewService(slowQuant, slowQual, synth, testOptions())

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	ch, unsubscribe, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, svc.Cancel(tsk.ID))

	got := collectTerminal(t, ch)
	assert.Equal(t, task.StatusError, got[len(got)-1].Status)
	assert.Equal(t, int32(0), atomic.LoadInt32(&synth.calls))

	// Cancel already published the terminal frame; a second cancel is an error
	assert.ErrorIs(t, svc.Cancel(tsk.ID), errors.ErrTaskTerminal)
}

func TestCancel_RunPublishesNothingAfterwards(t *testing.T) {
	slowQuant := okStage(task.StageQuantitative)
	slowQuant.delay = 50 * time.Millisecond
	svc := NewService(slowQuant, okStage(task.StageQualitative), okSynth(), testOptions())

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	ch, unsubscribe, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, svc.Cancel(tsk.ID))
	collectTerminal(t, ch)

	// Give the run goroutine time to unwind past the stage barrier; the task
	// must stay exactly as Cancel left it.
	time.Sleep(100 * time.Millisecond)
	snapshot, err := svc.Get(tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, snapshot.Status)
	assert.Equal(t, "analysis cancelled", snapshot.ErrDetail)
	assert.Nil(t, snapshot.Synthesis)
}

func TestStart_RegistryCapacity(t *testing.T) {
	opts := testOptions()
	opts.MaxActiveTasks = 1

	slow := okStage(task.StageQuantitative)
	slow.delay = time.Second
	svc := NewService(slow, okStage(task.StageQualitative), okSynth(), opts)

	_, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	_, err = svc.Start("MSFT", "Microsoft Corporation")
	assert.ErrorIs(t, err, errors.ErrRateLimited)
}

func TestSweepExpired_DropsOldTerminalTasks(t *testing.T) {
	opts := testOptions()
	opts.DeleteOnDelivery = false
	opts.Retention = 10 * time.Millisecond
	svc := NewService(okStage(task.StageQuantitative), okStage(task.StageQualitative), okSynth(), opts)

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.Get(tsk.ID)
		return err == nil && got.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	removed := svc.SweepExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, svc.Len())
}

func TestClose_AbortsRunningTasks(t *testing.T) {
	quant := okStage(task.StageQuantitative)
	quant.delay = 5 * time.Second
	synth := okSynth()
	svc := NewService(quant, okStage(task.StageQualitative), synth, testOptions())

	tsk, err := svc.Start("AAPL", "Apple Inc.")
	require.NoError(t, err)

	ch, unsubscribe, err := svc.Subscribe(tsk.ID)
	require.NoError(t, err)
	defer unsubscribe()

	svc.Close()

	got := collectTerminal(t, ch)
	require.NotEmpty(t, got)
	assert.Equal(t, task.StatusError, got[len(got)-1].Status)
	assert.Equal(t, int32(0), atomic.LoadInt32(&synth.calls))
}

func TestRegistry_SweepRunsSafelyDuringCompletions(t *testing.T) {
	opts := testOptions()
	opts.DeleteOnDelivery = false
	opts.Retention = time.Nanosecond
	opts.MaxActiveTasks = 128
	svc := NewService(okStage(task.StageQuantitative), okStage(task.StageQualitative), okSynth(), opts)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				svc.SweepExpired()
			}
		}
	}()

	for i := 0; i < 64; i++ {
		tsk, err := svc.Start("AAPL", "Apple Inc.")
		require.NoError(t, err)
		if snapshot, err := svc.Get(tsk.ID); err == nil {
			_ = snapshot.Status.Terminal()
		}
	}

	require.Eventually(t, func() bool {
		svc.SweepExpired()
		return svc.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	close(stop)
	wg.Wait()
}
