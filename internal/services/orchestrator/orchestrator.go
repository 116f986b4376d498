package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/internal/metrics"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
)

// Options tunes the task lifecycle
type Options struct {
	MaxActiveTasks   int
	StageTimeout     time.Duration
	SynthesisTimeout time.Duration
	Retention        time.Duration
	DeleteOnDelivery bool
}

// entry is one tracked task plus its delivery state. Task fields and
// subscriber bookkeeping are guarded by mu; the terminal transition is
// additionally once-guarded so at most one publisher wins.
type entry struct {
	task   *task.Task
	cancel context.CancelFunc
	start  time.Time

	mu        sync.Mutex
	subs      []chan task.Notification
	terminal  *task.Notification
	delivered bool

	done chan struct{}
	once sync.Once
}

// Service runs analysis tasks and fans their lifecycle notifications out to
// stream subscribers. Each task gets exactly one terminal notification.
type Service struct {
	quant StageAdapterRunner
	qual  StageAdapterRunner
	synth Synthesizer
	opts  Options

	mu    sync.RWMutex
	tasks map[string]*entry

	rootCtx    context.Context
	rootCancel context.CancelFunc

	log *logger.Logger
}

// StageAdapterRunner is the orchestrator's view of one analysis stage
type StageAdapterRunner interface {
	Stage() task.Stage
	Run(ctx context.Context, ticker string) task.StageResult
}

// Synthesizer merges stage results into the final recommendation
type Synthesizer interface {
	Synthesize(ctx context.Context, t *task.Task) task.StageResult
}

// NewService creates the task orchestrator
func NewService(quant, qual StageAdapterRunner, synth Synthesizer, opts Options) *Service {
	if opts.MaxActiveTasks <= 0 {
		opts.MaxActiveTasks = 256
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Service{
		quant:      quant,
		qual:       qual,
		synth:      synth,
		opts:       opts,
		tasks:      make(map[string]*entry),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		log:        logger.Get().With("service", "orchestrator"),
	}
}

// Close aborts every running task. Each aborted task gets its terminal
// notification here; the run goroutines stop without publishing anything
// further.
func (s *Service) Close() {
	s.rootCancel()

	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		s.finish(e, task.StatusFailed, "analysis cancelled")
	}
}

// Start registers and launches a new analysis task for a resolved security.
// Returns errors.ErrRateLimited when the registry is at capacity; the caller
// surfaces that as a try-again-later reply rather than queueing.
func (s *Service) Start(ticker, companyName string) (*task.Task, error) {
	t := task.New(ticker, companyName)
	ctx, cancel := context.WithCancel(s.rootCtx)
	e := &entry{
		task:   t,
		cancel: cancel,
		start:  time.Now(),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if len(s.tasks) >= s.opts.MaxActiveTasks {
		s.mu.Unlock()
		cancel()
		return nil, errors.Wrapf(errors.ErrRateLimited, "task registry full (%d)", s.opts.MaxActiveTasks)
	}
	s.tasks[t.ID] = e
	s.mu.Unlock()

	metrics.TasksInFlight.Inc()
	s.log.Infow("Task started", "task_id", t.ID, "ticker", ticker)

	go s.run(ctx, e)
	return t, nil
}

// Get returns a point-in-time copy of the tracked task
func (s *Service) Get(taskID string) (*task.Task, error) {
	s.mu.RLock()
	e, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(errors.ErrTaskNotFound, "task %s", taskID)
	}
	e.mu.Lock()
	snapshot := *e.task
	e.mu.Unlock()
	return &snapshot, nil
}

// Cancel aborts a running task and publishes its terminal notification.
// The run goroutine observes the cancelled context and exits without
// touching the task again. Terminal tasks cannot be cancelled.
func (s *Service) Cancel(taskID string) error {
	s.mu.RLock()
	e, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return errors.Wrapf(errors.ErrTaskNotFound, "task %s", taskID)
	}
	e.mu.Lock()
	status := e.task.Status
	e.mu.Unlock()
	if status.Terminal() {
		return errors.Wrapf(errors.ErrTaskTerminal, "task %s already %s", taskID, status)
	}
	e.cancel()
	s.finish(e, task.StatusFailed, "analysis cancelled")
	return nil
}

// Subscribe attaches a listener to a task's notification stream. If the task
// already reached a terminal state the terminal notification is delivered
// immediately on the returned channel. The unsubscribe func must be called
// when the listener goes away; calling it after terminal delivery is a no-op.
func (s *Service) Subscribe(taskID string) (<-chan task.Notification, func(), error) {
	s.mu.RLock()
	e, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, errors.Wrapf(errors.ErrTaskNotFound, "task %s", taskID)
	}

	ch := make(chan task.Notification, 8)

	e.mu.Lock()
	if e.terminal != nil {
		ch <- *e.terminal
		close(ch)
		e.delivered = true
		e.mu.Unlock()
		s.maybeRemove(e)
		return ch, func() {}, nil
	}
	// Current-state snapshot so a subscriber arriving mid-run still sees
	// progress before the terminal frame
	if e.task.Status == task.StatusRunning {
		ch <- task.Notification{Status: task.StatusRunning}
	}
	e.subs = append(e.subs, ch)
	e.mu.Unlock()

	unsubscribe := func() {
		e.mu.Lock()
		for i, sub := range e.subs {
			if sub == ch {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				break
			}
		}
		e.mu.Unlock()
	}
	return ch, unsubscribe, nil
}

// MarkDelivered records that a subscriber received the terminal notification.
// With delete-on-delivery enabled this releases the task immediately instead
// of waiting for the retention sweep.
func (s *Service) MarkDelivered(taskID string) {
	s.mu.RLock()
	e, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.delivered = true
	e.mu.Unlock()
	s.maybeRemove(e)
}

// SweepExpired drops terminal tasks older than the retention window and
// returns how many were removed. Undelivered results are dropped too; a
// subscriber that never showed up within retention forfeits the result.
func (s *Service) SweepExpired() int {
	cutoff := time.Now().UTC().Add(-s.opts.Retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.tasks {
		e.mu.Lock()
		expired := e.task.Status.Terminal() && e.task.CompletedAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked tasks
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// run owns the task lifecycle: fan out the two analysis stages, synthesize,
// then publish exactly one terminal notification. When the task context is
// cancelled, Cancel/Close already published the terminal frame and run must
// not mutate or publish anything further.
func (s *Service) run(ctx context.Context, e *entry) {
	t := e.task

	e.mu.Lock()
	if ctx.Err() != nil || t.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	t.Status = task.StatusRunning
	e.mu.Unlock()
	s.publish(e, task.Notification{Status: task.StatusRunning})

	var wg sync.WaitGroup
	results := make([]task.StageResult, 2)
	for i, adapter := range []StageAdapterRunner{s.quant, s.qual} {
		wg.Add(1)
		go func(i int, adapter StageAdapterRunner) {
			defer wg.Done()
			stageCtx, cancel := context.WithTimeout(ctx, s.opts.StageTimeout)
			defer cancel()
			results[i] = adapter.Run(stageCtx, t.Ticker)
		}(i, adapter)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	quant, qual := results[0], results[1]
	e.mu.Lock()
	t.Quantitative = &quant
	t.Qualitative = &qual
	e.mu.Unlock()

	if !quant.OK() && !qual.OK() {
		s.log.Warnw("Both analysis stages failed", "task_id", t.ID,
			"quant_error", quant.Err, "qual_error", qual.Err)
		s.finish(e, task.StatusFailed, "no analysis data available for "+t.Ticker)
		return
	}

	synthCtx, cancel := context.WithTimeout(ctx, s.opts.SynthesisTimeout)
	synth := s.synth.Synthesize(synthCtx, t)
	cancel()

	if ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	t.Synthesis = &synth
	e.mu.Unlock()

	if !synth.OK() {
		s.finish(e, task.StatusFailed, "recommendation synthesis failed")
		return
	}

	s.finish(e, task.StatusCompleted, "")
}

// finish transitions the task to its terminal state and publishes the
// terminal notification exactly once. The task keeps the internal status;
// the notification carries the wire form (failed -> error).
func (s *Service) finish(e *entry, status task.Status, detail string) {
	e.once.Do(func() {
		t := e.task
		e.mu.Lock()
		t.Status = status
		t.CompletedAt = time.Now().UTC()
		t.ErrDetail = detail
		e.mu.Unlock()

		notif := task.Notification{Status: status.Wire()}
		if status == task.StatusCompleted {
			result := task.Result{
				Ticker:      t.Ticker,
				CompanyName: t.CompanyName,
				Synthesis:   t.Synthesis.Text,
				Qualitative: t.Qualitative.Text,
			}
			if t.Quantitative.OK() {
				result.Quantitative = t.Quantitative.Payload
			}
			data, err := json.Marshal(result)
			if err == nil {
				notif.Data = data
			}
		} else {
			data, err := json.Marshal(task.ErrorDetail{Message: detail})
			if err == nil {
				notif.Data = data
			}
		}

		e.mu.Lock()
		e.terminal = &notif
		subs := e.subs
		e.subs = nil
		e.mu.Unlock()

		for _, ch := range subs {
			select {
			case ch <- notif:
			default:
			}
			close(ch)
		}

		metrics.TasksInFlight.Dec()
		metrics.TaskExecutions.WithLabelValues(string(status)).Inc()
		metrics.TaskDuration.Observe(time.Since(e.start).Seconds())

		s.log.Infow("Task finished", "task_id", t.ID, "ticker", t.Ticker,
			"status", status, "duration", time.Since(e.start))
	})
}

// publish fans a non-terminal notification out to current subscribers
func (s *Service) publish(e *entry, notif task.Notification) {
	e.mu.Lock()
	subs := make([]chan task.Notification, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- notif:
		default:
		}
	}
}

// maybeRemove releases a delivered terminal task when delete-on-delivery is on
func (s *Service) maybeRemove(e *entry) {
	if !s.opts.DeleteOnDelivery {
		return
	}
	e.mu.Lock()
	done := e.delivered && e.terminal != nil
	e.mu.Unlock()
	if !done {
		return
	}
	s.mu.Lock()
	delete(s.tasks, e.task.ID)
	s.mu.Unlock()
}
