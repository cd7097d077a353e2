package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Runnable is a task closure. Its context is cancelled at the task's
// configured timeout, if any, and when the task is cancelled with
// mayInterrupt — there is no implicit deadline, and a closure that
// ignores the context simply runs to completion.
type Runnable func(ctx context.Context) error

// Admitter mediates between a task's execution loop and whatever
// concurrency control fronts it. It is called once per execution and
// must invoke onAdmit exactly once — at the instant the execution is
// actually admitted to run, immediately before calling fn — and then
// return fn's result. The default Admitter (no gate) admits
// immediately; Scheduler.Schedule installs one that waits for a
// concurrency-gate slot first, so onAdmit fires only once that wait is
// over.
type Admitter func(ctx context.Context, onAdmit func(), fn Runnable) error

// defaultAdmitter admits immediately — used by a ScheduledTask that
// isn't fronted by a Scheduler's concurrency gate.
func defaultAdmitter(ctx context.Context, onAdmit func(), fn Runnable) error {
	onAdmit()
	return fn(ctx)
}

// taskState is ScheduledTask's lifecycle: NEW → RUNNING → CANCELLED.
type taskState int

const (
	taskNew taskState = iota
	taskRunning
	taskCancelled
)

// ScheduledTask repeatedly consults its Trigger, sleeps until the next
// fire instant, runs its closure, records the outcome in its
// ExecutionContext, and reschedules — until cancelled or until the
// trigger reports no further executions.
//
// isCancelled is monotonic: false until the first Cancel call, true
// forever after. isExecuting is true strictly between the start and end
// of the closure. ExecutionCount equals the number of times the closure
// has been entered, tracked by the ExecutionContext.
type ScheduledTask struct {
	name    string
	trigger Trigger
	run     Runnable
	admit   Admitter
	ctx     *ExecutionContext
	timeout time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	state     taskState
	executing bool
	execDone  chan struct{}
	runCancel context.CancelFunc
	timer     *time.Timer
	stopCh    chan struct{}
}

// NewScheduledTask constructs a task in the NEW state. timeout, if
// greater than zero, bounds a single execution of run via
// context.WithTimeout; zero (the default) means no implicit deadline —
// a task only gets a deadline when a caller opts in explicitly.
func NewScheduledTask(name string, trigger Trigger, run Runnable, timeout time.Duration, logger *slog.Logger) *ScheduledTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduledTask{
		name:    name,
		trigger: trigger,
		run:     run,
		admit:   defaultAdmitter,
		ctx:     NewExecutionContext(),
		timeout: timeout,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// setAdmitter overrides the task's Admitter. Scheduler.Schedule calls
// this to front the task with its concurrency gate, before Start — it
// is not safe to call once the task's loop is running.
func (t *ScheduledTask) setAdmitter(a Admitter) {
	t.admit = a
}

// Name returns the task's unique name.
func (t *ScheduledTask) Name() string { return t.name }

// Zone returns the trigger's zone.
func (t *ScheduledTask) Zone() *time.Location { return t.trigger.Zone() }

// Trigger returns the task's trigger.
func (t *ScheduledTask) Trigger() Trigger { return t.trigger }

// ExecutionContext returns the task's execution history.
func (t *ScheduledTask) ExecutionContext() *ExecutionContext { return t.ctx }

// IsExecuting reports whether the closure is currently running.
func (t *ScheduledTask) IsExecuting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executing
}

// IsCancelled reports whether Cancel has been called.
func (t *ScheduledTask) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskCancelled
}

// ExecutionCount returns the number of times the closure has run.
func (t *ScheduledTask) ExecutionCount() int64 { return t.ctx.ExecutionCount() }

// TaskSnapshot is a read-only, JSON-marshalable view of a ScheduledTask
// at a point in time, for observability surfaces that shouldn't hold a
// reference to the live task.
type TaskSnapshot struct {
	Name            string     `json:"name"`
	Executing       bool       `json:"executing"`
	Cancelled       bool       `json:"cancelled"`
	ExecutionCount  int64      `json:"execution_count"`
	LastScheduled   time.Time  `json:"last_scheduled,omitempty"`
	LastActualStart time.Time  `json:"last_actual_start,omitempty"`
	LastCompletion  time.Time  `json:"last_completion,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	NextFireTime    *time.Time `json:"next_fire_time,omitempty"`
}

// Describe returns a TaskSnapshot of the task's current state. It only
// reads: the next fire time comes from the trigger's NextFireTime, which
// records nothing into the ExecutionContext, so calling Describe does
// not change the task's schedule.
func (t *ScheduledTask) Describe() TaskSnapshot {
	snap := TaskSnapshot{
		Name:            t.name,
		Executing:       t.IsExecuting(),
		Cancelled:       t.IsCancelled(),
		ExecutionCount:  t.ctx.ExecutionCount(),
		LastScheduled:   t.ctx.LastScheduled(),
		LastActualStart: t.ctx.LastActualStart(),
		LastCompletion:  t.ctx.LastCompletion(),
	}
	if err := t.ctx.LastError(); err != nil {
		snap.LastError = err.Error()
	}
	if !snap.Cancelled {
		if next, ok := t.trigger.NextFireTime(t.ctx); ok {
			snap.NextFireTime = &next
		}
	}
	return snap
}

// Start enters RUNNING and begins the scheduling loop in its own
// goroutine. It is idempotent — a second call on an already-RUNNING
// task is a no-op — but fails if the task is already CANCELLED.
func (t *ScheduledTask) Start() error {
	t.mu.Lock()
	switch t.state {
	case taskCancelled:
		t.mu.Unlock()
		return &SchedulerError{Op: "task.start", Reason: fmt.Sprintf("task %q is cancelled", t.name)}
	case taskRunning:
		t.mu.Unlock()
		return nil
	}
	t.state = taskRunning
	t.mu.Unlock()

	go t.loop()
	return nil
}

// Cancel stops the task. If mayInterrupt is false, Cancel blocks until
// any in-flight execution completes before returning. If mayInterrupt is
// true, Cancel cancels the in-flight execution's context and returns
// immediately — the running closure is not preempted (true interruption
// isn't supported); a closure that ignores its context finishes on its
// own, and the task does not reschedule afterward either way.
//
// Cancel returns true the first time it transitions the task to
// CANCELLED, and false on every subsequent call (isCancelled is
// monotonic).
func (t *ScheduledTask) Cancel(mayInterrupt bool) bool {
	t.mu.Lock()
	if t.state == taskCancelled {
		t.mu.Unlock()
		return false
	}
	t.state = taskCancelled
	close(t.stopCh)
	if t.timer != nil {
		t.timer.Stop()
	}
	executing := t.executing
	done := t.execDone
	runCancel := t.runCancel
	t.mu.Unlock()

	if mayInterrupt {
		if executing {
			if runCancel != nil {
				runCancel()
			}
			t.logger.Warn("cancelled the running closure's context; closures are never forcibly preempted", "task", t.name)
		}
		return true
	}

	if executing && done != nil {
		<-done
	}
	return true
}

// loop is the task's private goroutine: schedule → sleep → execute →
// record → reschedule, until cancelled or the trigger runs dry.
func (t *ScheduledTask) loop() {
	for {
		if t.IsCancelled() {
			return
		}

		fire, ok := t.trigger.NextFireTime(t.ctx)
		if !ok {
			t.logger.Info("trigger declared no further executions", "task", t.name)
			return
		}

		now := time.Now().In(t.trigger.Zone())
		delay := fire.Sub(now)
		if delay < 0 {
			delay = 0 // behind-schedule catch-up: fire immediately, don't enumerate missed fires
		}

		timer := time.NewTimer(delay)
		t.mu.Lock()
		if t.state == taskCancelled {
			t.mu.Unlock()
			timer.Stop()
			return
		}
		t.timer = timer
		t.mu.Unlock()

		select {
		case <-timer.C:
		case <-t.stopCh:
			timer.Stop()
			return
		}

		t.executeOnce(fire)

		if t.IsCancelled() {
			return
		}
	}
}

// executeOnce runs the closure exactly once, recording timestamps and
// outcome in the ExecutionContext. Panics from the closure are
// recovered and recorded as a TaskExecutionError, the same as a
// returned error — one failing task must never take down the loop or
// any other task.
func (t *ScheduledTask) executeOnce(scheduledFor time.Time) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if t.timeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), t.timeout)
	} else {
		runCtx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	t.mu.Lock()
	if t.state == taskCancelled {
		t.mu.Unlock()
		return
	}
	t.executing = true
	done := make(chan struct{})
	t.execDone = done
	t.runCancel = cancel
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.executing = false
		t.execDone = nil
		t.runCancel = nil
		t.mu.Unlock()
		close(done)
	}()

	zone := t.trigger.Zone()
	t.ctx.RecordScheduled(scheduledFor.In(zone))

	// lastActualStart is recorded by onAdmit, which the task's Admitter
	// calls at the instant it actually admits the execution — after any
	// concurrency-gate wait, not before it. This is what lets
	// PeriodicTrigger (anchored on lastActualStart) drift under
	// contention while FixedRateTrigger (anchored on lastScheduled,
	// recorded above, before gating) holds its cadence.
	onAdmit := func() { t.ctx.RecordActualStart(time.Now().In(zone)) }
	err := t.invoke(runCtx, onAdmit)

	completedAt := time.Now().In(zone)
	if err != nil {
		wrapped := &TaskExecutionError{Task: t.name, Err: err}
		t.ctx.RecordFailure(wrapped, completedAt)
		t.logger.Error("scheduled task failed", "task", t.name, "error", err)
	} else {
		t.ctx.RecordCompletion(completedAt)
		t.logger.Debug("scheduled task completed", "task", t.name)
	}
}

// invoke calls the closure through the task's Admitter, converting a
// panic into an error so it can be recorded the same way a returned
// error is.
func (t *ScheduledTask) invoke(ctx context.Context, onAdmit func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.admit(ctx, onAdmit, t.run)
}
