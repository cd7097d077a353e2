package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxConcurrency and DefaultQueueCapacity are the concurrency cap
// and overflow queue bound a Scheduler uses when Config doesn't
// override them.
const (
	DefaultMaxConcurrency = 10
	DefaultQueueCapacity  = 1000
)

// Scheduler gates concurrent task executions behind a fixed
// concurrency cap, queueing overflow up to a bounded capacity, and owns
// the set of ScheduledTasks it has admitted.
//
// At no instant does activeCount() exceed Cmax, nor queuedCount() exceed
// Qmax. Once shut down, Schedule fails and the active count drains
// monotonically to zero.
type Scheduler struct {
	cmax   int
	qmax   int
	logger *slog.Logger

	mu       sync.Mutex
	active   int
	queue    []chan bool
	tasks    map[string]*ScheduledTask
	shutdown bool
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithMaxConcurrency overrides Cmax (default DefaultMaxConcurrency).
func WithMaxConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.cmax = n
		}
	}
}

// WithQueueCapacity overrides Qmax (default DefaultQueueCapacity).
func WithQueueCapacity(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.qmax = n
		}
	}
}

// WithSchedulerLogger sets the logger used for admission, reschedule,
// and shutdown events.
func WithSchedulerLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler returns a Scheduler with the given options applied over
// its built-in defaults.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		cmax:   DefaultMaxConcurrency,
		qmax:   DefaultQueueCapacity,
		logger: slog.Default(),
		tasks:  make(map[string]*ScheduledTask),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule admits a task under the given trigger. It is idempotent by
// name: if a live (non-cancelled) task with that name already exists,
// Schedule returns it unchanged and logs a warning instead of creating a
// duplicate. Fails with a *SchedulerError if called after Shutdown.
func (s *Scheduler) Schedule(fn Runnable, trigger Trigger, name string) (*ScheduledTask, error) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil, &SchedulerError{Op: "schedule", Reason: "scheduler is shut down"}
	}
	if existing, ok := s.tasks[name]; ok && !existing.IsCancelled() {
		s.mu.Unlock()
		s.logger.Warn("task already scheduled, returning existing task", "name", name)
		return existing, nil
	}
	s.mu.Unlock()

	task := NewScheduledTask(name, trigger, fn, 0, s.logger)
	task.setAdmitter(s.gate(name))

	s.mu.Lock()
	s.tasks[name] = task
	s.mu.Unlock()

	if err := task.Start(); err != nil {
		return nil, err
	}
	return task, nil
}

// ScheduleAtFixedRate is sugar that builds a FixedRateTrigger and calls
// Schedule.
func (s *Scheduler) ScheduleAtFixedRate(fn Runnable, period time.Duration, name string, initialDelay time.Duration) (*ScheduledTask, error) {
	trigger, err := BuildTrigger(TriggerParams{FixedRate: period, InitialDelay: initialDelay})
	if err != nil {
		return nil, err
	}
	return s.Schedule(fn, trigger, name)
}

// ScheduleWithFixedDelay is sugar that builds a FixedDelayTrigger and
// calls Schedule.
func (s *Scheduler) ScheduleWithFixedDelay(fn Runnable, delay time.Duration, name string, initialDelay time.Duration) (*ScheduledTask, error) {
	trigger, err := BuildTrigger(TriggerParams{FixedDelay: delay, InitialDelay: initialDelay})
	if err != nil {
		return nil, err
	}
	return s.Schedule(fn, trigger, name)
}

// ActiveCount returns the number of executions currently admitted past
// the gate.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// QueuedCount returns the number of continuations waiting for a gate
// slot.
func (s *Scheduler) QueuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// TotalCount returns the number of tasks the scheduler has ever
// admitted and still holds (live tasks, including cancelled-but-not-yet
// cleared ones prior to Shutdown).
func (s *Scheduler) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tasks returns a snapshot slice of the scheduler's live tasks.
func (s *Scheduler) Tasks() []*ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// SchedulerSnapshot is a read-only view of a Scheduler's admission state
// and the tasks it owns, for observability surfaces (a status command, a
// health endpoint) that shouldn't hold a reference to the live
// Scheduler.
type SchedulerSnapshot struct {
	MaxConcurrency int            `json:"max_concurrency"`
	QueueCapacity  int            `json:"queue_capacity"`
	Active         int            `json:"active"`
	Queued         int            `json:"queued"`
	ShutDown       bool           `json:"shut_down"`
	Tasks          []TaskSnapshot `json:"tasks"`
}

// Describe returns a SchedulerSnapshot of the scheduler's current
// admission state and every task it owns.
func (s *Scheduler) Describe() SchedulerSnapshot {
	s.mu.Lock()
	snap := SchedulerSnapshot{
		MaxConcurrency: s.cmax,
		QueueCapacity:  s.qmax,
		Active:         s.active,
		Queued:         len(s.queue),
		ShutDown:       s.shutdown,
	}
	tasks := make([]*ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	snap.Tasks = make([]TaskSnapshot, len(tasks))
	for i, t := range tasks {
		snap.Tasks[i] = t.Describe()
	}
	return snap
}

// Shutdown idempotently stops the scheduler: it prevents further
// Schedule calls, cancels every task (propagating force as
// mayInterrupt), waits for every cancellation to resolve, then clears
// the task set and overflow queue.
func (s *Scheduler) Shutdown(force bool) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	snapshot := make([]*ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		snapshot = append(snapshot, t)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler shutting down", "force", force, "tasks", len(snapshot))

	var wg sync.WaitGroup
	wg.Add(len(snapshot))
	for _, t := range snapshot {
		t := t
		go func() {
			defer wg.Done()
			t.Cancel(force)
		}()
	}
	wg.Wait()

	s.mu.Lock()
	s.tasks = make(map[string]*ScheduledTask)
	waiters := s.queue
	s.queue = nil
	s.mu.Unlock()

	// Wake anything still blocked in the gate's overflow queue; the
	// false signal surfaces as a shut-down error to the waiting loop
	// instead of leaving its goroutine parked forever.
	for _, w := range waiters {
		w <- false
	}

	s.logger.Info("scheduler shut down")
}

// gate returns an Admitter that lets at most Cmax invocations (across
// every task the scheduler owns) run at once. Callers beyond the cap
// enqueue, up to Qmax, and block until admitted or until Shutdown
// abandons the queue; beyond Qmax, gate fails fast with a "queue full"
// *SchedulerError — the only backpressure signal the scheduler exposes. onAdmit is called only once admission
// is granted — after any queue wait — immediately before fn, so a
// task's lastActualStart reflects real start time, not the instant the
// execution was requested.
func (s *Scheduler) gate(name string) Admitter {
	return func(ctx context.Context, onAdmit func(), fn Runnable) error {
		s.mu.Lock()
		if s.active < s.cmax {
			s.active++
			s.mu.Unlock()
		} else if len(s.queue) < s.qmax {
			admission := make(chan bool, 1)
			s.queue = append(s.queue, admission)
			s.mu.Unlock()
			if !<-admission {
				return &SchedulerError{Op: "gate", Reason: "scheduler is shut down"}
			}
		} else {
			s.mu.Unlock()
			s.logger.Warn("admission queue full, rejecting execution", "task", name)
			return &SchedulerError{Op: "gate", Reason: "queue full"}
		}

		defer s.release()
		onAdmit()
		return fn(ctx)
	}
}

// release frees one gate slot. If a continuation is waiting in the
// overflow queue, the slot is handed directly to it (the active count is
// not touched, since the slot stays occupied); otherwise the active
// count is decremented.
func (s *Scheduler) release() {
	s.mu.Lock()
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next <- true
		return
	}
	s.active--
	s.mu.Unlock()
}
