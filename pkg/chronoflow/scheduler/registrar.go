package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is the capability-bearing form of a task: any value with a Run
// method can be registered directly, without the caller wrapping it in a
// closure first.
type Job interface {
	Run(ctx context.Context) error
}

// taskHolder is a pending registration: a name, the trigger it resolved
// to, and the runnable it will execute once a Scheduler is attached.
type taskHolder struct {
	name    string
	trigger Trigger
	run     Runnable
}

// Registrar accepts programmatic task registrations before a Scheduler
// is necessarily attached, and forwards them once one is. Names are
// unique within a Registrar; a holder transitions pending → live
// exactly once, on Ready.
type Registrar struct {
	logger     *slog.Logger
	namePrefix string

	mu        sync.Mutex
	scheduler *Scheduler
	pending   map[string]*taskHolder
	live      map[string]*ScheduledTask
	ready     bool
}

// RegistrarOption configures a Registrar at construction.
type RegistrarOption func(*Registrar)

// WithRegistrarLogger sets the logger used for registration and
// lifecycle events.
func WithRegistrarLogger(logger *slog.Logger) RegistrarOption {
	return func(r *Registrar) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNamePrefix sets the name-generator prefix used when a caller
// doesn't supply an explicit task name.
func WithNamePrefix(prefix string) RegistrarOption {
	return func(r *Registrar) { r.namePrefix = prefix }
}

// WithScheduler attaches an already-constructed Scheduler instead of
// letting Ready build a default one from configuration.
func WithScheduler(s *Scheduler) RegistrarOption {
	return func(r *Registrar) { r.scheduler = s }
}

// NewRegistrar returns an empty, not-yet-ready Registrar.
func NewRegistrar(opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		logger:  slog.Default(),
		pending: make(map[string]*taskHolder),
		live:    make(map[string]*ScheduledTask),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register accepts a (runnable, trigger, name) triple. If Ready has
// already run, the task is scheduled immediately; otherwise it is
// retained as a pending holder and drained on Ready, even when a
// Scheduler was attached with WithScheduler. Fails if name collides with an existing pending or live
// registration.
func (r *Registrar) Register(run Runnable, trigger Trigger, name string) (*ScheduledTask, error) {
	r.mu.Lock()
	if _, exists := r.pending[name]; exists {
		r.mu.Unlock()
		return nil, &SchedulerError{Op: "register", Reason: "duplicate task name " + strQuote(name)}
	}
	if _, exists := r.live[name]; exists {
		r.mu.Unlock()
		return nil, &SchedulerError{Op: "register", Reason: "duplicate task name " + strQuote(name)}
	}

	if !r.ready || r.scheduler == nil {
		r.pending[name] = &taskHolder{name: name, trigger: trigger, run: run}
		r.mu.Unlock()
		r.logger.Debug("task registration deferred until ready", "name", name)
		return nil, nil
	}
	sched := r.scheduler
	r.mu.Unlock()

	task, err := sched.Schedule(run, trigger, name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.live[name] = task
	r.mu.Unlock()
	return task, nil
}

// RegisterJob registers a Job under the given trigger and name.
func (r *Registrar) RegisterJob(job Job, trigger Trigger, name string) (*ScheduledTask, error) {
	return r.Register(job.Run, trigger, name)
}

// RegisterCron registers a task on a cron expression.
func (r *Registrar) RegisterCron(run Runnable, expr string, name string, zone string) (*ScheduledTask, error) {
	trigger, err := BuildTrigger(TriggerParams{Expression: expr, Zone: zone})
	if err != nil {
		return nil, err
	}
	return r.Register(run, trigger, name)
}

// RegisterFixedRate registers a task on a start-to-start cadence.
func (r *Registrar) RegisterFixedRate(run Runnable, period time.Duration, name string, initialDelay time.Duration) (*ScheduledTask, error) {
	trigger, err := BuildTrigger(TriggerParams{FixedRate: period, InitialDelay: initialDelay})
	if err != nil {
		return nil, err
	}
	return r.Register(run, trigger, name)
}

// RegisterFixedDelay registers a task on end-to-start spacing.
func (r *Registrar) RegisterFixedDelay(run Runnable, delay time.Duration, name string, initialDelay time.Duration) (*ScheduledTask, error) {
	trigger, err := BuildTrigger(TriggerParams{FixedDelay: delay, InitialDelay: initialDelay})
	if err != nil {
		return nil, err
	}
	return r.Register(run, trigger, name)
}

// RegisterPeriodic registers a task on a simple actual-start-anchored
// interval.
func (r *Registrar) RegisterPeriodic(run Runnable, period time.Duration, name string) (*ScheduledTask, error) {
	trigger, err := BuildTrigger(TriggerParams{Period: period})
	if err != nil {
		return nil, err
	}
	return r.Register(run, trigger, name)
}

// Ready attaches a default Scheduler (built from opts, if no scheduler
// is already attached) and drains every pending holder into it. Safe to
// call once; later calls are no-ops.
func (r *Registrar) Ready(opts ...Option) error {
	r.mu.Lock()
	if r.ready {
		r.mu.Unlock()
		return nil
	}
	if r.scheduler == nil {
		r.scheduler = NewScheduler(opts...)
	}
	sched := r.scheduler
	holders := make([]*taskHolder, 0, len(r.pending))
	for _, h := range r.pending {
		holders = append(holders, h)
	}
	r.pending = make(map[string]*taskHolder)
	r.ready = true
	r.mu.Unlock()

	for _, h := range holders {
		task, err := sched.Schedule(h.run, h.trigger, h.name)
		if err != nil {
			r.logger.Error("failed to schedule pending task", "name", h.name, "error", err)
			continue
		}
		r.mu.Lock()
		r.live[h.name] = task
		r.mu.Unlock()
	}
	return nil
}

// Destroy cancels every live task (non-forced) and shuts the attached
// Scheduler down (non-forced).
func (r *Registrar) Destroy() {
	r.mu.Lock()
	tasks := make([]*ScheduledTask, 0, len(r.live))
	for _, t := range r.live {
		tasks = append(tasks, t)
	}
	sched := r.scheduler
	r.mu.Unlock()

	for _, t := range tasks {
		t.Cancel(false)
	}
	if sched != nil {
		sched.Shutdown(false)
	}
}

// Tasks returns a read-only snapshot of the Registrar's live tasks.
func (r *Registrar) Tasks() []*ScheduledTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ScheduledTask, 0, len(r.live))
	for _, t := range r.live {
		out = append(out, t)
	}
	return out
}

// HasTasks reports whether the Registrar holds any pending or live
// task.
func (r *Registrar) HasTasks() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)+len(r.live) > 0
}
