package scheduler

import (
	"sync"
	"time"
)

// ExecutionContext is the mutable, per-task history consulted by
// triggers and observers: the last scheduled/actual-start/completion
// instants, the last error, and a monotonically increasing execution
// count.
//
// Only the owning ScheduledTask's loop mutates an ExecutionContext;
// reads from other goroutines (observers) are best-effort and guarded
// by a mutex purely to avoid data races, not to provide linearizable
// snapshots across fields.
type ExecutionContext struct {
	mu sync.RWMutex

	lastScheduled   time.Time
	lastActualStart time.Time
	lastCompletion  time.Time
	lastError       error
	executionCount  int64
}

// NewExecutionContext returns a zero-valued ExecutionContext: every
// timestamp is the zero time and executionCount is 0.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{}
}

// RecordScheduled sets the last-scheduled instant.
func (c *ExecutionContext) RecordScheduled(t time.Time) {
	c.mu.Lock()
	c.lastScheduled = t
	c.mu.Unlock()
}

// RecordActualStart sets the last-actual-start instant and increments
// the execution counter.
func (c *ExecutionContext) RecordActualStart(t time.Time) {
	c.mu.Lock()
	c.lastActualStart = t
	c.executionCount++
	c.mu.Unlock()
}

// RecordCompletion sets the last-completion instant and clears the
// last error — a successful execution following a failed one erases
// that failure.
func (c *ExecutionContext) RecordCompletion(t time.Time) {
	c.mu.Lock()
	c.lastCompletion = t
	c.lastError = nil
	c.mu.Unlock()
}

// RecordFailure sets the last error and sets the last-completion
// instant to t — a failed execution counts as completed for
// fixed-delay scheduling purposes.
func (c *ExecutionContext) RecordFailure(err error, t time.Time) {
	c.mu.Lock()
	c.lastError = err
	c.lastCompletion = t
	c.mu.Unlock()
}

// LastScheduled returns the last-scheduled instant, or the zero time if
// the task has never been scheduled.
func (c *ExecutionContext) LastScheduled() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastScheduled
}

// LastActualStart returns the last-actual-start instant, or the zero
// time if the task has never executed.
func (c *ExecutionContext) LastActualStart() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActualStart
}

// LastCompletion returns the last-completion instant, or the zero time
// if the task has never completed (successfully or otherwise).
func (c *ExecutionContext) LastCompletion() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCompletion
}

// LastError returns the error from the most recent execution, or nil if
// the most recent execution (if any) succeeded.
func (c *ExecutionContext) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// ExecutionCount returns the number of times the owning task's closure
// has been entered.
func (c *ExecutionContext) ExecutionCount() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.executionCount
}
