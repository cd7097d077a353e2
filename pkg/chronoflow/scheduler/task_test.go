package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Cancellation is monotonic: once cancelled, always cancelled.
func TestScheduledTask_CancelMonotonic(t *testing.T) {
	t.Parallel()
	trig := &PeriodicTrigger{Period: time.Hour, Loc: time.UTC}
	task := NewScheduledTask("p7", trig, func(ctx context.Context) error { return nil }, 0, nil)

	require.False(t, task.IsCancelled())
	require.True(t, task.Cancel(false))
	require.True(t, task.IsCancelled())
	require.False(t, task.Cancel(false), "second cancel must be a no-op")
	require.False(t, task.Cancel(true), "cancel after cancel is always false")
}

func TestScheduledTask_StartFailsWhenCancelled(t *testing.T) {
	t.Parallel()
	trig := &PeriodicTrigger{Period: time.Hour, Loc: time.UTC}
	task := NewScheduledTask("t", trig, func(ctx context.Context) error { return nil }, 0, nil)
	task.Cancel(false)

	err := task.Start()
	require.Error(t, err)
}

func TestScheduledTask_StartIsIdempotent(t *testing.T) {
	t.Parallel()
	trig := &PeriodicTrigger{Period: time.Hour, Loc: time.UTC}
	task := NewScheduledTask("t", trig, func(ctx context.Context) error { return nil }, 0, nil)
	require.NoError(t, task.Start())
	require.NoError(t, task.Start())
	task.Cancel(false)
}

// FixedRate schedules at a constant cadence independent of how long
// the closure runs.
func TestScheduledTask_FixedRateIndependence(t *testing.T) {
	t.Parallel()
	var count int64
	run := func(ctx context.Context) error {
		atomic.AddInt64(&count, 1)
		time.Sleep(20 * time.Millisecond)
		return nil
	}

	trig := &FixedRateTrigger{Period: 30 * time.Millisecond, Loc: time.UTC}
	task := NewScheduledTask("s2", trig, run, 0, nil)
	require.NoError(t, task.Start())

	time.Sleep(250 * time.Millisecond)
	task.Cancel(false)

	require.GreaterOrEqual(t, atomic.LoadInt64(&count), int64(3))
}

// A task that always fails keeps running and logging, and LastError
// stays populated.
func TestScheduledTask_FailureDoesNotStop(t *testing.T) {
	t.Parallel()
	run := func(ctx context.Context) error { return errors.New("always fails") }

	trig := &PeriodicTrigger{Period: 20 * time.Millisecond, Loc: time.UTC}
	task := NewScheduledTask("s4", trig, run, 0, nil)
	require.NoError(t, task.Start())

	time.Sleep(300 * time.Millisecond)
	task.Cancel(false)

	require.GreaterOrEqual(t, task.ExecutionCount(), int64(5))
	require.Error(t, task.ExecutionContext().LastError())
	require.False(t, task.ExecutionContext().LastCompletion().IsZero())
}

func TestScheduledTask_PanicIsRecoveredAsFailure(t *testing.T) {
	t.Parallel()
	run := func(ctx context.Context) error { panic("boom") }

	trig := &PeriodicTrigger{Period: time.Hour, Loc: time.UTC}
	task := NewScheduledTask("panic", trig, run, 0, nil)
	require.NoError(t, task.Start())

	require.Eventually(t, func() bool {
		return task.ExecutionCount() >= 1
	}, time.Second, 5*time.Millisecond)
	task.Cancel(false)

	require.Error(t, task.ExecutionContext().LastError())
}

func TestScheduledTask_CronTriggerStopsWhenExhausted(t *testing.T) {
	t.Parallel()
	// A cron expression matching a date in the past relative to the
	// trigger's reference instant will never match again within five
	// years from "now", but our test uses a far-future-exhausted stand-in:
	// an expression that can never match (Feb 30th) so NextFireTime
	// reports ok=false immediately and the loop exits without firing.
	expr, err := ParseCronExpression("0 0 0 30 2 *")
	require.NoError(t, err)
	trig := &CronTrigger{Expr: expr, Loc: time.UTC}

	var ran atomic.Bool
	task := NewScheduledTask("never", trig, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}, 0, nil)
	require.NoError(t, task.Start())

	time.Sleep(50 * time.Millisecond)
	require.False(t, ran.Load())
}

func TestScheduledTask_CancelAwaitsInFlight(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	run := func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}

	trig := &PeriodicTrigger{Period: time.Hour, Loc: time.UTC}
	task := NewScheduledTask("await", trig, run, 0, nil)
	require.NoError(t, task.Start())

	<-started
	cancelled := make(chan bool, 1)
	go func() { cancelled <- task.Cancel(false) }()

	// Cancel(false) must not return before the in-flight execution
	// finishes.
	select {
	case <-cancelled:
		t.Fatal("cancel returned before in-flight execution completed")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.True(t, <-cancelled)
	require.False(t, task.IsExecuting())
}

// Cancel(true) signals the in-flight execution's context and returns
// without waiting; a closure that honors the context unblocks promptly.
func TestScheduledTask_ForcedCancelSignalsRunContext(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	unblocked := make(chan struct{})
	run := func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(unblocked)
		return ctx.Err()
	}

	trig := &PeriodicTrigger{Period: time.Hour, Loc: time.UTC}
	task := NewScheduledTask("interrupt", trig, run, 0, nil)
	require.NoError(t, task.Start())

	<-started
	require.True(t, task.Cancel(true))

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("closure was never signalled through its context")
	}
	require.Eventually(t, func() bool { return !task.IsExecuting() }, time.Second, 5*time.Millisecond)
}

func TestScheduledTask_DescribeReflectsState(t *testing.T) {
	t.Parallel()
	trig := &PeriodicTrigger{Period: 20 * time.Millisecond, Loc: time.UTC}
	task := NewScheduledTask("describe", trig, func(ctx context.Context) error { return nil }, 0, nil)

	snap := task.Describe()
	require.Equal(t, "describe", snap.Name)
	require.False(t, snap.Cancelled)
	require.Equal(t, int64(0), snap.ExecutionCount)
	require.NotNil(t, snap.NextFireTime)

	require.NoError(t, task.Start())
	require.Eventually(t, func() bool { return task.ExecutionCount() >= 1 }, time.Second, 5*time.Millisecond)
	task.Cancel(false)

	snap = task.Describe()
	require.True(t, snap.Cancelled)
	require.GreaterOrEqual(t, snap.ExecutionCount, int64(1))
	require.Nil(t, snap.NextFireTime, "a cancelled task reports no next fire time")
}

