package scheduler

import "time"

// Trigger is a policy object producing the next instant at which a task
// should fire, consulting the task's ExecutionContext for whichever
// prior timestamp its variant is anchored on. The closed set of
// variants is Cron, FixedRate, FixedDelay, and Periodic.
type Trigger interface {
	// NextFireTime returns the next instant this trigger fires, given
	// the task's current execution history. ok is false to declare
	// "no further executions" — the task must then stop.
	NextFireTime(ctx *ExecutionContext) (t time.Time, ok bool)

	// Zone returns the IANA zone this trigger evaluates in.
	Zone() *time.Location
}

// CronTrigger fires at the instants its CronExpression matches, anchored
// on the task's last actual start (or now, for the first fire).
type CronTrigger struct {
	Expr *CronExpression
	Loc  *time.Location
}

func (t *CronTrigger) Zone() *time.Location { return t.Loc }

func (t *CronTrigger) NextFireTime(ctx *ExecutionContext) (time.Time, bool) {
	ref := ctx.LastActualStart()
	if ref.IsZero() {
		ref = time.Now().In(t.Loc)
	} else {
		ref = ref.In(t.Loc)
	}
	next, err := t.Expr.Next(ref, t.Loc)
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

// FixedRateTrigger fires at a constant start-to-start cadence,
// independent of how long each execution takes: the next fire is always
// lastScheduled + Period, preserving cadence even when a task overruns.
type FixedRateTrigger struct {
	Period       time.Duration
	Loc          *time.Location
	InitialDelay time.Duration
}

func (t *FixedRateTrigger) Zone() *time.Location { return t.Loc }

func (t *FixedRateTrigger) NextFireTime(ctx *ExecutionContext) (time.Time, bool) {
	last := ctx.LastScheduled()
	if last.IsZero() {
		return time.Now().In(t.Loc).Add(t.InitialDelay), true
	}
	return last.In(t.Loc).Add(t.Period), true
}

// FixedDelayTrigger fires Delay after the previous execution's
// completion — end-to-start spacing, so slow executions push later
// fires back.
type FixedDelayTrigger struct {
	Delay        time.Duration
	Loc          *time.Location
	InitialDelay time.Duration
}

func (t *FixedDelayTrigger) Zone() *time.Location { return t.Loc }

func (t *FixedDelayTrigger) NextFireTime(ctx *ExecutionContext) (time.Time, bool) {
	last := ctx.LastCompletion()
	if last.IsZero() {
		return time.Now().In(t.Loc).Add(t.InitialDelay), true
	}
	return last.In(t.Loc).Add(t.Delay), true
}

// PeriodicTrigger fires Period after the previous execution's actual
// start. Unlike FixedRate it is anchored on the actual (not scheduled)
// start, so drift accumulates when executions overrun.
type PeriodicTrigger struct {
	Period time.Duration
	Loc    *time.Location
}

func (t *PeriodicTrigger) Zone() *time.Location { return t.Loc }

func (t *PeriodicTrigger) NextFireTime(ctx *ExecutionContext) (time.Time, bool) {
	last := ctx.LastActualStart()
	if last.IsZero() {
		return time.Now().In(t.Loc), true
	}
	return last.In(t.Loc).Add(t.Period), true
}
