package scheduler

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// TriggerParams is the cross-boundary declaration shape for a trigger:
// exactly one of Expression, FixedRate, FixedDelay, or Period must be
// set; Zone and InitialDelay are optional. The required_without_all tags
// are the "at least one" half of that contract, checked by
// triggerParamsFieldValidator; the "at most one" half is a struct-level
// rule (see validateTriggerKindExclusivity) since validator has no tag
// for n-ary mutual exclusivity.
type TriggerParams struct {
	// Expression is a 6-field cron expression.
	Expression string `validate:"required_without_all=FixedRate FixedDelay Period"`

	// FixedRate is a start-to-start cadence; must be > 0 if set.
	FixedRate time.Duration `validate:"required_without_all=Expression FixedDelay Period"`

	// FixedDelay is an end-to-start spacing; must be > 0 if set.
	FixedDelay time.Duration `validate:"required_without_all=Expression FixedRate Period"`

	// Period is a simple, actual-start-anchored interval; must be > 0
	// if set.
	Period time.Duration `validate:"required_without_all=Expression FixedRate FixedDelay"`

	// InitialDelay offsets the first fire of a FixedRate or FixedDelay
	// trigger. Ignored by Cron and Periodic.
	InitialDelay time.Duration

	// Zone is an IANA zone identifier. Empty resolves to
	// DefaultZone.
	Zone string
}

// triggerParamsFieldValidator checks only the required_without_all tags
// above — "at least one trigger kind is set". It does not register the
// exclusivity struct-level rule, because BuildTrigger resolves more than
// one set field by precedence rather than rejecting the bundle outright.
var triggerParamsFieldValidator = validator.New()

// triggerParamsExclusivityValidator additionally enforces "at most one
// trigger kind is set", for callers (the declarative façade, C8) that
// hold declarations to the stricter "exactly one" contract.
var triggerParamsExclusivityValidator = newTriggerParamsExclusivityValidator()

func newTriggerParamsExclusivityValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateTriggerKindExclusivity, TriggerParams{})
	return v
}

// validateTriggerKindExclusivity is registered struct-level validation:
// it fails when more than one of Expression/FixedRate/FixedDelay/Period
// is set on a TriggerParams value.
func validateTriggerKindExclusivity(sl validator.StructLevel) {
	p := sl.Current().Interface().(TriggerParams)
	if triggerKindsSet(p) > 1 {
		sl.ReportError(p.Expression, "Expression", "Expression", "trigger_exclusive", "")
	}
}

// triggerKindsSet counts how many of Expression/FixedRate/FixedDelay/
// Period are non-zero.
func triggerKindsSet(p TriggerParams) int {
	set := 0
	if p.Expression != "" {
		set++
	}
	if p.FixedRate != 0 {
		set++
	}
	if p.FixedDelay != 0 {
		set++
	}
	if p.Period != 0 {
		set++
	}
	return set
}

// DefaultZone is the zone used when a TriggerParams bundle does not
// specify one. It is a package variable, not a constant, so a program
// can override the runtime default once at startup (e.g. from the
// scheduler.timezone configuration property) without threading a zone
// through every call site.
var DefaultZone = time.Local

// BuildTrigger resolves a TriggerParams bundle into a concrete Trigger.
// Precedence when more than one trigger-kind field is set is: Expression
// > FixedDelay > FixedRate > Period. Fails with a *SchedulerError if none
// is set, if a duration is not strictly positive, or if the zone is
// unknown; an invalid cron expression fails with the
// *InvalidCronExpressionError from ParseCronExpression.
func BuildTrigger(p TriggerParams) (Trigger, error) {
	if err := triggerParamsFieldValidator.Struct(p); err != nil {
		return nil, &SchedulerError{
			Op:     "build-trigger",
			Reason: "exactly one of expression, fixed-rate, fixed-delay, or period must be set",
			Err:    err,
		}
	}

	loc, err := resolveZone(p.Zone)
	if err != nil {
		return nil, err
	}

	switch {
	case p.Expression != "":
		expr, err := ParseCronExpression(p.Expression)
		if err != nil {
			return nil, err
		}
		return &CronTrigger{Expr: expr, Loc: loc}, nil

	case p.FixedDelay != 0:
		if p.FixedDelay <= 0 {
			return nil, &SchedulerError{Op: "build-trigger", Reason: "fixed-delay must be a strictly positive duration"}
		}
		return &FixedDelayTrigger{Delay: p.FixedDelay, Loc: loc, InitialDelay: p.InitialDelay}, nil

	case p.FixedRate != 0:
		if p.FixedRate <= 0 {
			return nil, &SchedulerError{Op: "build-trigger", Reason: "fixed-rate must be a strictly positive duration"}
		}
		return &FixedRateTrigger{Period: p.FixedRate, Loc: loc, InitialDelay: p.InitialDelay}, nil

	case p.Period != 0:
		if p.Period <= 0 {
			return nil, &SchedulerError{Op: "build-trigger", Reason: "period must be a strictly positive duration"}
		}
		return &PeriodicTrigger{Period: p.Period, Loc: loc}, nil
	}

	// Unreachable: triggerParamsFieldValidator above already rejects a
	// bundle with none of the four trigger-kind fields set.
	return nil, &SchedulerError{
		Op:     "build-trigger",
		Reason: "exactly one of expression, fixed-rate, fixed-delay, or period must be set",
	}
}

func resolveZone(name string) (*time.Location, error) {
	if name == "" {
		if DefaultZone != nil {
			return DefaultZone, nil
		}
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &SchedulerError{Op: "build-trigger", Reason: "unknown zone " + strQuote(name), Err: err}
	}
	return loc, nil
}
