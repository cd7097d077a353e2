package scheduler

import (
	"context"
	"fmt"
	"reflect"
)

// Declaration is the external subsystem's discovered-entity triple:
// a function value, the trigger parameters it was declared with, and a
// suggested name. It exists so a secondary discovery surface — struct
// tags, a configuration table, whatever is idiomatic for the caller —
// can hand chronoflow pre-built registrations without chronoflow itself
// depending on any reflection/DI container.
//
// Fn must be one of func(), func() error, func(context.Context), or
// func(context.Context) error. Any other shape is rejected: extra
// parameters as "scheduled methods must be parameterless", other
// results as "scheduled methods may only return error".
type Declaration struct {
	Fn     any
	Params TriggerParams
	Name   string

	// Scope and Operation, if Name is empty, are fed to GenerateName
	// along with the Registrar's configured prefix to derive one.
	Scope     string
	Operation string
}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()

// toRunnable validates Fn's shape and adapts it to a Runnable. It
// returns a *SchedulerError naming the declaration if Fn takes
// parameters other than an optional leading context.Context, or returns
// values other than an optional trailing error.
func toRunnable(name string, fn any) (Runnable, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, &SchedulerError{Op: "declare", Reason: fmt.Sprintf("%q: not a function", name)}
	}
	t := v.Type()

	takesCtx := false
	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0) != ctxType {
			return nil, &SchedulerError{Op: "declare", Reason: fmt.Sprintf("%q: scheduled methods must be parameterless (or take only context.Context)", name)}
		}
		takesCtx = true
	default:
		return nil, &SchedulerError{Op: "declare", Reason: fmt.Sprintf("%q: scheduled methods must be parameterless", name)}
	}

	returnsErr := false
	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) != errType {
			return nil, &SchedulerError{Op: "declare", Reason: fmt.Sprintf("%q: scheduled methods may only return error", name)}
		}
		returnsErr = true
	default:
		return nil, &SchedulerError{Op: "declare", Reason: fmt.Sprintf("%q: scheduled methods may only return error", name)}
	}

	return func(ctx context.Context) error {
		var args []reflect.Value
		if takesCtx {
			args = []reflect.Value{reflect.ValueOf(ctx)}
		}
		out := v.Call(args)
		if returnsErr && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, nil
}

// Declare resolves each Declaration's trigger parameters and forwards
// the adapted runnable to r.Register. Trigger-bundle conflicts (e.g.
// both Expression and FixedRate set) and parameterized functions are
// rejected at this point, before the Registrar ever sees the
// declaration — matching the annotation-driven façade's
// validate-at-registration-time contract.
func Declare(r *Registrar, decls ...Declaration) error {
	for _, d := range decls {
		name := d.Name
		if name == "" {
			kind := KindScheduled
			switch {
			case d.Params.Expression != "":
				kind = KindCron
			case d.Params.Period != 0:
				kind = KindPeriodic
			}
			name = GenerateName(r.namePrefix, kind, d.Scope, "", d.Operation)
		}

		run, err := toRunnable(name, d.Fn)
		if err != nil {
			return err
		}
		if err := checkTriggerExclusivity(d.Params); err != nil {
			return &SchedulerError{Op: "declare", Reason: fmt.Sprintf("%q: %v", name, err)}
		}
		trigger, err := BuildTrigger(d.Params)
		if err != nil {
			return &SchedulerError{Op: "declare", Reason: fmt.Sprintf("%q: %v", name, err)}
		}
		if _, err := r.Register(run, trigger, name); err != nil {
			return err
		}
	}
	return nil
}

// checkTriggerExclusivity rejects a TriggerParams bundle with more than
// one trigger-kind field set, via triggerParamsExclusivityValidator's
// registered struct-level rule. BuildTrigger itself resolves such a
// bundle by precedence, but the declarative façade holds declarations to
// the stricter contract: conflicting trigger parameters on a single
// declared entity are a registration-time error.
func checkTriggerExclusivity(p TriggerParams) error {
	if err := triggerParamsExclusivityValidator.Struct(p); err != nil {
		return fmt.Errorf("conflicting trigger parameters: exactly one of expression, fixed-rate, fixed-delay, or period must be set: %w", err)
	}
	return nil
}
