package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeclare_AllAcceptedSignatures(t *testing.T) {
	t.Parallel()
	r := NewRegistrar()

	fns := []any{
		func() {},
		func() error { return nil },
		func(ctx context.Context) {},
		func(ctx context.Context) error { return nil },
	}

	for i, fn := range fns {
		err := Declare(r, Declaration{
			Fn:     fn,
			Params: TriggerParams{Period: time.Hour},
			Name:   namedTask(i),
		})
		require.NoError(t, err)
	}
}

func TestDeclare_RejectsParameterizedFunction(t *testing.T) {
	t.Parallel()
	r := NewRegistrar()

	err := Declare(r, Declaration{
		Fn:     func(a, b int) {},
		Params: TriggerParams{Period: time.Hour},
		Name:   "bad-arity",
	})
	require.Error(t, err)
	var se *SchedulerError
	require.ErrorAs(t, err, &se)
}

func TestDeclare_RejectsNonContextParameter(t *testing.T) {
	t.Parallel()
	r := NewRegistrar()

	err := Declare(r, Declaration{
		Fn:     func(s string) {},
		Params: TriggerParams{Period: time.Hour},
		Name:   "bad-param",
	})
	require.Error(t, err)
}

func TestDeclare_RejectsNonErrorReturn(t *testing.T) {
	t.Parallel()
	r := NewRegistrar()

	err := Declare(r, Declaration{
		Fn:     func() int { return 0 },
		Params: TriggerParams{Period: time.Hour},
		Name:   "bad-return",
	})
	require.Error(t, err)
}

func TestDeclare_RejectsConflictingTriggerParams(t *testing.T) {
	t.Parallel()
	r := NewRegistrar()

	err := Declare(r, Declaration{
		Fn:     func() {},
		Params: TriggerParams{Period: time.Hour, FixedRate: time.Minute},
		Name:   "conflicting",
	})
	require.Error(t, err)
	require.False(t, r.HasTasks(), "a rejected declaration must not reach the registrar")
}

func TestDeclare_RoutesThroughToRegistrar(t *testing.T) {
	t.Parallel()
	r := NewRegistrar()

	err := Declare(r, Declaration{
		Fn:     func() error { return nil },
		Params: TriggerParams{Period: time.Hour},
		Name:   "routed",
	})
	require.NoError(t, err)
	require.True(t, r.HasTasks())

	require.NoError(t, r.Ready())
	require.Len(t, r.Tasks(), 1)
	r.Destroy()
}

func TestDeclare_AdaptedErrorPropagates(t *testing.T) {
	t.Parallel()
	run, err := toRunnable("x", func() error { return errors.New("declared failure") })
	require.NoError(t, err)
	require.Error(t, run(context.Background()))
}

func TestDeclare_GeneratesNameWhenUnset(t *testing.T) {
	t.Parallel()
	r := NewRegistrar(WithNamePrefix("batch"))

	err := Declare(r, Declaration{
		Fn:     func() {},
		Params: TriggerParams{Period: time.Hour},
		Scope:  "Reports", Operation: "Nightly",
	})
	require.NoError(t, err)
	require.NoError(t, r.Ready())

	tasks := r.Tasks()
	require.Len(t, tasks, 1)
	require.Equal(t, "batch-nightly", tasks[0].Name())
	r.Destroy()
}

func TestDeclare_GeneratedNameDerivesKindFromTrigger(t *testing.T) {
	t.Parallel()
	r := NewRegistrar()

	err := Declare(r,
		Declaration{
			Fn:     func() {},
			Params: TriggerParams{Period: time.Hour},
			Scope:  "Reports", Operation: "Nightly",
		},
		Declaration{
			Fn:     func() {},
			Params: TriggerParams{Expression: "0 0 3 * * *"},
			Scope:  "Backups", Operation: "Full",
		},
	)
	require.NoError(t, err)
	require.NoError(t, r.Ready())

	names := make(map[string]bool)
	for _, task := range r.Tasks() {
		names[task.Name()] = true
	}
	require.True(t, names["periodic-reports-nightly"])
	require.True(t, names["cron-backups-full"])
	r.Destroy()
}

func TestDeclare_AdaptedContextIsPassedThrough(t *testing.T) {
	t.Parallel()
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")

	var seen any
	run, err := toRunnable("x", func(ctx context.Context) {
		seen = ctx.Value(key{})
	})
	require.NoError(t, err)
	require.NoError(t, run(ctx))
	require.Equal(t, "value", seen)
}
