package commands

import (
	"fmt"
	"time"

	"github.com/brinestone/chronoflow/pkg/chronoflow/scheduler"
	"github.com/spf13/cobra"
)

// newScheduleCmd creates the `chronoflow schedule` command for managing
// the on-disk task manifest that `serve` loads at startup.
func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled tasks",
		Long: `Manage the tasks chronoflow will register when serve starts.

Examples:
  chronoflow schedule add-cron heartbeat --expression "0 */5 * * * *"
  chronoflow schedule add-fixed-rate poll --period 30s
  chronoflow schedule list
  chronoflow schedule inspect heartbeat
  chronoflow schedule remove heartbeat`,
	}

	cmd.PersistentFlags().String("manifest", "", "path to the task manifest (defaults to CHRONOFLOW_MANIFEST or ./chronoflow-tasks.json)")

	cmd.AddCommand(
		newScheduleAddCronCmd(),
		newScheduleAddFixedRateCmd(),
		newScheduleAddFixedDelayCmd(),
		newScheduleAddPeriodicCmd(),
		newScheduleListCmd(),
		newScheduleRemoveCmd(),
		newScheduleInspectCmd(),
	)

	return cmd
}

func manifestPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		path = defaultManifestPath()
	}
	return path
}

func newScheduleAddCronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-cron <name>",
		Short: "Add a cron-triggered task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, _ := cmd.Flags().GetString("expression")
			zone, _ := cmd.Flags().GetString("zone")
			if expr == "" {
				return fmt.Errorf("--expression is required")
			}
			if _, err := scheduler.ParseCronExpression(expr); err != nil {
				return err
			}
			entry := manifestEntry{Name: args[0], Expression: expr, Zone: zone}
			if err := appendManifestEntry(manifestPath(cmd), entry); err != nil {
				return err
			}
			fmt.Printf("added cron task %q: %q\n", entry.Name, expr)
			return nil
		},
	}
	cmd.Flags().String("expression", "", "six-field cron expression")
	cmd.Flags().String("zone", "", "IANA timezone name")
	return cmd
}

func newScheduleAddFixedRateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-fixed-rate <name>",
		Short: "Add a fixed-rate task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetDuration("period")
			initialDelay, _ := cmd.Flags().GetDuration("initial-delay")
			zone, _ := cmd.Flags().GetString("zone")
			if period <= 0 {
				return fmt.Errorf("--period must be positive")
			}
			entry := manifestEntry{Name: args[0], FixedRate: period, InitialDelay: initialDelay, Zone: zone}
			if err := appendManifestEntry(manifestPath(cmd), entry); err != nil {
				return err
			}
			fmt.Printf("added fixed-rate task %q: every %s\n", entry.Name, period)
			return nil
		},
	}
	cmd.Flags().Duration("period", 0, "interval between scheduled starts")
	cmd.Flags().Duration("initial-delay", 0, "delay before the first execution")
	cmd.Flags().String("zone", "", "IANA timezone name")
	return cmd
}

func newScheduleAddFixedDelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-fixed-delay <name>",
		Short: "Add a fixed-delay task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delay, _ := cmd.Flags().GetDuration("delay")
			initialDelay, _ := cmd.Flags().GetDuration("initial-delay")
			zone, _ := cmd.Flags().GetString("zone")
			if delay <= 0 {
				return fmt.Errorf("--delay must be positive")
			}
			entry := manifestEntry{Name: args[0], FixedDelay: delay, InitialDelay: initialDelay, Zone: zone}
			if err := appendManifestEntry(manifestPath(cmd), entry); err != nil {
				return err
			}
			fmt.Printf("added fixed-delay task %q: %s after each completion\n", entry.Name, delay)
			return nil
		},
	}
	cmd.Flags().Duration("delay", 0, "delay after completion before the next start")
	cmd.Flags().Duration("initial-delay", 0, "delay before the first execution")
	cmd.Flags().String("zone", "", "IANA timezone name")
	return cmd
}

func newScheduleAddPeriodicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-periodic <name>",
		Short: "Add a periodic task anchored on actual start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetDuration("period")
			zone, _ := cmd.Flags().GetString("zone")
			if period <= 0 {
				return fmt.Errorf("--period must be positive")
			}
			entry := manifestEntry{Name: args[0], Period: period, Zone: zone}
			if err := appendManifestEntry(manifestPath(cmd), entry); err != nil {
				return err
			}
			fmt.Printf("added periodic task %q: every %s\n", entry.Name, period)
			return nil
		},
	}
	cmd.Flags().Duration("period", 0, "interval from the previous actual start")
	cmd.Flags().String("zone", "", "IANA timezone name")
	return cmd
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks in the manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := loadManifest(manifestPath(cmd))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no tasks scheduled.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%-20s %s\n", e.Name, describeEntry(e))
			}
			return nil
		},
	}
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a task from the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := removeManifestEntry(manifestPath(cmd), args[0]); err != nil {
				return err
			}
			fmt.Printf("task %q removed.\n", args[0])
			return nil
		},
	}
}

func newScheduleInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <name>",
		Short: "Preview the next scheduled fire times for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			entries, err := loadManifest(manifestPath(cmd))
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Name != args[0] {
					continue
				}
				return inspectEntry(e, count)
			}
			return fmt.Errorf("task %q not found", args[0])
		},
	}
	cmd.Flags().Int("count", 5, "number of upcoming fire times to preview")
	return cmd
}

func describeEntry(e manifestEntry) string {
	switch {
	case e.Expression != "":
		return fmt.Sprintf("cron %q", e.Expression)
	case e.FixedDelay != 0:
		return fmt.Sprintf("fixed-delay %s", e.FixedDelay)
	case e.FixedRate != 0:
		return fmt.Sprintf("fixed-rate %s", e.FixedRate)
	default:
		return fmt.Sprintf("periodic %s", e.Period)
	}
}

func inspectEntry(e manifestEntry, count int) error {
	params := toTriggerParams(e)
	trigger, err := scheduler.BuildTrigger(params)
	if err != nil {
		return err
	}

	ctx := scheduler.NewExecutionContext()
	fmt.Printf("task %q (%s), zone %s\n", e.Name, describeEntry(e), trigger.Zone())
	for i := 0; i < count; i++ {
		next, ok := trigger.NextFireTime(ctx)
		if !ok {
			fmt.Println("  (no further fire times)")
			break
		}
		fmt.Printf("  %s\n", next.Format(time.RFC3339))
		ctx.RecordScheduled(next)
		ctx.RecordActualStart(next)
		ctx.RecordCompletion(next)
	}
	return nil
}

func toTriggerParams(e manifestEntry) scheduler.TriggerParams {
	return scheduler.TriggerParams{
		Expression:   e.Expression,
		FixedRate:    e.FixedRate,
		FixedDelay:   e.FixedDelay,
		Period:       e.Period,
		InitialDelay: e.InitialDelay,
		Zone:         e.Zone,
	}
}
