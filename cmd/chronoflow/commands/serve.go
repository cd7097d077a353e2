package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brinestone/chronoflow/pkg/chronoflow/logging"
	"github.com/brinestone/chronoflow/pkg/chronoflow/scheduler"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// newServeCmd creates the `chronoflow serve` command that loads the task
// manifest, starts the scheduler, and blocks until an interrupt signal.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the task manifest and run the scheduler",
		Long: `Start chronoflow as a long-running process: every task in the
manifest is registered and the scheduler runs until interrupted.

Examples:
  chronoflow serve
  chronoflow serve --manifest ./tasks.json`,
		RunE: runServe,
	}

	cmd.Flags().String("manifest", "", "path to the task manifest (defaults to CHRONOFLOW_MANIFEST or ./chronoflow-tasks.json)")
	cmd.Flags().String("log-file", "", "also write JSON logs to this rotated file")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logFile, _ := cmd.Flags().GetString("log-file")
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, closeLogger := logging.New(logging.Options{Level: level, FilePath: logFile})
	defer closeLogger()

	v := scheduler.NewViper()
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := scheduler.LoadConfig(v)
	if err != nil {
		return err
	}
	schedOpts, err := cfg.SchedulerOptions()
	if err != nil {
		return err
	}
	schedOpts = append(schedOpts, scheduler.WithSchedulerLogger(logger))

	path := manifestPath(cmd)
	entries, err := loadManifest(path)
	if err != nil {
		return err
	}

	registrar := scheduler.NewRegistrar(
		scheduler.WithRegistrarLogger(logger),
		scheduler.WithNamePrefix(cfg.NamePrefix),
	)

	for _, e := range entries {
		params := toTriggerParams(e)
		trigger, err := scheduler.BuildTrigger(params)
		if err != nil {
			logger.Error("skipping malformed task", "name", e.Name, "error", err)
			continue
		}
		run := illustrativeRunnable(logger, e.Name)
		if _, err := registrar.Register(run, trigger, e.Name); err != nil {
			logger.Error("failed to register task", "name", e.Name, "error", err)
		}
	}

	if err := registrar.Ready(schedOpts...); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	logger.Info("chronoflow running, press Ctrl+C to stop",
		"tasks", len(registrar.Tasks()),
		"max_concurrency", cfg.MaxConcurrency,
		"queue_capacity", cfg.QueueCapacity,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		registrar.Destroy()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// illustrativeRunnable builds a Runnable that just logs its own
// invocation. chronoflow's manifest carries trigger parameters only, not
// arbitrary business logic, so serve demonstrates the scheduling
// machinery rather than running user-supplied commands.
func illustrativeRunnable(logger *slog.Logger, name string) scheduler.Runnable {
	return func(ctx context.Context) error {
		logger.Info("task fired", "name", name)
		return nil
	}
}
