// Package commands implements chronoflow's CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with every subcommand
// registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chronoflow",
		Short: "chronoflow - a cron and interval task scheduler",
		Long: `chronoflow is a standalone task scheduler: six-field cron
expressions, fixed-rate, fixed-delay, and periodic triggers, a bounded
concurrency gate, and a registrar for programmatic task declarations.

Examples:
  chronoflow schedule add-cron backup --expression "0 0 3 * * *"
  chronoflow schedule list
  chronoflow serve`,
		Version: version,
	}

	rootCmd.AddCommand(
		newScheduleCmd(),
		newServeCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
