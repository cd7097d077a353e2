package commands

import (
	"fmt"

	"github.com/brinestone/chronoflow/pkg/chronoflow/scheduler"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// newConfigCmd creates the `chronoflow config` command for inspecting the
// resolved scheduler configuration.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved scheduler configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration chronoflow would start with",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

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

			fmt.Printf("max-concurrency: %d\n", cfg.MaxConcurrency)
			fmt.Printf("queue-capacity:  %d\n", cfg.QueueCapacity)
			fmt.Printf("timezone:        %s\n", displayOrDefault(cfg.Timezone, "local"))
			fmt.Printf("name-prefix:     %s\n", displayOrDefault(cfg.NamePrefix, "(none)"))
			return nil
		},
	}
}

func displayOrDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
