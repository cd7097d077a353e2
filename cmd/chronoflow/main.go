// Package main is the entry point of the chronoflow CLI.
// It uses cobra for command management and viper for configuration.
package main

import (
	"fmt"
	"os"

	"github.com/brinestone/chronoflow/cmd/chronoflow/commands"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := commands.NewRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
