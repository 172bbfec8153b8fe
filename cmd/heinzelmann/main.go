// Heinzelmann - event-driven home automation hub
//
// This is the main entry point for the heinzelmann hub. The hub runs a
// user program written in Scheme against an MQTT bus and a daily timer
// scheduler, and exposes the same environment through an nREPL server
// and an optional console.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Siroj42/heinzelmann/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}

// newRootCmd builds the command tree. Without a subcommand the hub runs.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "heinzelmann",
		Short:         "Event-driven home automation hub",
		Long:          "heinzelmann runs a Scheme automation program against an MQTT bus and a daily timer schedule, with an nREPL server for live inspection.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHub(cmd, configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the configuration file (default $HEINZELMANN_CONFIG or "+config.DefaultPath+")")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newEvalCmd(),
		newJournalCmd(&configPath),
		newMigrateCmd(&configPath),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "heinzelmann %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
}
