package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Siroj42/heinzelmann/internal/infrastructure/config"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	var (
		down   bool
		status bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply journal schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if down && status {
				return fmt.Errorf("--down and --status are mutually exclusive")
			}

			cfg, err := config.Load(config.ResolvePath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			db, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Nothing pending

			switch {
			case down:
				if err := db.MigrateDown(cmd.Context()); err != nil {
					return fmt.Errorf("rolling back: %w", err)
				}
			case !status:
				if err := db.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
			}

			applied, pending, err := db.GetMigrationStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading migration status: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, m := range applied {
				fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Local().Format(time.DateTime))
			}
			for _, m := range pending {
				fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	cmd.Flags().BoolVar(&status, "status", false, "only show migration status")

	return cmd
}
