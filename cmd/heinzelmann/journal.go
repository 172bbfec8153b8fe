package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Siroj42/heinzelmann/internal/infrastructure/config"
	"github.com/Siroj42/heinzelmann/internal/journal"
)

func newJournalCmd(configPath *string) *cobra.Command {
	var (
		filter journal.Filter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled evaluations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.ResolvePath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			db, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Read-only use

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			result, err := journal.NewSQLiteRepository(db.DB).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return writeJournal(cmd, result)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter.Source, "source", "", "only entries from this source (bus, timer, repl, console, program)")
	flags.StringVar((*string)(&filter.Outcome), "outcome", "", "only entries with this outcome (empty, return, error)")
	flags.IntVar(&filter.Limit, "limit", 0, "maximum entries to show (default 50)")
	flags.IntVar(&filter.Offset, "offset", 0, "entries to skip")
	flags.BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func writeJournal(cmd *cobra.Command, result *journal.ListResult) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSOURCE\tOUTCOME\tDURATION\tCODE\tRESULT")
	for _, e := range result.Entries {
		res := e.Value
		if e.Outcome == journal.OutcomeError {
			res = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Source,
			e.Outcome,
			e.Duration.Round(time.Microsecond),
			oneLine(e.Code),
			oneLine(res),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d\n", len(result.Entries), result.Total)
	return err
}

const maxColumn = 60

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxColumn {
		return s[:maxColumn-3] + "..."
	}
	return s
}
