package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent ingestion runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := st.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no ingestion runs recorded")
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %-14s accepted=%-6d skipped=%-6d %dms  %s\n",
				shortID(r.RunID), r.Layer, r.Accepted, r.Skipped, r.DurationMs,
				r.LoadedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

// shortID abbreviates a uuid for display. Ids shorter than the prefix, which
// can happen with hand-inserted bookkeeping rows, print in full.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum rows to show")
	rootCmd.AddCommand(runsCmd)
}
