package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vectoratlas/atlas-cli/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the store from the survey input files",
	Long:  "Drops and recreates both tables, normalizes every layer file named by the dataset manifest, and prints per-layer accepted/skipped counts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, runErr := ingest.Run(ctx, cfg, st)
		if result != nil {
			printSummary(result)
		}
		return runErr
	},
}

// printSummary writes the per-layer counts to stdout, the operator-facing
// half of the run's observability.
func printSummary(result *ingest.Result) {
	fmt.Printf("run %s (%s)\n", result.RunID, result.Duration.Round(time.Millisecond))
	fmt.Printf("species: %d loaded, %d dropped\n", result.SpeciesLoaded, result.SpeciesDropped)
	for _, stats := range result.Layers {
		fmt.Printf("%-14s accepted=%-6d skipped=%d", stats.Layer, stats.Accepted, stats.Skipped)
		for reason, n := range stats.Reasons {
			fmt.Printf(" %s=%d", reason, n)
		}
		fmt.Println()
	}
	fmt.Printf("features loaded: %d\n", result.FeaturesLoaded)
}

func init() { rootCmd.AddCommand(ingestCmd) }
