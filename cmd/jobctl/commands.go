package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"job-collector/internal/config"
	"job-collector/internal/retention"
	"job-collector/internal/scheduler"
)

func newCollectCmd(cfg config.Config) *cobra.Command {
	var (
		query    string
		location string
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one collection pass across all configured sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.cleanup()

			outcome, err := d.collector.Collect(cmd.Context(), query, location, pages)
			if err != nil {
				for _, f := range outcome.Failures {
					fmt.Fprintf(os.Stderr, "source %s: %s\n", f.Source, f.Reason)
				}
				return err
			}
			ingest := d.collector.Ingest(cmd.Context(), d.store, outcome)
			return printJSON(map[string]any{"outcome": outcome, "ingest": ingest})
		},
	}
	cmd.Flags().StringVar(&query, "query", "software engineer", "search query")
	cmd.Flags().StringVar(&location, "location", "", "location filter")
	cmd.Flags().IntVar(&pages, "pages", cfg.MaxPages, "page budget per source")
	return cmd
}

func newRetentionCmd(cfg config.Config) *cobra.Command {
	var (
		task   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Run one retention pass (expiration, size, or combined)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.cleanup()

			report, err := d.sched.RunManual(cmd.Context(), task, dryRun)
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if !dryRun && noBatchCompleted(report) {
				return fmt.Errorf("retention run completed no batches")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&task, "task", scheduler.TaskCombined, "task: expiration, size, or combined")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report candidates without deleting")
	return cmd
}

// noBatchCompleted is the failed-retention exit condition: there was work to
// do but not a single record could be deleted.
func noBatchCompleted(report retention.MaintenanceReport) bool {
	candidates := report.Expiration.Candidates + report.Size.Candidates
	deleted := report.Expiration.Deleted + report.Size.Deleted
	return candidates > 0 && deleted == 0
}

func newStatsCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.cleanup()

			stats, err := d.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
