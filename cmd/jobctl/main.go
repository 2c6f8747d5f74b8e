package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"job-collector/internal/config"
	"job-collector/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Debug)

	root := &cobra.Command{
		Use:           "jobctl",
		Short:         "Collect job postings from configured boards and keep the store bounded",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCollectCmd(cfg),
		newRetentionCmd(cfg),
		newStatsCmd(cfg),
		newServeCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
