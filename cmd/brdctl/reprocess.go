package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reprocessWorkers int

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Rebuild every unprocessed document",
	Long: `Finds documents that were never processed or failed processing, across
all users, and runs the ingestion pipeline for each through a worker pool.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := connect(ctx); err != nil {
			return err
		}

		summary, err := reprocessFn(ctx, workerCount(cmd))
		cmd.Printf("Submitted: %d  Succeeded: %d  Failed: %d\n", summary.Submitted, summary.Succeeded, summary.Failed)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d documents failed", summary.Failed)
		}
		return nil
	},
}

// workerCount prefers an explicit --workers over REPROCESS_WORKERS.
func workerCount(cmd *cobra.Command) int {
	if !cmd.Flags().Changed("workers") && application != nil && application.Config.ReprocessWorkers > 0 {
		return application.Config.ReprocessWorkers
	}
	return reprocessWorkers
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := connect(ctx); err != nil {
			return err
		}
		if err := migrateFn(); err != nil {
			return err
		}
		cmd.Println("✓ Schema is up to date")
		return nil
	},
}

func init() {
	reprocessCmd.Flags().IntVarP(&reprocessWorkers, "workers", "w", 4, "number of concurrent workers")
	rootCmd.AddCommand(reprocessCmd, migrateCmd)
}
