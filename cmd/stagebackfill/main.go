package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"fundgate-backend/internal/application/backfill"
	"fundgate-backend/internal/config"
	"fundgate-backend/internal/infrastructure/database"

	"github.com/spf13/cobra"
)

var (
	dryRun    bool
	batchSize int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stagebackfill",
		Short: "Assign an explicit stage to investors that have none",
		Long: `Infers a stage from KYC status, onboarding step and onboarding completion
for every investor whose stage is NULL, and stores it.

Examples:
  stagebackfill --dry-run
  stagebackfill --batch-size 1000`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report inferred stages without writing")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", backfill.DefaultBatchSize, "investors read per batch")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url is not configured for %s", cfg.Env)
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	rep, err := backfill.Stages(context.Background(), db, backfill.Options{DryRun: dryRun, BatchSize: batchSize})
	if err != nil {
		return fmt.Errorf("backfill failed after %d investors: %w", rep.Scanned, err)
	}
	if dryRun {
		fmt.Println("Dry run - no changes made")
	}
	out, _ := json.MarshalIndent(rep, "", "  ")
	fmt.Println(string(out))
	return nil
}
