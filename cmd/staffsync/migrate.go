package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/amishk599/staffsync/internal/ratelimit"
	"github.com/amishk599/staffsync/internal/syncer"
	"github.com/spf13/cobra"
)

var (
	migrateBatchSize int
	migrateStartPage int
	migrateEndPage   int
	migrateDryRun    bool
	migrateVerbose   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bulk import jobs from the provider",
	Long: "Walks the provider's job listing page by page and writes every job to the store. " +
		"Failed records are counted and skipped; the command exits non-zero only if the run itself fails.",
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVarP(&migrateBatchSize, "batch-size", "b", 100, "records per page")
	migrateCmd.Flags().IntVarP(&migrateStartPage, "start-page", "s", 1, "first page to fetch")
	migrateCmd.Flags().IntVarP(&migrateEndPage, "end-page", "e", 0, "last page to fetch (default: until the provider runs out)")
	migrateCmd.Flags().BoolVarP(&migrateDryRun, "dry-run", "d", false, "fetch and transform without writing")
	migrateCmd.Flags().BoolVarP(&migrateVerbose, "verbose", "v", false, "log every record")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug || migrateVerbose)
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		printSummary(out, abortedMigrateSummary(migrateDryRun))
		os.Exit(1)
	}

	if migrateBatchSize < 1 || migrateStartPage < 1 || (migrateEndPage != 0 && migrateEndPage < migrateStartPage) {
		logger.Error("invalid page range",
			"batch_size", migrateBatchSize,
			"start_page", migrateStartPage,
			"end_page", migrateEndPage,
		)
		printSummary(out, abortedMigrateSummary(migrateDryRun))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, appOptions{dryRun: migrateDryRun}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		printSummary(out, abortedMigrateSummary(migrateDryRun))
		os.Exit(1)
	}
	defer a.Close()

	logger.Info("starting migration",
		"batch_size", migrateBatchSize,
		"start_page", migrateStartPage,
		"end_page", migrateEndPage,
		"dry_run", migrateDryRun,
		"page_pause", cfg.Sync.PagePause.String(),
	)

	summary, runErr := a.syncer.Run(ctx, syncer.RunOptions{
		Kind:      syncer.KindMigrate,
		StartPage: migrateStartPage,
		EndPage:   migrateEndPage,
		PageSize:  migrateBatchSize,
		Pacer:     ratelimit.NewPacer(cfg.Sync.PagePause),
		DryRun:    migrateDryRun,
	})
	printSummary(out, summary)

	if err := a.metrics.Flush(); err != nil {
		logger.Warn("failed to push metrics", "error", err)
	}

	if runErr != nil {
		logger.Error("migration failed", "error", runErr)
		a.Close()
		os.Exit(1)
	}
	return nil
}

// abortedMigrateSummary is printed when the run fails before any page is
// fetched.
func abortedMigrateSummary(dryRun bool) model.RunSummary {
	return model.RunSummary{Kind: syncer.KindMigrate, DryRun: dryRun}
}
