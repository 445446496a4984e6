package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/spf13/cobra"
)

var (
	syncFacilities bool
	syncSince      string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync and exit",
}

var syncFullCmd = &cobra.Command{
	Use:   "full",
	Short: "Sync every job (or facility) the provider has",
	RunE:  runSyncFull,
}

var syncIncrementalCmd = &cobra.Command{
	Use:   "incremental",
	Short: "Sync jobs updated since a point in time",
	Long:  "Sync jobs updated since --since (RFC 3339 or a duration such as 6h). Defaults to sync.lookback.",
	RunE:  runSyncIncremental,
}

func init() {
	syncFullCmd.Flags().BoolVar(&syncFacilities, "facilities", false, "sync facilities instead of jobs")
	syncIncrementalCmd.Flags().StringVar(&syncSince, "since", "", "RFC 3339 timestamp or lookback duration")
	syncCmd.AddCommand(syncFullCmd, syncIncrementalCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSyncFull(cmd *cobra.Command, args []string) error {
	return runOneShot(cmd, func(ctx context.Context, a *app) (model.RunSummary, error) {
		if syncFacilities {
			return a.syncer.FullFacilitySync(ctx)
		}
		return a.syncer.FullSync(ctx)
	})
}

func runSyncIncremental(cmd *cobra.Command, args []string) error {
	return runOneShot(cmd, func(ctx context.Context, a *app) (model.RunSummary, error) {
		since, err := parseSince(syncSince, a.cfg.Sync.Lookback, time.Now())
		if err != nil {
			return model.RunSummary{}, err
		}
		a.logger.Info("incremental sync window", "since", since.Format(time.RFC3339))
		return a.syncer.IncrementalSync(ctx, since)
	})
}

// parseSince accepts an RFC 3339 timestamp or a duration counted back from now.
// An empty value means now minus lookback.
func parseSince(value string, lookback time.Duration, now time.Time) (time.Time, error) {
	if value == "" {
		return now.Add(-lookback), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --since %q: %w", value, err)
	}
	return now.Add(-d), nil
}

func runOneShot(cmd *cobra.Command, run func(ctx context.Context, a *app) (model.RunSummary, error)) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, appOptions{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	summary, runErr := run(ctx, a)
	if !summary.Started.IsZero() {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err := a.metrics.Flush(); err != nil {
		logger.Warn("failed to push metrics", "error", err)
	}
	if runErr != nil {
		logger.Error("sync failed", "error", runErr)
		a.Close()
		os.Exit(1)
	}
	return nil
}
