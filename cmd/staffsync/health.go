package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check provider connectivity and store contents",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := buildApp(ctx, cfg, appOptions{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	healthy := true

	start := time.Now()
	if err := a.provider.Health(ctx); err != nil {
		healthy = false
		fmt.Fprintf(out, "provider   FAIL  %v\n", err)
	} else {
		fmt.Fprintf(out, "provider   OK    %s\n", time.Since(start).Round(time.Millisecond))
	}

	counts, err := a.store.Counts(ctx)
	if err != nil {
		healthy = false
		fmt.Fprintf(out, "store      FAIL  %v\n", err)
	} else {
		fmt.Fprintf(out, "store      OK    %d jobs (%d active, %d deleted), %d facilities\n",
			counts.Jobs, counts.ActiveJobs, counts.DeletedJobs, counts.Facilities)
	}
	fmt.Fprintf(out, "circuit    %s\n", a.breaker.State())

	if !healthy {
		a.Close()
		os.Exit(1)
	}
	return nil
}
