package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amishk599/staffsync/internal/webhook"
	"github.com/spf13/cobra"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Webhook subcommands",
}

var webhookReplayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Apply saved webhook events",
	Long:  "Reads one event or a JSON array of events from file (or - for stdin) and applies them in order.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookReplay,
}

func init() {
	webhookCmd.AddCommand(webhookReplayCmd)
	rootCmd.AddCommand(webhookCmd)
}

func runWebhookReplay(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)

	in := os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			logger.Error("failed to open events file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	events, err := webhook.DecodeEvents(in)
	if err != nil {
		logger.Error("failed to decode events", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, appOptions{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ingestor := webhook.NewIngestor(a.syncer, a.provider, a.store, a.metrics, logger)
	failed := 0
	for i, ev := range events {
		if err := ingestor.Handle(ctx, ev); err != nil {
			failed++
			logger.Warn("event failed", "index", i, "type", ev.Type, "error", err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events, %d failed\n", len(events), failed)
	return nil
}
