package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amishk599/staffsync/internal/scheduler"
	"github.com/amishk599/staffsync/internal/webhook"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and scheduled syncs",
	Long:  "Serve provider webhooks and run incremental syncs on the configured schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoad(logger)

	logger.Info("config loaded",
		"provider", cfg.Provider.BaseURL,
		"store", cfg.Store.Driver,
		"token_cache", cfg.TokenCache.Type,
		"schedule", cfg.Sync.Schedule,
		"addr", cfg.Server.Addr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, appOptions{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	n := setupNotifier(cfg, httpClient, logger)

	ingestor := webhook.NewIngestor(a.syncer, a.provider, a.store, a.metrics, logger)
	if cfg.Server.WebhookSecret == "" {
		logger.Warn("webhook signature checks disabled: server.webhook_secret is empty")
	}
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: webhook.NewRouter(ingestor,
			webhook.WithSecret(cfg.Server.WebhookSecret),
			webhook.WithHealthCheck(a.provider.Health),
			webhook.WithMetricsHandler(a.metrics.Handler()),
			webhook.WithLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched := scheduler.NewScheduler(a.syncer, cfg.Sync.Schedule, cfg.Sync.Lookback, n, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		a.Close()
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
