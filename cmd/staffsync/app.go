package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/amishk599/staffsync/internal/auth"
	"github.com/amishk599/staffsync/internal/breaker"
	"github.com/amishk599/staffsync/internal/config"
	"github.com/amishk599/staffsync/internal/metrics"
	"github.com/amishk599/staffsync/internal/provider"
	"github.com/amishk599/staffsync/internal/retry"
	"github.com/amishk599/staffsync/internal/store"
	"github.com/amishk599/staffsync/internal/syncer"
	"github.com/amishk599/staffsync/internal/transform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app is the wired dependency graph shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Prometheus
	breaker  *breaker.Breaker
	provider *provider.Guarded
	store    store.Store
	syncer   *syncer.Orchestrator
	closers  []func() error
}

type appOptions struct {
	dryRun bool // writes go to a NopStore
}

func buildApp(ctx context.Context, cfg *config.Config, opts appOptions, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewPrometheus(reg, cfg.Metrics.PushURL, cfg.Metrics.PushJob)

	cache, err := a.tokenCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// The token endpoint must be reached without the bearer transport.
	tokenClient := &http.Client{Timeout: cfg.Provider.Timeout}
	tokens := auth.NewManager(auth.Config{
		BaseURL:      cfg.Provider.BaseURL,
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		Username:     cfg.Provider.Username,
		Password:     cfg.Provider.Password,
	}, cache, tokenClient, logger)
	tokens.OnGrant(a.metrics.RecordTokenGrant)

	apiClient := &http.Client{
		Transport: auth.NewTransport(http.DefaultTransport, tokens, logger),
		Timeout:   cfg.Provider.Timeout,
	}

	a.breaker = breaker.New("provider", breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
	},
		breaker.WithFailurePredicate(provider.TripsCircuit),
		breaker.WithObserver(func(from, to breaker.State) {
			logger.Warn("circuit state changed", "breaker", "provider", "from", from.String(), "to", to.String())
			a.metrics.RecordCircuitTransition("provider", from.String(), to.String())
		}),
	)
	policy := retry.Policy{
		InitialDelay: cfg.Retry.InitialDelay,
		Factor:       cfg.Retry.Factor,
		MaxDelay:     cfg.Retry.MaxDelay,
		MaxRetries:   cfg.Retry.MaxRetries,
	}
	guard := provider.NewGuard(a.breaker, policy, a.metrics, logger)
	a.provider = provider.NewGuarded(provider.NewClient(cfg.Provider.BaseURL, apiClient), guard)

	if opts.dryRun {
		a.store = store.NewNopStore(logger)
	} else {
		a.store, err = openStore(ctx, cfg.Store)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.closers = append(a.closers, a.store.Close)

	a.syncer = syncer.New(
		a.provider,
		transform.NewJobTransformer(cfg.Brand, nil),
		transform.NewFacilityTransformer(nil),
		a.store,
		a.metrics,
		logger,
		syncer.WithPageSize(cfg.Provider.PageSize),
		syncer.WithIncludeDetails(cfg.Sync.IncludeDetails),
	)
	return a, nil
}

func (a *app) tokenCache(ctx context.Context) (auth.TokenCache, error) {
	if a.cfg.TokenCache.Type != "redis" {
		return auth.NewMemoryCache(), nil
	}
	rdb, err := auth.NewRedisClient(ctx, a.cfg.TokenCache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)
	a.logger.Info("using redis token cache")
	return auth.NewRedisCache(rdb), nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		s, err := store.NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
