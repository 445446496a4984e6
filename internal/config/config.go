package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for staffsync.
type Config struct {
	Brand        string
	Provider     ProviderConfig
	Breaker      BreakerConfig
	Retry        RetryConfig
	TokenCache   TokenCacheConfig
	Store        StoreConfig
	Sync         SyncConfig
	Server       ServerConfig
	Notification NotificationConfig
	Metrics      MetricsConfig
}

// ProviderConfig locates the provider API and carries its credentials.
type ProviderConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string // expanded from env var by Load
	Username     string
	Password     string // expanded from env var by Load
	Timeout      time.Duration
	PageSize     int
}

// BreakerConfig controls the provider circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// RetryConfig controls exponential backoff for provider calls.
type RetryConfig struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	MaxRetries   int
}

// TokenCacheConfig selects where access tokens are cached.
type TokenCacheConfig struct {
	Type     string `yaml:"type"`      // "memory" or "redis"
	RedisURL string `yaml:"redis_url"` // required if type is "redis"
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection URL for postgres
}

// SyncConfig controls scheduled and batch syncs.
type SyncConfig struct {
	Schedule       string        // cron spec for incremental syncs
	Lookback       time.Duration // window for the first incremental sync
	PagePause      time.Duration // pause between pages in migrate runs
	IncludeDetails bool
}

// ServerConfig controls the webhook HTTP server.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	WebhookSecret string `yaml:"webhook_secret"` // empty disables signature checks
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// MetricsConfig controls where batch runs push their metrics.
type MetricsConfig struct {
	PushURL string `yaml:"push_url"` // Pushgateway URL; empty disables pushing
	PushJob string `yaml:"push_job"`
}

const (
	defaultBrand      = "StaffSync"
	defaultSQLitePath = "staffsync.db"
	defaultAddr       = ":8080"
	defaultSchedule   = "@every 15m"
	defaultPushJob    = "staffsync"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Brand        string             `yaml:"brand"`
	Provider     rawProviderConfig  `yaml:"provider"`
	Breaker      rawBreakerConfig   `yaml:"breaker"`
	Retry        rawRetryConfig     `yaml:"retry"`
	TokenCache   TokenCacheConfig   `yaml:"token_cache"`
	Store        StoreConfig        `yaml:"store"`
	Sync         rawSyncConfig      `yaml:"sync"`
	Server       ServerConfig       `yaml:"server"`
	Notification NotificationConfig `yaml:"notification"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type rawProviderConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Timeout      string `yaml:"timeout"`
	PageSize     int    `yaml:"page_size"`
}

type rawBreakerConfig struct {
	FailureThreshold int    `yaml:"failure_threshold"`
	ResetTimeout     string `yaml:"reset_timeout"`
}

type rawRetryConfig struct {
	InitialDelay string  `yaml:"initial_delay"`
	Factor       float64 `yaml:"factor"`
	MaxDelay     string  `yaml:"max_delay"`
	MaxRetries   *int    `yaml:"max_retries"`
}

type rawSyncConfig struct {
	Schedule       string `yaml:"schedule"`
	Lookback       string `yaml:"lookback"`
	PagePause      string `yaml:"page_pause"`
	IncludeDetails *bool  `yaml:"include_details"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var d durations
	cfg := &Config{
		Brand: withDefault(raw.Brand, defaultBrand),
		Provider: ProviderConfig{
			BaseURL:      strings.TrimSuffix(raw.Provider.BaseURL, "/"),
			ClientID:     raw.Provider.ClientID,
			ClientSecret: raw.Provider.ClientSecret,
			Username:     raw.Provider.Username,
			Password:     raw.Provider.Password,
			Timeout:      d.parse("provider.timeout", raw.Provider.Timeout, 30*time.Second),
			PageSize:     raw.Provider.PageSize,
		},
		Breaker: BreakerConfig{
			FailureThreshold: raw.Breaker.FailureThreshold,
			ResetTimeout:     d.parse("breaker.reset_timeout", raw.Breaker.ResetTimeout, 30*time.Second),
		},
		Retry: RetryConfig{
			InitialDelay: d.parse("retry.initial_delay", raw.Retry.InitialDelay, time.Second),
			Factor:       raw.Retry.Factor,
			MaxDelay:     d.parse("retry.max_delay", raw.Retry.MaxDelay, 10*time.Second),
			MaxRetries:   3,
		},
		TokenCache: raw.TokenCache,
		Store:      raw.Store,
		Sync: SyncConfig{
			Schedule:       withDefault(raw.Sync.Schedule, defaultSchedule),
			Lookback:       d.parse("sync.lookback", raw.Sync.Lookback, 24*time.Hour),
			PagePause:      d.parse("sync.page_pause", raw.Sync.PagePause, time.Second),
			IncludeDetails: true,
		},
		Server:       raw.Server,
		Notification: raw.Notification,
		Metrics:      raw.Metrics,
	}
	if d.err != nil {
		return nil, d.err
	}

	if cfg.Provider.PageSize == 0 {
		cfg.Provider.PageSize = 100
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Retry.Factor == 0 {
		cfg.Retry.Factor = 2
	}
	if raw.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *raw.Retry.MaxRetries
	}
	if raw.Sync.IncludeDetails != nil {
		cfg.Sync.IncludeDetails = *raw.Sync.IncludeDetails
	}
	cfg.TokenCache.Type = withDefault(cfg.TokenCache.Type, "memory")
	cfg.Store.Driver = withDefault(cfg.Store.Driver, "sqlite")
	if cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = withDefault(cfg.Store.DSN, defaultSQLitePath)
	}
	cfg.Server.Addr = withDefault(cfg.Server.Addr, defaultAddr)
	cfg.Notification.Type = withDefault(cfg.Notification.Type, "log")
	cfg.Metrics.PushJob = withDefault(cfg.Metrics.PushJob, defaultPushJob)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durations parses optional duration fields, keeping the first error.
type durations struct {
	err error
}

func (d *durations) parse(field, value string, def time.Duration) time.Duration {
	if value == "" || d.err != nil {
		return def
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", field, value, err)
		return def
	}
	return v
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if u, err := url.Parse(cfg.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider.base_url must be an absolute URL, got %q", cfg.Provider.BaseURL)
	}
	if cfg.Provider.ClientID == "" || cfg.Provider.Username == "" {
		return fmt.Errorf("provider.client_id and provider.username are required")
	}
	if cfg.Provider.PageSize < 1 || cfg.Provider.PageSize > 1000 {
		return fmt.Errorf("provider.page_size must be between 1 and 1000, got %d", cfg.Provider.PageSize)
	}
	if cfg.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive, got %v", cfg.Provider.Timeout)
	}

	if cfg.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failure_threshold must be positive, got %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("breaker.reset_timeout must be positive, got %v", cfg.Breaker.ResetTimeout)
	}

	if cfg.Retry.InitialDelay <= 0 || cfg.Retry.MaxDelay < cfg.Retry.InitialDelay {
		return fmt.Errorf("retry delays must satisfy 0 < initial_delay <= max_delay, got %v and %v", cfg.Retry.InitialDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Retry.Factor < 1 {
		return fmt.Errorf("retry.factor must be at least 1, got %v", cfg.Retry.Factor)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}

	switch cfg.TokenCache.Type {
	case "memory":
	case "redis":
		if cfg.TokenCache.RedisURL == "" {
			return fmt.Errorf("token_cache.redis_url is required when type is \"redis\"")
		}
	default:
		return fmt.Errorf("token_cache.type must be \"memory\" or \"redis\", got %q", cfg.TokenCache.Type)
	}

	switch cfg.Store.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver)
	}

	if cfg.Sync.Lookback <= 0 {
		return fmt.Errorf("sync.lookback must be positive, got %v", cfg.Sync.Lookback)
	}
	if cfg.Sync.PagePause < 0 {
		return fmt.Errorf("sync.page_pause must not be negative, got %v", cfg.Sync.PagePause)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
