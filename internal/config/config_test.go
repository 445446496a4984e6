package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `
provider:
  base_url: https://api.provider.test/
  client_id: staffsync
  client_secret: ${STAFFSYNC_TEST_CLIENT_SECRET}
  username: sync-bot
  password: hunter2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MinimalConfigTakesDefaults(t *testing.T) {
	t.Setenv("STAFFSYNC_TEST_CLIENT_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.BaseURL != "https://api.provider.test" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Provider.BaseURL)
	}
	if cfg.Provider.ClientSecret != "from-env" {
		t.Errorf("ClientSecret = %q, want env expansion", cfg.Provider.ClientSecret)
	}
	if cfg.Provider.PageSize != 100 || cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("Provider = %+v", cfg.Provider)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.ResetTimeout != 30*time.Second {
		t.Errorf("Breaker = %+v", cfg.Breaker)
	}
	want := RetryConfig{InitialDelay: time.Second, Factor: 2, MaxDelay: 10 * time.Second, MaxRetries: 3}
	if cfg.Retry != want {
		t.Errorf("Retry = %+v, want %+v", cfg.Retry, want)
	}
	if cfg.TokenCache.Type != "memory" || cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "staffsync.db" {
		t.Errorf("TokenCache = %+v, Store = %+v", cfg.TokenCache, cfg.Store)
	}
	if cfg.Sync.Schedule != "@every 15m" || cfg.Sync.Lookback != 24*time.Hour || !cfg.Sync.IncludeDetails {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Server.Addr != ":8080" || cfg.Notification.Type != "log" || cfg.Brand != "StaffSync" {
		t.Errorf("Server = %+v, Notification = %+v, Brand = %q", cfg.Server, cfg.Notification, cfg.Brand)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	content := minimalConfig + `
brand: NurseNest
breaker:
  failure_threshold: 3
  reset_timeout: 1m
retry:
  initial_delay: 500ms
  factor: 3
  max_delay: 5s
  max_retries: 0
token_cache:
  type: redis
  redis_url: redis://localhost:6379/0
store:
  driver: postgres
  dsn: postgres://localhost/staffsync
sync:
  schedule: "*/10 * * * *"
  lookback: 2h
  page_pause: 250ms
  include_details: false
server:
  addr: ":9090"
  webhook_secret: shh
notification:
  type: slack
  webhook_url: https://hooks.slack.com/services/T000/B000/XXX
metrics:
  push_url: http://pushgateway:9091
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Brand != "NurseNest" {
		t.Errorf("Brand = %q", cfg.Brand)
	}
	if cfg.Breaker.FailureThreshold != 3 || cfg.Breaker.ResetTimeout != time.Minute {
		t.Errorf("Breaker = %+v", cfg.Breaker)
	}
	if cfg.Retry.MaxRetries != 0 || cfg.Retry.Factor != 3 || cfg.Retry.InitialDelay != 500*time.Millisecond {
		t.Errorf("Retry = %+v (explicit max_retries: 0 must be kept)", cfg.Retry)
	}
	if cfg.TokenCache.Type != "redis" || cfg.Store.Driver != "postgres" {
		t.Errorf("TokenCache = %+v, Store = %+v", cfg.TokenCache, cfg.Store)
	}
	if cfg.Sync.IncludeDetails || cfg.Sync.PagePause != 250*time.Millisecond || cfg.Sync.Schedule != "*/10 * * * *" {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Server.WebhookSecret != "shh" || cfg.Metrics.PushJob != "staffsync" {
		t.Errorf("Server = %+v, Metrics = %+v", cfg.Server, cfg.Metrics)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "provider: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		base    string
		wantErr string
	}{
		{"missing base url", "", "provider:\n  client_id: a\n  username: b\n", "provider.base_url is required"},
		{"relative base url", "", "provider:\n  base_url: /api\n  client_id: a\n  username: b\n", "absolute URL"},
		{"bad duration", "breaker:\n  reset_timeout: soon\n", minimalConfig, "breaker.reset_timeout"},
		{"retry delays inverted", "retry:\n  initial_delay: 20s\n  max_delay: 10s\n", minimalConfig, "retry delays"},
		{"redis without url", "token_cache:\n  type: redis\n", minimalConfig, "token_cache.redis_url"},
		{"unknown cache", "token_cache:\n  type: memcached\n", minimalConfig, "token_cache.type"},
		{"postgres without dsn", "store:\n  driver: postgres\n", minimalConfig, "store.dsn"},
		{"unknown driver", "store:\n  driver: mongo\n", minimalConfig, "store.driver"},
		{"slack without url", "notification:\n  type: slack\n", minimalConfig, "notification.webhook_url is required"},
		{"slack bad url", "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", minimalConfig, "hooks.slack.com"},
		{"page size too big", "", minimalConfig + "  page_size: 5000\n", "provider.page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.base+tt.extra))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
