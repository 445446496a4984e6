// Package auth obtains and caches bearer credentials for the staffing
// provider API and attaches them to outgoing requests.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// expiryBuffer drops a cached access token this long before the provider
	// says it expires.
	expiryBuffer = 60 * time.Second
	// refreshTokenTTL is how long a refresh token is kept.
	refreshTokenTTL = 30 * 24 * time.Hour
	// defaultTokenLifetime is assumed when the provider omits expires_in.
	defaultTokenLifetime = time.Hour
)

// Config holds the provider's OAuth client and user credentials.
type Config struct {
	BaseURL      string // token endpoint is BaseURL + "/oauth/token"
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// GrantObserver is told about every token grant attempt.
type GrantObserver func(grant string, err error)

// Manager hands out access tokens, refreshing them through the provider's
// token endpoint when the cached one is missing or expired.
//
// Concurrent refreshes are coalesced: callers racing on an expired token
// share a single grant request.
type Manager struct {
	oauth      *oauth2.Config
	username   string
	password   string
	cache      TokenCache
	httpClient *http.Client
	group      singleflight.Group
	now        func() time.Time
	onGrant    GrantObserver
	logger     *slog.Logger
}

// NewManager creates a Manager. httpClient is used for token requests only and
// must not itself carry the bearer Transport.
func NewManager(cfg Config, cache TokenCache, httpClient *http.Client, logger *slog.Logger) *Manager {
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimSuffix(cfg.BaseURL, "/") + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		username:   cfg.Username,
		password:   cfg.Password,
		cache:      cache,
		httpClient: httpClient,
		now:        time.Now,
		logger:     logger,
	}
}

// OnGrant registers an observer for grant attempts.
func (m *Manager) OnGrant(o GrantObserver) {
	m.onGrant = o
}

// AccessToken returns a valid access token. Without forceRefresh a cached,
// unexpired token is returned as is. Otherwise a refresh_token grant is tried
// first, falling back to the password grant. Failures are returned as
// *model.AuthenticationError and are not retried here.
func (m *Manager) AccessToken(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		token, ok, err := m.cache.Get(ctx, accessTokenKey)
		if err != nil {
			m.logger.Warn("token cache read failed, requesting a new token", "error", err)
		}
		if ok {
			return token, nil
		}
	}

	// The grant is shared by every waiting caller, so one caller's
	// cancellation must not fail the others.
	shared := context.WithoutCancel(ctx)
	// A forced caller already saw the cached token rejected, so it must not
	// join a plain flight that may hand that token back.
	key := "token"
	if forceRefresh {
		key = "token:force"
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		// Another flight may have filled the cache since our miss.
		if !forceRefresh {
			if token, ok, _ := m.cache.Get(shared, accessTokenKey); ok {
				return token, nil
			}
		}
		return m.acquire(shared)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached access token. The refresh token is kept.
func (m *Manager) Invalidate(ctx context.Context) error {
	if err := m.cache.Delete(ctx, accessTokenKey); err != nil {
		return fmt.Errorf("invalidate access token: %w", err)
	}
	return nil
}

func (m *Manager) acquire(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	refresh, ok, err := m.cache.Get(ctx, refreshTokenKey)
	if err != nil {
		m.logger.Warn("token cache read failed, skipping refresh grant", "error", err)
	}
	if ok {
		tok, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
		m.observe("refresh_token", err)
		if err == nil {
			return m.store(ctx, tok)
		}
		m.logger.Warn("refresh token grant failed, falling back to password grant", "error", err)
		_ = m.cache.Delete(ctx, refreshTokenKey)
	}

	tok, err := m.oauth.PasswordCredentialsToken(ctx, m.username, m.password)
	m.observe("password", err)
	if err != nil {
		return "", &model.AuthenticationError{Err: err}
	}
	return m.store(ctx, tok)
}

func (m *Manager) store(ctx context.Context, tok *oauth2.Token) (string, error) {
	lifetime := defaultTokenLifetime
	if !tok.Expiry.IsZero() {
		lifetime = tok.Expiry.Sub(m.now())
	}
	if ttl := lifetime - expiryBuffer; ttl > 0 {
		if err := m.cache.Set(ctx, accessTokenKey, tok.AccessToken, ttl); err != nil {
			m.logger.Warn("caching access token failed", "error", err)
		}
	}
	if tok.RefreshToken != "" {
		if err := m.cache.Set(ctx, refreshTokenKey, tok.RefreshToken, refreshTokenTTL); err != nil {
			m.logger.Warn("caching refresh token failed", "error", err)
		}
	}
	m.logger.Debug("obtained provider access token", "expires_in", lifetime.Round(time.Second))
	return tok.AccessToken, nil
}

func (m *Manager) observe(grant string, err error) {
	if m.onGrant != nil {
		m.onGrant(grant, err)
	}
}
