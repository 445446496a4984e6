package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// TokenSource is what Transport needs from a Manager.
type TokenSource interface {
	AccessToken(ctx context.Context, forceRefresh bool) (string, error)
	Invalidate(ctx context.Context) error
}

// Transport attaches "Authorization: Bearer <token>" to every request. A 401
// response drops the cached token and replays the request once with a
// freshly forced token; a second 401 is returned to the caller as is.
type Transport struct {
	Base   http.RoundTripper
	Tokens TokenSource
	Logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, tokens TokenSource, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Tokens: tokens, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Body != nil && req.GetBody != nil {
		// send always replays from GetBody; the original is never read.
		defer req.Body.Close()
	}

	token, err := t.Tokens.AccessToken(ctx, false)
	if err != nil {
		return nil, err
	}

	resp, err := t.send(req, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// A consumed body without GetBody cannot be replayed.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	t.Logger.Warn("provider rejected access token, refreshing", "method", req.Method, "path", req.URL.Path)
	if err := t.Tokens.Invalidate(ctx); err != nil {
		t.Logger.Warn("invalidating access token failed", "error", err)
	}
	token, err = t.Tokens.AccessToken(ctx, true)
	if err != nil {
		return nil, err
	}
	return t.send(req, token)
}

func (t *Transport) send(req *http.Request, token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(r)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
