package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is
// configured.
const SignatureHeader = "X-Webhook-Signature"

const maxEventBytes = 1 << 20

// EventHandler applies a decoded event. *Ingestor satisfies it.
type EventHandler interface {
	Handle(ctx context.Context, ev Event) error
}

// ServerOption configures the router.
type ServerOption func(*serverConfig)

type serverConfig struct {
	secret      []byte
	health      func(ctx context.Context) error
	metrics     http.Handler
	middlewares []func(http.Handler) http.Handler
	logger      *slog.Logger
}

// WithSecret enables signature verification.
func WithSecret(secret string) ServerOption {
	return func(cfg *serverConfig) {
		if secret != "" {
			cfg.secret = []byte(secret)
		}
	}
}

// WithHealthCheck sets the probe behind GET /healthz.
func WithHealthCheck(check func(ctx context.Context) error) ServerOption {
	return func(cfg *serverConfig) { cfg.health = check }
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) { cfg.metrics = h }
}

// WithMiddlewares adds middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(cfg *serverConfig) { cfg.logger = logger }
}

// NewRouter builds the HTTP surface: the webhook endpoint, a health probe
// and, optionally, metrics.
func NewRouter(handler EventHandler, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, loggingMiddleware(cfg.logger))
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Post("/webhooks/provider", eventHandler(handler, cfg.secret))
	r.Get("/healthz", healthHandler(cfg.health))
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}
	return r
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func eventHandler(handler EventHandler, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "could not read body")
			return
		}
		if secret != nil && !validSignature(secret, body, r.Header.Get(SignatureHeader)) {
			respondError(w, r, http.StatusBadRequest, "invalid signature")
			return
		}

		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if ev.Type == "" {
			respondError(w, r, http.StatusBadRequest, "missing event type")
			return
		}

		if err := handler.Handle(r.Context(), ev); err != nil {
			respondError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		render.Status(r, http.StatusAccepted)
		_ = render.Render(w, r, AckReply{Status: "accepted", Type: ev.Type})
	}
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				render.Status(r, http.StatusServiceUnavailable)
				_ = render.Render(w, r, HealthReply{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		_ = render.Render(w, r, HealthReply{Status: "ok"})
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	_ = render.Render(w, r, ErrorReply{Error: msg})
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret, body []byte, header string) bool {
	got, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// AckReply acknowledges an applied event.
type AckReply struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// HealthReply is the body of GET /healthz.
type HealthReply struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorReply carries the reason a request was rejected or failed.
type ErrorReply struct {
	Error string `json:"error"`
}

// Render implements render.Renderer.
func (AckReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// Render implements render.Renderer.
func (HealthReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// Render implements render.Renderer.
func (ErrorReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }
