package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

func post(t *testing.T, srv *httptest.Server, body string, headers map[string]string) (*http.Response, map[string]string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/provider", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var reply map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&reply)
	return resp, reply
}

func TestRouter_AcceptsEvent(t *testing.T) {
	var got Event
	srv := httptest.NewServer(NewRouter(HandlerFunc(func(_ context.Context, ev Event) error {
		got = ev
		return nil
	}), WithLogger(discardLogger())))
	defer srv.Close()

	resp, reply := post(t, srv, `{"type":"job.created","data":{"id":"J1"}}`, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if reply["status"] != "accepted" || reply["type"] != "job.created" {
		t.Errorf("reply = %v", reply)
	}
	if got.Type != "job.created" || string(got.Data) != `{"id":"J1"}` {
		t.Errorf("handled event = %+v", got)
	}
}

func TestRouter_RejectsBadRequests(t *testing.T) {
	called := false
	srv := httptest.NewServer(NewRouter(HandlerFunc(func(context.Context, Event) error {
		called = true
		return nil
	}), WithLogger(discardLogger())))
	defer srv.Close()

	for _, body := range []string{`{"type":`, `{"data":{}}`} {
		resp, reply := post(t, srv, body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
		if reply["error"] == "" {
			t.Errorf("body %q: expected error message", body)
		}
	}
	if called {
		t.Error("handler must not run for rejected requests")
	}
}

func TestRouter_HandlerFailureIs500(t *testing.T) {
	srv := httptest.NewServer(NewRouter(HandlerFunc(func(context.Context, Event) error {
		return errors.New("store down")
	}), WithLogger(discardLogger())))
	defer srv.Close()

	resp, reply := post(t, srv, `{"type":"job.updated","data":{"id":"J1"}}`, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if !strings.Contains(reply["error"], "store down") {
		t.Errorf("reply = %v", reply)
	}
}

func TestRouter_Signature(t *testing.T) {
	secret := "s3cret"
	srv := httptest.NewServer(NewRouter(HandlerFunc(func(context.Context, Event) error { return nil }),
		WithSecret(secret), WithLogger(discardLogger())))
	defer srv.Close()

	body := `{"type":"job.deleted","data":{"id":"J1"}}`
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", Sign([]byte(secret), []byte(body)), http.StatusAccepted},
		{"missing", "", http.StatusBadRequest},
		{"wrong secret", Sign([]byte("other"), []byte(body)), http.StatusBadRequest},
		{"not hex", "sha256=zz", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers[SignatureHeader] = tt.header
			}
			resp, _ := post(t, srv, body, headers)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	healthy := true
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "staffsync_up 1\n")
	})
	srv := httptest.NewServer(NewRouter(HandlerFunc(func(context.Context, Event) error { return nil }),
		WithLogger(discardLogger()),
		WithMetricsHandler(metrics),
		WithHealthCheck(func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("provider unreachable")
		}),
	))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", resp.StatusCode)
	}

	healthy = false
	resp, err = srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", resp.StatusCode)
	}

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "staffsync_up 1") {
		t.Errorf("metrics body = %q", b)
	}
}
