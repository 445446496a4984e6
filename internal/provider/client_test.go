package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/staffsync/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client())
}

func TestListJobs_BuildsQueryAndParsesEnvelope(t *testing.T) {
	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/jobs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "50" || q.Get("include_details") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("updated_since") != "2026-03-01T12:00:00Z" {
			t.Errorf("updated_since = %q", q.Get("updated_since"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"1","title":"ICU RN"},{"id":2}],"meta":{"total_pages":7}}`))
	})

	page, err := client.ListJobs(context.Background(), ListOptions{Page: 2, Limit: 50, IncludeDetails: true, UpdatedSince: since})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Number != 2 || page.TotalPages != 7 {
		t.Errorf("page = %d/%d, want 2/7", page.Number, page.TotalPages)
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if got := page.Records[1].String("id"); got != "2" {
		t.Errorf("numeric id = %q, want \"2\"", got)
	}
	if page.Last() {
		t.Error("page 2 of 7 should not be last")
	}
}

func TestPage_Last(t *testing.T) {
	rec := []Record{NewRecord([]byte(`{"id":"1"}`))}
	tests := []struct {
		name string
		page Page
		want bool
	}{
		{"empty", Page{Number: 1, TotalPages: 3}, true},
		{"within total", Page{Number: 3, TotalPages: 3, Records: rec}, false},
		{"beyond total", Page{Number: 4, TotalPages: 3, Records: rec}, true},
		{"total unknown", Page{Number: 9, Records: rec}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Last(); got != tt.want {
				t.Errorf("Last() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetJob_AcceptsEnvelopeAndBareObject(t *testing.T) {
	for name, payload := range map[string]string{
		"envelope": `{"data":{"id":"42","title":"ER RN"}}`,
		"bare":     `{"id":"42","title":"ER RN"}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/jobs/42" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.Write([]byte(payload))
			})
			rec, err := client.GetJob(context.Background(), "42")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.String("title") != "ER RN" {
				t.Errorf("title = %q", rec.String("title"))
			}
		})
	}
}

func TestListSpecialties(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":["ICU",{"name":"Emergency Room"}," "]}`))
	})
	got, err := client.ListSpecialties(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "ICU" || got[1] != "Emergency Room" {
		t.Errorf("specialties = %q", got)
	}
}

func TestClient_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		body       string
		wantKind   string
		wantWait   time.Duration
	}{
		{"server error", http.StatusBadGateway, "", "upstream down", model.KindTransport, 0},
		{"rate limited", http.StatusTooManyRequests, "7", "", model.KindTransport, 7 * time.Second},
		{"not found", http.StatusNotFound, "", `{"error":"no such job"}`, model.KindClient, 0},
		{"unauthorized after refresh", http.StatusUnauthorized, "", "", model.KindClient, 0},
		{"malformed body", http.StatusOK, "", `{"data":`, model.KindTransport, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.ListJobs(context.Background(), ListOptions{Page: 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := model.ErrorKind(err); got != tt.wantKind {
				t.Errorf("kind = %s, want %s (%v)", got, tt.wantKind, err)
			}
			var httpErr *model.HTTPError
			if tt.status >= 400 {
				if !errors.As(err, &httpErr) {
					t.Fatalf("expected HTTPError in chain, got %v", err)
				}
				if httpErr.StatusCode != tt.status || httpErr.RetryAfter != tt.wantWait {
					t.Errorf("HTTPError = %+v", httpErr)
				}
			}
		})
	}
}

func TestClient_NetworkErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, http.DefaultClient).Health(context.Background())
	if model.ErrorKind(err) != model.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClient_AuthenticationErrorKeepsIdentity(t *testing.T) {
	client := NewClient("http://provider.invalid", &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, &model.AuthenticationError{Err: errors.New("invalid_grant")}
		}),
	})
	_, err := client.GetFacility(context.Background(), "F1")
	if model.ErrorKind(err) != model.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"120", 2 * time.Minute},
		{"-3", 0},
		{"soon", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
