package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/amishk599/staffsync/internal/model"
)

// fakeTokens issues tok-1, tok-2, ... on every forced refresh.
type fakeTokens struct {
	current     string
	issued      int
	invalidated int
	err         error
}

func (f *fakeTokens) AccessToken(_ context.Context, force bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.current == "" || force {
		f.issued++
		f.current = "tok-" + string(rune('0'+f.issued))
	}
	return f.current, nil
}

func (f *fakeTokens) Invalidate(_ context.Context) error {
	f.invalidated++
	f.current = ""
	return nil
}

func TestTransport_AttachesBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, &fakeTokens{}, discardLogger())}
	resp, err := client.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
}

func TestTransport_RetriesOnceOn401WithFreshToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := &fakeTokens{}
	client := &http.Client{Transport: NewTransport(nil, tokens, discardLogger())}
	resp, err := client.Get(srv.URL + "/api/v1/jobs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after refresh", resp.StatusCode)
	}
	if hits.Load() != 2 {
		t.Fatalf("server hits = %d, want 2", hits.Load())
	}
	if tokens.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", tokens.invalidated)
	}
}

func TestTransport_SecondUnauthorizedIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, &fakeTokens{}, discardLogger())}
	resp, err := client.Get(srv.URL + "/api/v1/jobs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if hits.Load() != 2 {
		t.Fatalf("server hits = %d, want exactly 2", hits.Load())
	}
}

func TestTransport_ReplaysBodyOnRetry(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, &fakeTokens{}, discardLogger())}
	resp, err := client.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(`{"a":1}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp.Body.Close()

	if len(bodies) != 2 || bodies[0] != `{"a":1}` || bodies[1] != `{"a":1}` {
		t.Fatalf("bodies = %q, want the payload twice", bodies)
	}
}

func TestTransport_TokenFailureSurfacesAuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer srv.Close()

	tokens := &fakeTokens{err: &model.AuthenticationError{Err: errors.New("invalid_grant")}}
	client := &http.Client{Transport: NewTransport(nil, tokens, discardLogger())}
	_, err := client.Get(srv.URL + "/api/v1/jobs")

	var authErr *model.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError through url.Error, got %v", err)
	}
}
