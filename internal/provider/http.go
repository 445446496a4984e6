package provider

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/staffsync/internal/model"
)

// maxErrorBody bounds the response text kept on an HTTPError.
const maxErrorBody = 512

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds ("120") and HTTP-date formats. Returns zero if absent,
// unparseable or already in the past.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// classifyStatus maps a non-2xx response onto the error taxonomy: 429 and
// 5xx are transport errors eligible for retry, any other 4xx is a client
// error. A 401 that reaches this point has already been retried once by the
// auth transport, so it is a client error too.
func classifyStatus(op string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	httpErr := &model.HTTPError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		Body:       truncate(strings.TrimSpace(string(body)), maxErrorBody),
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &model.TransportError{Op: op, Err: httpErr}
	}
	return &model.ClientError{Op: op, Err: httpErr}
}

// classifyDoError maps an http.Client.Do failure. Credential failures from
// the auth transport and caller cancellation keep their identity; anything
// else is a network-level transport error.
func classifyDoError(ctx context.Context, op string, err error) error {
	var authErr *model.AuthenticationError
	if errors.As(err, &authErr) {
		return authErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &model.TransportError{Op: op, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
