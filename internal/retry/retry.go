package retry

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/cenkalti/backoff/v5"
)

// Policy computes an exponential delay sequence:
//
//	delay(attempt) = min(MaxDelay, InitialDelay * Factor^(attempt-1))
//
// No jitter is applied.
type Policy struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	MaxRetries   int // retries after the first attempt
}

// DefaultPolicy returns 1s, 2s, 4s ... capped at 10s, three retries.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: time.Second,
		Factor:       2,
		MaxDelay:     10 * time.Second,
		MaxRetries:   3,
	}
}

// Delay returns the wait before retry number attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.Factor, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Exhausted reports whether retry number attempt is beyond MaxRetries.
func (p Policy) Exhausted(attempt int) bool {
	return attempt > p.MaxRetries
}

// Hook runs before each retry. It is for observability only.
type Hook func(err error, attempt int, delay time.Duration)

// policyBackOff adapts a Policy to backoff.BackOff for a single Do call.
type policyBackOff struct {
	policy  Policy
	attempt int
	lastErr *error
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.policy.Exhausted(b.attempt) {
		return backoff.Stop
	}
	// A Retry-After from a 429/503 replaces the computed delay, still capped.
	var httpErr *model.HTTPError
	if b.lastErr != nil && errors.As(*b.lastErr, &httpErr) && httpErr.RetryAfter > 0 {
		if b.policy.MaxDelay > 0 && httpErr.RetryAfter > b.policy.MaxDelay {
			return b.policy.MaxDelay
		}
		return httpErr.RetryAfter
	}
	return b.policy.Delay(b.attempt)
}

func (b *policyBackOff) Reset() { b.attempt = 0 }

// Do runs op, retrying transient failures according to p. When retries are
// exhausted, or op fails with a non-retryable error, the last error is
// returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), hook Hook) (T, error) {
	var lastErr error
	b := &policyBackOff{policy: p, lastErr: &lastErr}
	attempt := 0

	res, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		lastErr = err
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxRetries+1)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			attempt++
			if hook != nil {
				hook(err, attempt, delay)
			}
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return res, permanent.Err
	}
	return res, err
}

// IsRetryable returns true if the error represents a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation: never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, model.ErrCircuitOpen) {
		return false
	}

	var (
		authErr      *model.AuthenticationError
		clientErr    *model.ClientError
		transformErr *model.TransformationError
		transportErr *model.TransportError
	)
	switch {
	case errors.As(err, &authErr), errors.As(err, &clientErr), errors.As(err, &transformErr):
		return false
	case errors.As(err, &transportErr):
		return true
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS): retryable.
	return true
}
