package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/staffsync/internal/breaker"
	"github.com/amishk599/staffsync/internal/metrics"
	"github.com/amishk599/staffsync/internal/model"
	"github.com/amishk599/staffsync/internal/retry"
)

// TripsCircuit reports whether err should count toward opening the provider
// circuit. Client errors (a 404 for an unknown id, a 400 for a bad filter)
// and caller cancellation say nothing about the provider's health.
func TripsCircuit(err error) bool {
	switch model.ErrorKind(err) {
	case model.KindClient, model.KindCanceled, model.KindCircuitOpen:
		return false
	default:
		return true
	}
}

// Guard composes a circuit breaker around a retry policy. The two stay
// independent; only Call knows about both.
type Guard struct {
	breaker  *breaker.Breaker
	policy   retry.Policy
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(b *breaker.Breaker, policy retry.Policy, recorder metrics.Recorder, logger *slog.Logger) *Guard {
	return &Guard{
		breaker:  b,
		policy:   policy,
		recorder: recorder,
		logger:   logger,
	}
}

// Call runs fn inside the breaker, retrying transient failures inside a
// single breaker execution. Circuit-open rejections and exhausted retries
// both surface as one error; the log line carries the kind that tells them
// apart.
func Call[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		v, err := retry.Do(ctx, g.policy, fn, func(err error, attempt int, delay time.Duration) {
			kind := model.ErrorKind(err)
			g.logger.Warn("retrying provider call",
				"op", op,
				"attempt", attempt,
				"max_retries", g.policy.MaxRetries,
				"delay", delay,
				"kind", kind,
				"error", err,
			)
			g.recorder.RecordProviderRetry(op, kind)
		})
		out = v
		return err
	})
	if err != nil {
		kind := model.ErrorKind(err)
		g.logger.Error("provider call failed", "op", op, "kind", kind, "circuit", g.breaker.State().String(), "error", err)
		g.recorder.RecordProviderFailure(op, kind)
		if errors.Is(err, model.ErrCircuitOpen) {
			return out, fmt.Errorf("%s: %w", op, err)
		}
		return out, err
	}
	return out, nil
}

// Guarded is a Client whose every call runs through a Guard.
type Guarded struct {
	client *Client
	guard  *Guard
}

// NewGuarded wraps client with guard.
func NewGuarded(client *Client, guard *Guard) *Guarded {
	return &Guarded{client: client, guard: guard}
}

func (g *Guarded) ListJobs(ctx context.Context, opts ListOptions) (Page, error) {
	return Call(ctx, g.guard, "list jobs", func(ctx context.Context) (Page, error) {
		return g.client.ListJobs(ctx, opts)
	})
}

func (g *Guarded) GetJob(ctx context.Context, externalID string) (Record, error) {
	return Call(ctx, g.guard, "get job", func(ctx context.Context) (Record, error) {
		return g.client.GetJob(ctx, externalID)
	})
}

func (g *Guarded) ListFacilities(ctx context.Context, opts ListOptions) (Page, error) {
	return Call(ctx, g.guard, "list facilities", func(ctx context.Context) (Page, error) {
		return g.client.ListFacilities(ctx, opts)
	})
}

func (g *Guarded) GetFacility(ctx context.Context, externalID string) (Record, error) {
	return Call(ctx, g.guard, "get facility", func(ctx context.Context) (Record, error) {
		return g.client.GetFacility(ctx, externalID)
	})
}

func (g *Guarded) ListSpecialties(ctx context.Context) ([]string, error) {
	return Call(ctx, g.guard, "list specialties", g.client.ListSpecialties)
}

func (g *Guarded) Health(ctx context.Context) error {
	_, err := Call(ctx, g.guard, "health", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.client.Health(ctx)
	})
	return err
}
