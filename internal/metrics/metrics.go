// Package metrics records sync, provider and webhook observations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "staffsync"

	// Labels
	kindLabel    = "kind"
	outcomeLabel = "outcome"
	opLabel      = "op"
	nameLabel    = "name"
	fromLabel    = "from"
	toLabel      = "to"
	typeLabel    = "type"
	grantLabel   = "grant"
)

// Recorder is the narrow sink every component writes observations to.
type Recorder interface {
	RecordSyncRun(kind string, succeeded, failed int, duration time.Duration, err error)
	RecordProviderRetry(op, errKind string)
	RecordProviderFailure(op, errKind string)
	RecordCircuitTransition(name, from, to string)
	RecordWebhook(eventType, outcome string)
	RecordTokenGrant(grant string, err error)
	Flush() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSyncRun(string, int, int, time.Duration, error) {}
func (Nop) RecordProviderRetry(string, string)                   {}
func (Nop) RecordProviderFailure(string, string)                 {}
func (Nop) RecordCircuitTransition(string, string, string)       {}
func (Nop) RecordWebhook(string, string)                         {}
func (Nop) RecordTokenGrant(string, error)                       {}
func (Nop) Flush() error                                         { return nil }

// Prometheus records to a prometheus registry. Flush pushes the registry to
// a Pushgateway when one is configured, for short-lived batch runs.
type Prometheus struct {
	registry *prometheus.Registry
	pushURL  string
	pushJob  string

	syncRuns           *prometheus.CounterVec
	syncRecords        *prometheus.CounterVec
	syncDuration       *prometheus.HistogramVec
	providerRetries    *prometheus.CounterVec
	providerFailures   *prometheus.CounterVec
	circuitState       *prometheus.GaugeVec
	circuitTransitions *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
	tokenGrants        *prometheus.CounterVec
}

// NewPrometheus registers all collectors on reg.
func NewPrometheus(reg *prometheus.Registry, pushURL, pushJob string) *Prometheus {
	p := &Prometheus{
		registry: reg,
		pushURL:  pushURL,
		pushJob:  pushJob,
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "number of sync runs by kind and outcome",
		}, []string{kindLabel, outcomeLabel}),
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_total",
			Help:      "records processed by sync runs, by kind and outcome",
		}, []string{kindLabel, outcomeLabel}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "duration of sync runs in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{kindLabel}),
		providerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "retries of provider calls by operation and error kind",
		}, []string{opLabel, kindLabel}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "provider calls that failed after retries, by operation and error kind",
		}, []string{opLabel, kindLabel}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_open",
			Help:      "1 while the named circuit is open or half-open, 0 when closed",
		}, []string{nameLabel}),
		circuitTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_transitions_total",
			Help:      "circuit breaker state transitions",
		}, []string{nameLabel, fromLabel, toLabel}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "provider webhook events by type and outcome",
		}, []string{typeLabel, outcomeLabel}),
		tokenGrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_grants_total",
			Help:      "provider token grant attempts by grant type and outcome",
		}, []string{grantLabel, outcomeLabel}),
	}

	reg.MustRegister(
		p.syncRuns,
		p.syncRecords,
		p.syncDuration,
		p.providerRetries,
		p.providerFailures,
		p.circuitState,
		p.circuitTransitions,
		p.webhookEvents,
		p.tokenGrants,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) RecordSyncRun(kind string, succeeded, failed int, duration time.Duration, err error) {
	if p == nil {
		return
	}
	p.syncRuns.With(prometheus.Labels{kindLabel: kind, outcomeLabel: outcome(err)}).Inc()
	p.syncRecords.With(prometheus.Labels{kindLabel: kind, outcomeLabel: "succeeded"}).Add(float64(succeeded))
	p.syncRecords.With(prometheus.Labels{kindLabel: kind, outcomeLabel: "failed"}).Add(float64(failed))
	p.syncDuration.With(prometheus.Labels{kindLabel: kind}).Observe(duration.Seconds())
}

func (p *Prometheus) RecordProviderRetry(op, errKind string) {
	if p == nil {
		return
	}
	p.providerRetries.With(prometheus.Labels{opLabel: op, kindLabel: errKind}).Inc()
}

func (p *Prometheus) RecordProviderFailure(op, errKind string) {
	if p == nil {
		return
	}
	p.providerFailures.With(prometheus.Labels{opLabel: op, kindLabel: errKind}).Inc()
}

func (p *Prometheus) RecordCircuitTransition(name, from, to string) {
	if p == nil {
		return
	}
	p.circuitTransitions.With(prometheus.Labels{nameLabel: name, fromLabel: from, toLabel: to}).Inc()
	open := 1.0
	if to == "CLOSED" {
		open = 0
	}
	p.circuitState.With(prometheus.Labels{nameLabel: name}).Set(open)
}

func (p *Prometheus) RecordWebhook(eventType, result string) {
	if p == nil {
		return
	}
	p.webhookEvents.With(prometheus.Labels{typeLabel: eventType, outcomeLabel: result}).Inc()
}

func (p *Prometheus) RecordTokenGrant(grant string, err error) {
	if p == nil {
		return
	}
	p.tokenGrants.With(prometheus.Labels{grantLabel: grant, outcomeLabel: outcome(err)}).Inc()
}

// Flush pushes to the Pushgateway; a no-op when no URL is configured.
func (p *Prometheus) Flush() error {
	if p == nil || p.pushURL == "" {
		return nil
	}
	return push.New(p.pushURL, p.pushJob).Gatherer(p.registry).Push()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
