// Package webhook applies provider push notifications, one record at a time.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/amishk599/staffsync/internal/metrics"
	"github.com/amishk599/staffsync/internal/model"
	"github.com/amishk599/staffsync/internal/provider"
	"github.com/amishk599/staffsync/internal/transform"
)

// Recognized event types.
const (
	EventJobCreated      = "job.created"
	EventJobUpdated      = "job.updated"
	EventJobDeleted      = "job.deleted"
	EventFacilityUpdated = "facility.updated"
)

// Outcomes recorded per event.
const (
	OutcomeSuccess = "success"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

// Event is a single provider notification.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// RecordSyncer transforms and persists single records.
// *syncer.Orchestrator satisfies it.
type RecordSyncer interface {
	SyncJobRecord(ctx context.Context, rec provider.Record) error
	SyncFacilityRecord(ctx context.Context, rec provider.Record) error
}

// JobFetcher loads a full job record. *provider.Guarded satisfies it.
type JobFetcher interface {
	GetJob(ctx context.Context, externalID string) (provider.Record, error)
}

// JobDeleter soft-deletes jobs. Every model.JobStore satisfies it.
type JobDeleter interface {
	MarkJobDeleted(ctx context.Context, externalID string) error
}

var errMissingID = errors.New("event data has no id")

// Ingestor dispatches events. Unlike batch sync it never swallows a
// failure: the provider redelivers events that were not acknowledged.
type Ingestor struct {
	syncer   RecordSyncer
	fetcher  JobFetcher
	deleter  JobDeleter
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewIngestor creates an Ingestor. fetcher may be nil, in which case job
// events that carry only an id fail transformation.
func NewIngestor(syncer RecordSyncer, fetcher JobFetcher, deleter JobDeleter, recorder metrics.Recorder, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		syncer:   syncer,
		fetcher:  fetcher,
		deleter:  deleter,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle applies one event. Unknown types are logged and ignored.
func (i *Ingestor) Handle(ctx context.Context, ev Event) error {
	rec := provider.NewRecord(ev.Data)
	externalID := transform.ExternalID(rec)
	if ev.Type == EventFacilityUpdated {
		externalID = transform.FacilityExternalID(rec)
	}
	logger := i.logger.With("type", ev.Type, "external_id", externalID)

	var err error
	switch ev.Type {
	case EventJobCreated, EventJobUpdated:
		err = i.upsertJob(ctx, rec, externalID)
	case EventJobDeleted:
		err = i.deleteJob(ctx, externalID, logger)
	case EventFacilityUpdated:
		err = i.syncer.SyncFacilityRecord(ctx, rec)
	default:
		logger.Info("ignoring unknown webhook event")
		i.recorder.RecordWebhook(ev.Type, OutcomeIgnored)
		return nil
	}

	if err != nil {
		logger.Error("webhook event failed", "error_kind", model.ErrorKind(err), "error", err)
		i.recorder.RecordWebhook(ev.Type, OutcomeError)
		return fmt.Errorf("handling %s: %w", ev.Type, err)
	}
	logger.Info("webhook event applied")
	i.recorder.RecordWebhook(ev.Type, OutcomeSuccess)
	return nil
}

// Some deliveries carry only the id; the full record is fetched then.
func (i *Ingestor) upsertJob(ctx context.Context, rec provider.Record, externalID string) error {
	if rec.String("title", "job_title", "position") == "" && externalID != "" && i.fetcher != nil {
		full, err := i.fetcher.GetJob(ctx, externalID)
		if err != nil {
			return err
		}
		rec = full
	}
	return i.syncer.SyncJobRecord(ctx, rec)
}

// Deleting a job that was never stored is a no-op.
func (i *Ingestor) deleteJob(ctx context.Context, externalID string, logger *slog.Logger) error {
	if externalID == "" {
		return &model.TransformationError{Entity: "job", Err: errMissingID}
	}
	err := i.deleter.MarkJobDeleted(ctx, externalID)
	if errors.Is(err, model.ErrNotFound) {
		logger.Info("delete for unknown job ignored")
		return nil
	}
	return err
}

// DecodeEvents reads either a single event object or an array of events.
func DecodeEvents(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("decoding events: %w", err)
		}
		return events, nil
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	return []Event{ev}, nil
}
