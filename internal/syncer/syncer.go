// Package syncer pulls jobs and facilities from the provider and writes
// canonical records to the store.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/staffsync/internal/metrics"
	"github.com/amishk599/staffsync/internal/model"
	"github.com/amishk599/staffsync/internal/provider"
	"github.com/amishk599/staffsync/internal/transform"
)

// Run kinds, used in summaries, logs and metric labels.
const (
	KindFull        = "full"
	KindIncremental = "incremental"
	KindFacilities  = "facilities"
	KindMigrate     = "migrate"
)

// DefaultPageSize is used when neither the orchestrator nor the run sets one.
const DefaultPageSize = 100

// Source lists provider records a page at a time. *provider.Guarded
// satisfies it.
type Source interface {
	ListJobs(ctx context.Context, opts provider.ListOptions) (provider.Page, error)
	ListFacilities(ctx context.Context, opts provider.ListOptions) (provider.Page, error)
}

// JobTransformer maps a provider job record to a canonical job.
type JobTransformer interface {
	Transform(rec provider.Record) (model.Job, error)
}

// FacilityTransformer maps a provider facility record to a canonical facility.
type FacilityTransformer interface {
	Transform(rec provider.Record) (model.Facility, error)
}

// Pacer spaces page fetches. *ratelimit.Pacer satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RunOptions bound a paged run.
type RunOptions struct {
	Kind         string    // defaults to KindFull
	StartPage    int       // defaults to 1
	EndPage      int       // zero means until the provider runs out
	PageSize     int       // defaults to the orchestrator's page size
	UpdatedSince time.Time // zero means no filter
	Pacer        Pacer     // nil means no pause between pages
	DryRun       bool      // only recorded in the summary; the caller picks the store
}

// Orchestrator drives sync runs. Pages and records are processed strictly
// in order; a record that fails is logged and counted, never fatal.
type Orchestrator struct {
	source         Source
	jobs           JobTransformer
	facilities     FacilityTransformer
	store          model.JobStore
	recorder       metrics.Recorder
	logger         *slog.Logger
	pageSize       int
	includeDetails bool
	now            func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPageSize sets the default page size.
func WithPageSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithIncludeDetails controls whether listings ask for inline details.
func WithIncludeDetails(include bool) Option {
	return func(o *Orchestrator) { o.includeDetails = include }
}

// WithClock overrides the clock used for run timing.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(
	source Source,
	jobs JobTransformer,
	facilities FacilityTransformer,
	store model.JobStore,
	recorder metrics.Recorder,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		source:         source,
		jobs:           jobs,
		facilities:     facilities,
		store:          store,
		recorder:       recorder,
		logger:         logger,
		pageSize:       DefaultPageSize,
		includeDetails: true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FullSync pages through every job the provider has.
func (o *Orchestrator) FullSync(ctx context.Context) (model.RunSummary, error) {
	return o.Run(ctx, RunOptions{Kind: KindFull})
}

// IncrementalSync processes jobs changed since the given time. Every page of
// the filtered listing is consumed; Total in the summary is the number of
// records processed.
func (o *Orchestrator) IncrementalSync(ctx context.Context, since time.Time) (model.RunSummary, error) {
	return o.Run(ctx, RunOptions{Kind: KindIncremental, UpdatedSince: since})
}

// FullFacilitySync pages through every facility the provider has.
func (o *Orchestrator) FullFacilitySync(ctx context.Context) (model.RunSummary, error) {
	return o.run(ctx, RunOptions{Kind: KindFacilities}, o.source.ListFacilities, o.SyncFacilityRecord, transform.FacilityExternalID)
}

// Run pages through jobs within the bounds of opts. A failed page fetch
// aborts the run; the summary still reports what was done before it.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (model.RunSummary, error) {
	return o.run(ctx, opts, o.source.ListJobs, o.SyncJobRecord, transform.ExternalID)
}

type listFunc func(ctx context.Context, opts provider.ListOptions) (provider.Page, error)

type recordFunc func(ctx context.Context, rec provider.Record) error

type idFunc func(rec provider.Record) string

func (o *Orchestrator) run(ctx context.Context, opts RunOptions, list listFunc, handle recordFunc, idOf idFunc) (model.RunSummary, error) {
	if opts.Kind == "" {
		opts.Kind = KindFull
	}
	if opts.StartPage < 1 {
		opts.StartPage = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = o.pageSize
	}

	summary := model.RunSummary{Kind: opts.Kind, Started: o.now(), DryRun: opts.DryRun}
	logger := o.logger.With("kind", opts.Kind)
	logger.Info("sync run started",
		"start_page", opts.StartPage,
		"end_page", opts.EndPage,
		"page_size", opts.PageSize,
		"dry_run", opts.DryRun,
	)

	err := o.pages(ctx, opts, &summary, logger, list, handle, idOf)
	summary.Duration = o.now().Sub(summary.Started)
	o.recorder.RecordSyncRun(opts.Kind, summary.Succeeded, summary.Failed, summary.Duration, err)

	if err != nil {
		logger.Error("sync run aborted",
			"pages", summary.Pages,
			"total", summary.Total,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"error_kind", model.ErrorKind(err),
			"error", err,
		)
		return summary, err
	}
	logger.Info("sync run finished",
		"pages", summary.Pages,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (o *Orchestrator) pages(ctx context.Context, opts RunOptions, summary *model.RunSummary, logger *slog.Logger, list listFunc, handle recordFunc, idOf idFunc) error {
	for page := opts.StartPage; opts.EndPage == 0 || page <= opts.EndPage; page++ {
		if page > opts.StartPage && opts.Pacer != nil {
			if err := opts.Pacer.Wait(ctx); err != nil {
				return err
			}
		}

		p, err := list(ctx, provider.ListOptions{
			Page:           page,
			Limit:          opts.PageSize,
			IncludeDetails: o.includeDetails,
			UpdatedSince:   opts.UpdatedSince,
		})
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		if p.Last() {
			logger.Debug("no more pages", "page", page, "total_pages", p.TotalPages)
			return nil
		}

		summary.Pages++
		for _, rec := range p.Records {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary.Total++
			if err := handle(ctx, rec); err != nil {
				summary.Failed++
				logger.Warn("record sync failed",
					"page", page,
					"external_id", idOf(rec),
					"error_kind", model.ErrorKind(err),
					"error", err,
				)
				continue
			}
			summary.Succeeded++
		}
		logger.Debug("page processed", "page", page, "records", len(p.Records), "total_pages", p.TotalPages)
	}
	return nil
}

// SyncJobRecord transforms and persists one job. A facility embedded in the
// record is persisted first; its failure is logged and does not fail the job.
func (o *Orchestrator) SyncJobRecord(ctx context.Context, rec provider.Record) error {
	job, err := o.jobs.Transform(rec)
	if err != nil {
		return err
	}
	if f, ok := transform.EmbeddedFacility(rec); ok {
		if err := o.SyncFacilityRecord(ctx, f); err != nil {
			o.logger.Warn("embedded facility not saved",
				"external_id", job.ExternalID,
				"facility_id", transform.FacilityExternalID(f),
				"error_kind", model.ErrorKind(err),
				"error", err,
			)
		}
	}
	return o.store.UpsertJob(ctx, job)
}

// SyncFacilityRecord transforms and persists one facility.
func (o *Orchestrator) SyncFacilityRecord(ctx context.Context, rec provider.Record) error {
	f, err := o.facilities.Transform(rec)
	if err != nil {
		return err
	}
	return o.store.UpsertFacility(ctx, f)
}
