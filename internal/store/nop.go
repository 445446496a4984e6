package store

import (
	"context"
	"log/slog"

	"github.com/amishk599/staffsync/internal/model"
)

// NopStore is used in dry-run mode. Writes are logged at debug level and
// dropped; reads find nothing.
type NopStore struct {
	logger *slog.Logger
}

func NewNopStore(logger *slog.Logger) *NopStore { return &NopStore{logger: logger} }

func (s *NopStore) UpsertJob(_ context.Context, job model.Job) error {
	s.logger.Debug("dry run: skipping job upsert", "external_id", job.ExternalID, "title", job.Title)
	return nil
}

func (s *NopStore) UpsertFacility(_ context.Context, f model.Facility) error {
	s.logger.Debug("dry run: skipping facility upsert", "external_id", f.ExternalID, "name", f.Name)
	return nil
}

func (s *NopStore) MarkJobDeleted(_ context.Context, externalID string) error {
	s.logger.Debug("dry run: skipping job delete", "external_id", externalID)
	return nil
}

func (s *NopStore) GetJob(context.Context, string) (*model.Job, error) { return nil, model.ErrNotFound }
func (s *NopStore) GetFacility(context.Context, string) (*model.Facility, error) {
	return nil, model.ErrNotFound
}
func (s *NopStore) Counts(context.Context) (Counts, error) { return Counts{}, nil }
func (s *NopStore) Close() error                          { return nil }
