// Package store persists canonical jobs and facilities keyed by their
// provider external id.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amishk599/staffsync/internal/model"
)

// Counts summarizes store contents.
type Counts struct {
	Jobs        int
	ActiveJobs  int
	DeletedJobs int
	Facilities  int
}

// Store is a model.JobStore that can also report its size and be closed.
type Store interface {
	model.JobStore
	Counts(ctx context.Context) (Counts, error)
	Close() error
}

// The document column holds the canonical record minus the fields the store
// owns: counters, created/updated timestamps, and the status/deleted pair
// that MarkJobDeleted writes directly.
func jobDoc(job model.Job) ([]byte, error) {
	job.Counters = model.Counters{}
	job.CreatedAt = time.Time{}
	job.UpdatedAt = time.Time{}
	b, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encoding job: %w", err)
	}
	return b, nil
}

type jobColumns struct {
	doc          []byte
	status       string
	deleted      bool
	views        int
	applications int
	createdAt    time.Time
	updatedAt    time.Time
}

func (c jobColumns) job() (*model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(c.doc, &job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	job.Status = model.JobStatus(c.status)
	job.Deleted = c.deleted
	job.Counters = model.Counters{Views: c.views, Applications: c.applications}
	job.CreatedAt = c.createdAt
	job.UpdatedAt = c.updatedAt
	return &job, nil
}

func facilityDoc(f model.Facility) ([]byte, error) {
	f.CreatedAt = time.Time{}
	f.UpdatedAt = time.Time{}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding facility: %w", err)
	}
	return b, nil
}

func decodeFacility(doc []byte, createdAt, updatedAt time.Time) (*model.Facility, error) {
	var f model.Facility
	if err := json.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("decoding facility: %w", err)
	}
	f.CreatedAt = createdAt
	f.UpdatedAt = updatedAt
	return &f, nil
}

func persistErr(op, externalID string, err error) error {
	return &model.PersistenceError{Op: op, ExternalID: externalID, Err: err}
}
