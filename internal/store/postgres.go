package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		external_id          TEXT PRIMARY KEY,
		id                   TEXT NOT NULL UNIQUE,
		facility_external_id TEXT NOT NULL DEFAULT '',
		title                TEXT NOT NULL,
		status               TEXT NOT NULL,
		deleted              BOOLEAN NOT NULL DEFAULT FALSE,
		doc                  JSONB NOT NULL,
		views                INTEGER NOT NULL DEFAULT 0,
		applications         INTEGER NOT NULL DEFAULT 0,
		last_synced_at       TIMESTAMPTZ NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_facility_idx ON jobs (facility_external_id)`,
	`CREATE TABLE IF NOT EXISTS facilities (
		external_id    TEXT PRIMARY KEY,
		id             TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		doc            JSONB NOT NULL,
		last_synced_at TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
}

// PostgresStore keeps canonical records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (s *PostgresStore) UpsertJob(ctx context.Context, job model.Job) error {
	doc, err := jobDoc(job)
	if err != nil {
		return persistErr("upsert job", job.ExternalID, err)
	}
	now := s.now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (external_id, id, facility_external_id, title, status, deleted, doc, last_synced_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (external_id) DO UPDATE SET
			id                   = EXCLUDED.id,
			facility_external_id = EXCLUDED.facility_external_id,
			title                = EXCLUDED.title,
			status               = CASE WHEN jobs.deleted THEN jobs.status ELSE EXCLUDED.status END,
			deleted              = jobs.deleted OR EXCLUDED.deleted,
			doc                  = EXCLUDED.doc,
			last_synced_at       = EXCLUDED.last_synced_at,
			updated_at           = EXCLUDED.updated_at`,
		job.ExternalID, job.ID, job.FacilityExternalID, job.Title, string(job.Status), job.Deleted,
		doc, job.Metadata.LastSyncedAt.UTC(), now,
	)
	if err != nil {
		return persistErr("upsert job", job.ExternalID, err)
	}
	return nil
}

func (s *PostgresStore) UpsertFacility(ctx context.Context, f model.Facility) error {
	doc, err := facilityDoc(f)
	if err != nil {
		return persistErr("upsert facility", f.ExternalID, err)
	}
	now := s.now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO facilities (external_id, id, name, doc, last_synced_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (external_id) DO UPDATE SET
			id             = EXCLUDED.id,
			name           = EXCLUDED.name,
			doc            = EXCLUDED.doc,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at     = EXCLUDED.updated_at`,
		f.ExternalID, f.ID, f.Name, doc, f.Metadata.LastSyncedAt.UTC(), now,
	)
	if err != nil {
		return persistErr("upsert facility", f.ExternalID, err)
	}
	return nil
}

func (s *PostgresStore) MarkJobDeleted(ctx context.Context, externalID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, deleted = TRUE, updated_at = $2 WHERE external_id = $3`,
		string(model.StatusExpired), s.now().UTC(), externalID,
	)
	if err != nil {
		return persistErr("delete job", externalID, err)
	}
	if tag.RowsAffected() == 0 {
		return persistErr("delete job", externalID, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, externalID string) (*model.Job, error) {
	var c jobColumns
	err := s.pool.QueryRow(ctx,
		`SELECT doc, status, deleted, views, applications, created_at, updated_at FROM jobs WHERE external_id = $1`,
		externalID,
	).Scan(&c.doc, &c.status, &c.deleted, &c.views, &c.applications, &c.createdAt, &c.updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get job", externalID, err)
	}
	c.createdAt, c.updatedAt = c.createdAt.UTC(), c.updatedAt.UTC()
	job, err := c.job()
	if err != nil {
		return nil, persistErr("get job", externalID, err)
	}
	return job, nil
}

func (s *PostgresStore) GetFacility(ctx context.Context, externalID string) (*model.Facility, error) {
	var (
		doc              []byte
		created, updated time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT doc, created_at, updated_at FROM facilities WHERE external_id = $1`,
		externalID,
	).Scan(&doc, &created, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get facility", externalID, err)
	}
	f, err := decodeFacility(doc, created.UTC(), updated.UTC())
	if err != nil {
		return nil, persistErr("get facility", externalID, err)
	}
	return f, nil
}

func (s *PostgresStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT deleted AND status = 'active'),
			COUNT(*) FILTER (WHERE deleted),
			(SELECT COUNT(*) FROM facilities)
		FROM jobs`,
	).Scan(&c.Jobs, &c.ActiveJobs, &c.DeletedJobs, &c.Facilities)
	if err != nil {
		return Counts{}, fmt.Errorf("counting records: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
