package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		external_id          TEXT PRIMARY KEY,
		id                   TEXT NOT NULL UNIQUE,
		facility_external_id TEXT NOT NULL DEFAULT '',
		title                TEXT NOT NULL,
		status               TEXT NOT NULL,
		deleted              INTEGER NOT NULL DEFAULT 0,
		doc                  TEXT NOT NULL,
		views                INTEGER NOT NULL DEFAULT 0,
		applications         INTEGER NOT NULL DEFAULT 0,
		last_synced_at       TEXT NOT NULL,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_facility_idx ON jobs (facility_external_id)`,
	`CREATE TABLE IF NOT EXISTS facilities (
		external_id    TEXT PRIMARY KEY,
		id             TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		doc            TEXT NOT NULL,
		last_synced_at TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,
}

// SQLiteStore keeps canonical records in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// UpsertJob inserts or updates a job by external id. Counters and created_at
// survive updates, and a soft-deleted job stays deleted and expired.
func (s *SQLiteStore) UpsertJob(ctx context.Context, job model.Job) error {
	doc, err := jobDoc(job)
	if err != nil {
		return persistErr("upsert job", job.ExternalID, err)
	}
	now := formatTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (external_id, id, facility_external_id, title, status, deleted, doc, last_synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			id                   = excluded.id,
			facility_external_id = excluded.facility_external_id,
			title                = excluded.title,
			status               = CASE WHEN jobs.deleted THEN jobs.status ELSE excluded.status END,
			deleted              = jobs.deleted OR excluded.deleted,
			doc                  = excluded.doc,
			last_synced_at       = excluded.last_synced_at,
			updated_at           = excluded.updated_at`,
		job.ExternalID, job.ID, job.FacilityExternalID, job.Title, string(job.Status), job.Deleted,
		string(doc), formatTime(job.Metadata.LastSyncedAt), now, now,
	)
	if err != nil {
		return persistErr("upsert job", job.ExternalID, err)
	}
	return nil
}

// UpsertFacility inserts or updates a facility by external id.
func (s *SQLiteStore) UpsertFacility(ctx context.Context, f model.Facility) error {
	doc, err := facilityDoc(f)
	if err != nil {
		return persistErr("upsert facility", f.ExternalID, err)
	}
	now := formatTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facilities (external_id, id, name, doc, last_synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			id             = excluded.id,
			name           = excluded.name,
			doc            = excluded.doc,
			last_synced_at = excluded.last_synced_at,
			updated_at     = excluded.updated_at`,
		f.ExternalID, f.ID, f.Name, string(doc), formatTime(f.Metadata.LastSyncedAt), now, now,
	)
	if err != nil {
		return persistErr("upsert facility", f.ExternalID, err)
	}
	return nil
}

// MarkJobDeleted soft-deletes a job: status becomes expired and the deleted
// flag is set. The row is kept.
func (s *SQLiteStore) MarkJobDeleted(ctx context.Context, externalID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, deleted = 1, updated_at = ? WHERE external_id = ?`,
		string(model.StatusExpired), formatTime(s.now()), externalID,
	)
	if err != nil {
		return persistErr("delete job", externalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete job", externalID, err)
	}
	if n == 0 {
		return persistErr("delete job", externalID, model.ErrNotFound)
	}
	return nil
}

// GetJob returns the job with the given external id, or model.ErrNotFound.
func (s *SQLiteStore) GetJob(ctx context.Context, externalID string) (*model.Job, error) {
	var (
		c                jobColumns
		doc              string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, status, deleted, views, applications, created_at, updated_at FROM jobs WHERE external_id = ?`,
		externalID,
	).Scan(&doc, &c.status, &c.deleted, &c.views, &c.applications, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get job", externalID, err)
	}
	c.doc = []byte(doc)
	c.createdAt = parseTime(created)
	c.updatedAt = parseTime(updated)

	job, err := c.job()
	if err != nil {
		return nil, persistErr("get job", externalID, err)
	}
	return job, nil
}

// GetFacility returns the facility with the given external id, or
// model.ErrNotFound.
func (s *SQLiteStore) GetFacility(ctx context.Context, externalID string) (*model.Facility, error) {
	var doc, created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, created_at, updated_at FROM facilities WHERE external_id = ?`,
		externalID,
	).Scan(&doc, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get facility", externalID, err)
	}
	f, err := decodeFacility([]byte(doc), parseTime(created), parseTime(updated))
	if err != nil {
		return nil, persistErr("get facility", externalID, err)
	}
	return f, nil
}

// Counts reports how many jobs and facilities are stored.
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN deleted = 0 AND status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(deleted), 0),
			(SELECT COUNT(*) FROM facilities)
		FROM jobs`,
	).Scan(&c.Jobs, &c.ActiveJobs, &c.DeletedJobs, &c.Facilities)
	if err != nil {
		return Counts{}, fmt.Errorf("counting records: %w", err)
	}
	return c, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Timestamps are stored as UTC RFC 3339 text.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
