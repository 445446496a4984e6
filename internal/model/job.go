package model

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus is the canonical lifecycle state of a job posting.
type JobStatus string

const (
	StatusActive  JobStatus = "active"
	StatusFilled  JobStatus = "filled"
	StatusExpired JobStatus = "expired"
	StatusDraft   JobStatus = "draft"
)

// ShiftType is the inferred shift pattern of a job. Empty means unknown.
type ShiftType string

const (
	ShiftDay      ShiftType = "Day"
	ShiftNight    ShiftType = "Night"
	ShiftEvening  ShiftType = "Evening"
	ShiftRotating ShiftType = "Rotating"
	ShiftPRN      ShiftType = "PRN"
	ShiftWeekend  ShiftType = "Weekend"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is where a job is worked.
type Location struct {
	City        string       `json:"city"`
	State       string       `json:"state"`
	Zip         string       `json:"zip"`
	Coordinates *Coordinates `json:"coordinates"`
}

// Requirements are the qualifications parsed out of a job's free text.
type Requirements struct {
	Certifications     []string `json:"certifications"`
	MinYearsExperience *int     `json:"minYearsExperience"`
	Skills             []string `json:"skills"`
}

// SEO holds the search-engine fields synthesized for a job page.
type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Slug        string   `json:"slug"`
}

// Counters are owned by the local system and never overwritten by a sync.
type Counters struct {
	Views        int `json:"views"`
	Applications int `json:"applications"`
}

// Metadata carries sync bookkeeping and the raw provider payload for audit.
type Metadata struct {
	Source       string          `json:"source"`
	OriginalData json.RawMessage `json:"originalData,omitempty"`
	LastSyncedAt time.Time       `json:"lastSyncedAt"`
}

// Job is the canonical representation of a job posting, independent of
// provider formatting.
type Job struct {
	ID                 string       `json:"id"`
	ExternalID         string       `json:"externalId"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Specialty          string       `json:"specialty"`
	FacilityID         string       `json:"facilityId,omitempty"`
	FacilityExternalID string       `json:"facilityExternalId,omitempty"`
	FacilityName       string       `json:"facilityName,omitempty"`
	Location           Location     `json:"location"`
	StartDate          *time.Time   `json:"startDate"`
	EndDate            *time.Time   `json:"endDate"`
	WeeklyHours        int          `json:"weeklyHours"`
	ShiftDetails       string       `json:"shiftDetails"`
	ShiftType          ShiftType    `json:"shiftType,omitempty"`
	PayRate            *float64     `json:"payRate"`
	HousingStipend     *float64     `json:"housingStipend"`
	Status             JobStatus    `json:"status"`
	IsUrgent           bool         `json:"isUrgent"`
	Deleted            bool         `json:"deleted"`
	Requirements       Requirements `json:"requirements"`
	SEO                SEO          `json:"seo"`
	Counters           Counters     `json:"counters"`
	Metadata           Metadata     `json:"metadata"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// Address is a facility's postal address.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Facility is the canonical representation of a healthcare facility.
type Facility struct {
	ID               string       `json:"id"`
	ExternalID       string       `json:"externalId"`
	Name             string       `json:"name"`
	Type             string       `json:"type"`
	Address          Address      `json:"address"`
	Coordinates      *Coordinates `json:"coordinates"`
	Specialties      []string     `json:"specialties"`
	TraumaLevel      string       `json:"traumaLevel,omitempty"`
	TeachingHospital bool         `json:"teachingHospital"`
	MagnetStatus     bool         `json:"magnetStatus"`
	BedCount         *int         `json:"bedCount"`
	Website          string       `json:"website,omitempty"`
	Metadata         Metadata     `json:"metadata"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// JobStore is the persistence gateway for canonical records. Upserts are keyed
// by ExternalID and must be idempotent.
type JobStore interface {
	UpsertJob(ctx context.Context, job Job) error
	UpsertFacility(ctx context.Context, facility Facility) error
	// MarkJobDeleted soft-deletes a job. Returns ErrNotFound when no job has
	// the given external id.
	MarkJobDeleted(ctx context.Context, externalID string) error
	GetJob(ctx context.Context, externalID string) (*Job, error)
	GetFacility(ctx context.Context, externalID string) (*Facility, error)
}

// RunSummary describes the outcome of one sync run.
type RunSummary struct {
	Kind      string // "full", "incremental", "facilities", "migrate"
	Total     int
	Succeeded int
	Failed    int
	Pages     int
	Started   time.Time
	Duration  time.Duration
	DryRun    bool
}

// Notifier sends run summaries somewhere a human will see them.
type Notifier interface {
	Notify(summary RunSummary) error
}
