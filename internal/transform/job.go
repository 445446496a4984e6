// Package transform maps provider records onto canonical jobs and
// facilities. Everything here is pure: no I/O, and the only time source is
// the injected clock.
package transform

import (
	"errors"
	"strings"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/amishk599/staffsync/internal/provider"
	"github.com/tidwall/gjson"
)

// Source tags records produced by this package.
const Source = "provider"

var (
	errNotObject    = errors.New("record is not a JSON object")
	errMissingID    = errors.New("missing id")
	errMissingTitle = errors.New("missing title")
	errMissingName  = errors.New("missing name")
)

// JobTransformer maps provider job records to model.Job.
type JobTransformer struct {
	brand string
	now   func() time.Time
}

// NewJobTransformer creates a JobTransformer. brand is used in SEO titles;
// now stamps lastSyncedAt and anchors the urgency window.
func NewJobTransformer(brand string, now func() time.Time) *JobTransformer {
	if now == nil {
		now = time.Now
	}
	return &JobTransformer{brand: brand, now: now}
}

// Transform maps one provider job. Structural failures come back as
// *model.TransformationError carrying the external id when one is known.
func (t *JobTransformer) Transform(rec provider.Record) (model.Job, error) {
	if !rec.IsObject() {
		return model.Job{}, &model.TransformationError{Entity: "job", Err: errNotObject}
	}
	externalID := ExternalID(rec)
	if externalID == "" {
		return model.Job{}, &model.TransformationError{Entity: "job", Err: errMissingID}
	}
	title := NormalizeName(rec.String("title", "job_title", "position"))
	if title == "" {
		return model.Job{}, &model.TransformationError{Entity: "job", ExternalID: externalID, Err: errMissingTitle}
	}

	now := t.now()
	description := plainText(rec.String("description", "job_description"))
	shiftText := collapseSpace(rec.String("shift_details", "shiftDetails", "shift", "schedule"))
	start := parseDate(rec.String("start_date", "startDate"))

	job := model.Job{
		ID:             JobID(externalID),
		ExternalID:     externalID,
		Title:          title,
		Description:    description,
		Specialty:      MapSpecialty(stringField(rec, "specialty.name", "specialty", "discipline")),
		Location:       jobLocation(rec),
		StartDate:      start,
		EndDate:        parseDate(rec.String("end_date", "endDate")),
		ShiftDetails:   shiftText,
		ShiftType:      shiftType(shiftText),
		PayRate:        money(rec, "pay_rate", "payRate", "weekly_pay", "pay.weekly"),
		HousingStipend: money(rec, "housing_stipend", "housingStipend", "stipend", "pay.housing"),
		Status:         MapStatus(rec.String("status")),
		IsUrgent:       isUrgent(rec, start, title, description, now),
		Requirements:   parseRequirements(requirementsText(rec, description)),
		Metadata: model.Metadata{
			Source:       Source,
			OriginalData: rec.Raw(),
			LastSyncedAt: now.UTC(),
		},
	}
	job.WeeklyHours = weeklyHours(rec, shiftText)

	if facilityExtID := rec.String("facility.id", "facility_id", "facilityId"); facilityExtID != "" {
		job.FacilityExternalID = facilityExtID
		job.FacilityID = FacilityID(facilityExtID)
	}
	job.FacilityName = NormalizeName(stringField(rec, "facility.name", "facility_name", "facilityName", "facility"))

	job.SEO = buildSEO(job, t.brand)
	return job, nil
}

// ExternalID returns the provider id of a job record, or "" when it has none.
// A facility_id next to it belongs to the linked facility and is never used.
func ExternalID(rec provider.Record) string {
	return rec.String("id", "job_id", "external_id", "externalId")
}

// FacilityExternalID returns the provider id of a facility record.
func FacilityExternalID(rec provider.Record) string {
	return rec.String("id", "facility_id", "external_id", "externalId")
}

// EmbeddedFacility returns the facility object inlined in a job record, if
// the provider sent one with an id.
func EmbeddedFacility(rec provider.Record) (provider.Record, bool) {
	f, ok := rec.Object("facility")
	if !ok || f.String("id", "facility_id") == "" {
		return provider.Record{}, false
	}
	return f, true
}

func jobLocation(rec provider.Record) model.Location {
	return model.Location{
		City:        collapseSpace(rec.String("city", "location.city", "facility.city", "facility.address.city")),
		State:       strings.ToUpper(collapseSpace(rec.String("state", "location.state", "facility.state", "facility.address.state"))),
		Zip:         rec.String("zip", "zip_code", "postal_code", "location.zip", "location.zip_code"),
		Coordinates: extractCoordinates(rec),
	}
}

// stringField returns the first path holding a string. Objects and arrays
// are skipped so "specialty" can be either {"name": ...} or a bare string.
func stringField(rec provider.Record, paths ...string) string {
	for _, p := range paths {
		v := rec.Get(p)
		if v.Type == gjson.Null || v.IsObject() || v.IsArray() {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func requirementsText(rec provider.Record, description string) string {
	parts := []string{description}
	for _, path := range []string{"requirements", "certifications", "qualifications", "skills"} {
		v := rec.Get(path)
		if v.IsArray() {
			parts = append(parts, rec.Strings(path)...)
		} else if s := strings.TrimSpace(v.String()); s != "" && !v.IsObject() {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
