package transform

import (
	"math"
	"strings"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/amishk599/staffsync/internal/provider"
)

// FacilityTransformer maps provider facility records to model.Facility.
type FacilityTransformer struct {
	now func() time.Time
}

// NewFacilityTransformer creates a FacilityTransformer.
func NewFacilityTransformer(now func() time.Time) *FacilityTransformer {
	if now == nil {
		now = time.Now
	}
	return &FacilityTransformer{now: now}
}

// Transform maps one provider facility, whether fetched on its own or
// embedded in a job.
func (t *FacilityTransformer) Transform(rec provider.Record) (model.Facility, error) {
	if !rec.IsObject() {
		return model.Facility{}, &model.TransformationError{Entity: "facility", Err: errNotObject}
	}
	externalID := FacilityExternalID(rec)
	if externalID == "" {
		return model.Facility{}, &model.TransformationError{Entity: "facility", Err: errMissingID}
	}
	name := NormalizeName(rec.String("name", "facility_name", "facilityName"))
	if name == "" {
		return model.Facility{}, &model.TransformationError{Entity: "facility", ExternalID: externalID, Err: errMissingName}
	}

	f := model.Facility{
		ID:               FacilityID(externalID),
		ExternalID:       externalID,
		Name:             name,
		Type:             MapFacilityType(rec.String("type", "facility_type", "facilityType")),
		Address:          facilityAddress(rec),
		Coordinates:      extractCoordinates(rec),
		Specialties:      facilitySpecialties(rec),
		TraumaLevel:      NormalizeTraumaLevel(rec.String("trauma_level", "traumaLevel")),
		TeachingHospital: rec.First("teaching_hospital", "teachingHospital", "is_teaching").Bool(),
		MagnetStatus:     rec.First("magnet_status", "magnetStatus", "is_magnet", "magnet").Bool(),
		BedCount:         bedCount(rec),
		Website:          rec.String("website", "url"),
		Metadata: model.Metadata{
			Source:       Source,
			OriginalData: rec.Raw(),
			LastSyncedAt: t.now().UTC(),
		},
	}
	return f, nil
}

func facilityAddress(rec provider.Record) model.Address {
	return model.Address{
		Street: collapseSpace(stringField(rec, "address.street", "address.line1", "street", "address")),
		City:   collapseSpace(rec.String("address.city", "city")),
		State:  strings.ToUpper(collapseSpace(rec.String("address.state", "state"))),
		Zip:    rec.String("address.zip", "address.zip_code", "address.postal_code", "zip", "zip_code"),
	}
}

// facilitySpecialties maps and de-duplicates, keeping first-seen order.
func facilitySpecialties(rec provider.Record) []string {
	seen := map[string]bool{}
	var out []string
	for _, raw := range rec.Strings("specialties") {
		s := MapSpecialty(raw)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func bedCount(rec provider.Record) *int {
	f, ok := parseNumber(rec.First("bed_count", "bedCount", "beds"))
	if !ok || f < 0 {
		return nil
	}
	n := int(math.Round(f))
	return &n
}
