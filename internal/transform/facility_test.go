package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/amishk599/staffsync/internal/model"
)

func TestFacilityTransform(t *testing.T) {
	rec := record(t, map[string]any{
		"id":                "F-100",
		"name":              "  mercy   reg med ctr ",
		"type":              "LTACH",
		"address":           map[string]any{"street": "1 Main St", "city": "Tulsa", "state": "ok", "zip": "74101"},
		"latitude":          "36.15",
		"longitude":         "-95.99",
		"specialties":       []any{"icu", "ICU", "Tele", map[string]any{"name": "wound care"}},
		"trauma_level":      "2",
		"teaching_hospital": true,
		"magnet_status":     "true",
		"bed_count":         "312",
		"website":           "https://mercy.example",
	})

	f, err := NewFacilityTransformer(clock).Transform(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != FacilityID("F-100") || f.ExternalID != "F-100" {
		t.Errorf("ids = %s / %s", f.ID, f.ExternalID)
	}
	if f.Name != "Mercy Regional Medical Center" {
		t.Errorf("name = %q", f.Name)
	}
	if f.Type != "Long-Term Acute Care" {
		t.Errorf("type = %q", f.Type)
	}
	if f.Address != (model.Address{Street: "1 Main St", City: "Tulsa", State: "OK", Zip: "74101"}) {
		t.Errorf("address = %+v", f.Address)
	}
	if f.Coordinates == nil || f.Coordinates.Lat != 36.15 || f.Coordinates.Lng != -95.99 {
		t.Errorf("coordinates = %+v", f.Coordinates)
	}
	if got := strings.Join(f.Specialties, "|"); got != "ICU|Telemetry|Wound Care" {
		t.Errorf("specialties = %s", got)
	}
	if f.TraumaLevel != "Level II" {
		t.Errorf("traumaLevel = %q", f.TraumaLevel)
	}
	if !f.TeachingHospital || !f.MagnetStatus {
		t.Errorf("flags = %v / %v", f.TeachingHospital, f.MagnetStatus)
	}
	if f.BedCount == nil || *f.BedCount != 312 {
		t.Errorf("bedCount = %v", f.BedCount)
	}
}

func TestFacilityTransform_SparseRecord(t *testing.T) {
	f, err := NewFacilityTransformer(clock).Transform(record(t, map[string]any{"id": 9, "name": "clinic a"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Type != "" || f.Coordinates != nil || f.BedCount != nil || f.Specialties != nil {
		t.Errorf("expected empty optional fields, got %+v", f)
	}
	if f.TeachingHospital || f.MagnetStatus {
		t.Error("flags should default to false")
	}
}

func TestFacilityTransform_MissingID(t *testing.T) {
	_, err := NewFacilityTransformer(clock).Transform(record(t, map[string]any{"name": "Mercy"}))
	var te *model.TransformationError
	if !errors.As(err, &te) || te.Entity != "facility" {
		t.Fatalf("expected facility TransformationError, got %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"ICU Registered Nurse":       "ICU Registered Nurse",
		"  nicu   rn  ":              "NICU RN",
		"labor & delivery l&d nurse": "Labor & Delivery L&D Nurse",
		"med surg / tele rn":         "Med-Surg / Telemetry RN",
		"st. luke med ctr":           "St. Luke Medical Center",
		"":                           "",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapSpecialtyAndType(t *testing.T) {
	tests := []struct {
		fn   func(string) string
		in   string
		want string
	}{
		{MapSpecialty, "  Med/Surg ", "Med-Surg"},
		{MapSpecialty, "EMERGENCY department", "Emergency Room"},
		{MapSpecialty, "wound   care", "Wound Care"},
		{MapSpecialty, "", ""},
		{MapFacilityType, "SNF", "Skilled Nursing Facility"},
		{MapFacilityType, "teaching clinic", "Teaching Clinic"},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("map(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTraumaLevel(t *testing.T) {
	tests := map[string]string{
		"1":                 "Level I",
		"level ii":          "Level II",
		"Level IV":          "Level IV",
		"III":               "Level III",
		"5":                 "Level V",
		"Pediatric Level 1": "Pediatric Level 1",
		"":                  "",
	}
	for in, want := range tests {
		if got := NormalizeTraumaLevel(in); got != want {
			t.Errorf("NormalizeTraumaLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
