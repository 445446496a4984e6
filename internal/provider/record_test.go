package provider

import "testing"

func TestRecord_FieldAccess(t *testing.T) {
	rec := NewRecord([]byte(`{
		"id": 12345,
		"title": "  ",
		"job_title": "ICU RN",
		"location": {"city": "Austin"},
		"certifications": ["BLS", "", {"name": "ACLS"}],
		"skills": "telemetry, ventilators ,",
		"missing": null
	}`))

	if !rec.IsObject() {
		t.Fatal("expected an object")
	}
	if got := rec.String("id"); got != "12345" {
		t.Errorf("id = %q", got)
	}
	if got := rec.String("title", "job_title"); got != "ICU RN" {
		t.Errorf("blank title should fall through, got %q", got)
	}
	if got := rec.String("missing", "nope"); got != "" {
		t.Errorf("expected empty fallback, got %q", got)
	}
	loc, ok := rec.Object("location")
	if !ok || loc.String("city") != "Austin" {
		t.Errorf("location = %v, %v", loc, ok)
	}
	if _, ok := rec.Object("title"); ok {
		t.Error("a string is not an object")
	}
	if got := rec.Strings("certifications"); len(got) != 2 || got[1] != "ACLS" {
		t.Errorf("certifications = %q", got)
	}
	if got := rec.Strings("skills"); len(got) != 2 || got[1] != "ventilators" {
		t.Errorf("skills = %q", got)
	}
}

func TestRecord_IsObjectRejectsMalformed(t *testing.T) {
	for _, raw := range []string{``, `[]`, `"x"`, `{"id":`} {
		if NewRecord([]byte(raw)).IsObject() {
			t.Errorf("IsObject(%q) = true", raw)
		}
	}
}
