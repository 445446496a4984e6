package transform

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/amishk599/staffsync/internal/provider"
	"github.com/tidwall/gjson"
)

const (
	defaultWeeklyHours = 36
	urgentWindow       = 14 * 24 * time.Hour
)

// parseNumber reads a JSON number or a numeric string such as "$2,500.00".
func parseNumber(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v.Str)
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// money returns a non-negative amount, or nil.
func money(rec provider.Record, paths ...string) *float64 {
	f, ok := parseNumber(rec.First(paths...))
	if !ok || f < 0 {
		return nil
	}
	return &f
}

// coordinatePair reads lat/lng from an object under any of the usual key
// spellings. Both halves must parse and be in range.
func coordinatePair(v gjson.Result) *model.Coordinates {
	if !v.IsObject() {
		return nil
	}
	lat, ok := parseNumber(firstOf(v, "lat", "latitude"))
	if !ok || lat < -90 || lat > 90 {
		return nil
	}
	lng, ok := parseNumber(firstOf(v, "lng", "lon", "long", "longitude"))
	if !ok || lng < -180 || lng > 180 {
		return nil
	}
	return &model.Coordinates{Lat: lat, Lng: lng}
}

func firstOf(v gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := v.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// extractCoordinates checks record.coordinates, then
// record.location.coordinates, then top-level latitude/longitude. The first
// fully populated pair wins.
func extractCoordinates(rec provider.Record) *model.Coordinates {
	for _, path := range []string{"coordinates", "location.coordinates", "@this"} {
		if c := coordinatePair(rec.Get(path)); c != nil {
			return c
		}
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// parseDate returns nil for a missing or unparseable date.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

var (
	shiftPatternRegex = regexp.MustCompile(`(\d+)\s*[xX×]\s*(\d+)`)
	hoursPerWeekRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours|hrs?)\s*(?:per|a|/)\s*(?:week|wk)`)
)

// weeklyHours prefers an explicit numeric field, then an "NxM" shift
// pattern, then "<n> hours per week", then 36.
func weeklyHours(rec provider.Record, shiftText string) int {
	if f, ok := parseNumber(rec.First("weekly_hours", "hours_per_week", "weeklyHours")); ok && f > 0 {
		return int(math.Round(f))
	}
	if m := shiftPatternRegex.FindStringSubmatch(shiftText); m != nil {
		shifts, _ := strconv.Atoi(m[1])
		hours, _ := strconv.Atoi(m[2])
		if shifts > 0 && hours > 0 {
			return shifts * hours
		}
	}
	if m := hoursPerWeekRegex.FindStringSubmatch(shiftText); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f > 0 {
			return int(math.Round(f))
		}
	}
	return defaultWeeklyHours
}

type shiftSignal struct {
	shift   model.ShiftType
	pattern *regexp.Regexp
}

// shiftSignals are checked in order; the first match wins.
var shiftSignals = []shiftSignal{
	{model.ShiftDay, regexp.MustCompile(`(?i)\bdays?\b|\bdaytime\b`)},
	{model.ShiftNight, regexp.MustCompile(`(?i)\bnights?\b|\bnoc\b|\bovernight\b`)},
	{model.ShiftEvening, regexp.MustCompile(`(?i)\bevenings?\b|\bswing\b|\bpm shift\b`)},
	{model.ShiftRotating, regexp.MustCompile(`(?i)\brotat(?:e|es|ing|ion)\b`)},
	{model.ShiftPRN, regexp.MustCompile(`(?i)\bprn\b|\bper diem\b`)},
	{model.ShiftWeekend, regexp.MustCompile(`(?i)\bweekends?\b`)},
}

func shiftType(shiftText string) model.ShiftType {
	for _, s := range shiftSignals {
		if s.pattern.MatchString(shiftText) {
			return s.shift
		}
	}
	return ""
}

var urgentKeywords = regexp.MustCompile(`(?i)\b(?:urgent|immediate|asap|critical need|start asap)\b`)

// isUrgent is true for an explicit flag, a start date within the next 14
// days, or an urgency keyword in the title or description.
func isUrgent(rec provider.Record, start *time.Time, title, description string, now time.Time) bool {
	if rec.First("is_urgent", "urgent", "isUrgent").Bool() {
		return true
	}
	if start != nil {
		today := now.UTC().Truncate(24 * time.Hour)
		if !start.Before(today) && !start.After(now.Add(urgentWindow)) {
			return true
		}
	}
	return urgentKeywords.MatchString(title) || urgentKeywords.MatchString(description)
}

var (
	certificationRegex = regexp.MustCompile(`\b(BLS|ACLS|PALS|TNCC|CCRN|CEN|CNOR|RN|LPN|CNA)\b`)
	experienceRegex    = regexp.MustCompile(`(?i)(\d+)\s*\+?\s*(?:years?|yrs?)(?:\s+of)?(?:\s+\w+)?\s+experience`)
)

type skillKeyword struct {
	needle string
	name   string
}

var skillKeywords = []skillKeyword{
	{"telemetry", "Telemetry"},
	{"ventilator", "Ventilator Management"},
	{"epic", "Epic EMR"},
	{"cerner", "Cerner EMR"},
	{"meditech", "Meditech EMR"},
	{"trauma", "Trauma"},
	{"chemotherapy", "Chemotherapy"},
	{"wound care", "Wound Care"},
	{"iv therapy", "IV Therapy"},
	{"triage", "Triage"},
	{"cardiac", "Cardiac Care"},
	{"dialysis", "Dialysis"},
	{"neonatal", "Neonatal Care"},
	{"pediatric", "Pediatric Care"},
	{"medication administration", "Medication Administration"},
	{"patient assessment", "Patient Assessment"},
	{"charge nurse", "Charge Nurse"},
	{"preceptor", "Precepting"},
}

// parseRequirements scans the free text for certifications, minimum years of
// experience and known skills. Results are ordered by first appearance for
// certifications and by keyword table order for skills.
func parseRequirements(text string) model.Requirements {
	var req model.Requirements

	seen := map[string]bool{}
	for _, cert := range certificationRegex.FindAllString(text, -1) {
		if !seen[cert] {
			seen[cert] = true
			req.Certifications = append(req.Certifications, cert)
		}
	}

	if m := experienceRegex.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			req.MinYearsExperience = &n
		}
	}

	lower := strings.ToLower(text)
	for _, kw := range skillKeywords {
		if strings.Contains(lower, kw.needle) {
			req.Skills = append(req.Skills, kw.name)
		}
	}
	return req
}
