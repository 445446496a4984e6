package transform

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/amishk599/staffsync/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type rewriteRule struct {
	pattern *regexp.Regexp
	replace string
}

func rule(pattern, replace string) rewriteRule {
	return rewriteRule{pattern: regexp.MustCompile(pattern), replace: replace}
}

// nameRules run in order over title-cased text. A later rule sees the output
// of earlier ones.
var nameRules = []rewriteRule{
	rule(`\bIcu\b`, "ICU"),
	rule(`\bNicu\b`, "NICU"),
	rule(`\bPicu\b`, "PICU"),
	rule(`\bCvicu\b`, "CVICU"),
	rule(`\bMicu\b`, "MICU"),
	rule(`\bSicu\b`, "SICU"),
	rule(`\bPcu\b`, "PCU"),
	rule(`\bCcu\b`, "CCU"),
	rule(`\bPacu\b`, "PACU"),
	rule(`\bEr\b`, "ER"),
	rule(`\bEd\b`, "ED"),
	rule(`\bRn\b`, "RN"),
	rule(`\bLpn\b`, "LPN"),
	rule(`\bLvn\b`, "LVN"),
	rule(`\bCna\b`, "CNA"),
	rule(`\bCrna\b`, "CRNA"),
	rule(`\bNp\b`, "NP"),
	rule(`\bL&[Dd]\b`, "L&D"),
	rule(`\bMed[ /]Surg\b`, "Med-Surg"),
	rule(`\bTele\b`, "Telemetry"),
	rule(`\bMed Ctr\b`, "Medical Center"),
	rule(`\bCtr\b`, "Center"),
	rule(`\bHosp\b`, "Hospital"),
	rule(`\bUniv\b`, "University"),
	rule(`\bReg\b`, "Regional"),
	rule(`\bMem\b`, "Memorial"),
	rule(`\bHlth\b`, "Health"),
	rule(`\bSys\b`, "System"),
}

// NormalizeName trims, collapses whitespace, title-cases and then applies
// the abbreviation rules.
func NormalizeName(s string) string {
	s = collapseSpace(s)
	if s == "" {
		return ""
	}
	s = titleCase(s)
	for _, r := range nameRules {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return s
}

// titleCase is not shared: a cases.Caser keeps state between calls.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// plainText converts an HTML or HTML-encoded string to plain text.
func plainText(content string) string {
	unescaped := html.UnescapeString(content)
	return collapseSpace(htmlTagRegex.ReplaceAllString(unescaped, ""))
}

var specialties = map[string]string{
	"icu":                  "ICU",
	"intensive care":       "ICU",
	"intensive care unit":  "ICU",
	"critical care":        "ICU",
	"micu":                 "ICU",
	"sicu":                 "ICU",
	"nicu":                 "NICU",
	"neonatal icu":         "NICU",
	"picu":                 "PICU",
	"pediatric icu":        "PICU",
	"cvicu":                "CVICU",
	"er":                   "Emergency Room",
	"ed":                   "Emergency Room",
	"emergency":            "Emergency Room",
	"emergency room":       "Emergency Room",
	"emergency department": "Emergency Room",
	"med surg":             "Med-Surg",
	"med/surg":             "Med-Surg",
	"med-surg":             "Med-Surg",
	"medical surgical":     "Med-Surg",
	"medical-surgical":     "Med-Surg",
	"tele":                 "Telemetry",
	"telemetry":            "Telemetry",
	"or":                   "Operating Room",
	"operating room":       "Operating Room",
	"perioperative":        "Operating Room",
	"pacu":                 "PACU",
	"l&d":                  "Labor & Delivery",
	"labor and delivery":   "Labor & Delivery",
	"labor & delivery":     "Labor & Delivery",
	"mother baby":          "Mother-Baby",
	"postpartum":           "Mother-Baby",
	"pcu":                  "Step-Down",
	"progressive care":     "Step-Down",
	"step down":            "Step-Down",
	"stepdown":             "Step-Down",
	"oncology":             "Oncology",
	"peds":                 "Pediatrics",
	"pediatrics":           "Pediatrics",
	"psych":                "Psychiatric",
	"psychiatric":          "Psychiatric",
	"behavioral health":    "Psychiatric",
	"cath lab":             "Cath Lab",
	"cardiac cath lab":     "Cath Lab",
	"dialysis":             "Dialysis",
	"home health":          "Home Health",
	"rehab":                "Rehabilitation",
	"rehabilitation":       "Rehabilitation",
	"case management":      "Case Management",
	"cardiovascular":       "Cardiovascular",
}

var facilityTypes = map[string]string{
	"hospital":                  "Hospital",
	"acute care":                "Hospital",
	"acute care hospital":       "Hospital",
	"medical center":            "Hospital",
	"clinic":                    "Clinic",
	"outpatient":                "Clinic",
	"outpatient clinic":         "Clinic",
	"ltac":                      "Long-Term Acute Care",
	"ltach":                     "Long-Term Acute Care",
	"long term acute care":      "Long-Term Acute Care",
	"long-term acute care":      "Long-Term Acute Care",
	"snf":                       "Skilled Nursing Facility",
	"skilled nursing":           "Skilled Nursing Facility",
	"skilled nursing facility":  "Skilled Nursing Facility",
	"nursing home":              "Skilled Nursing Facility",
	"rehab":                     "Rehabilitation Center",
	"rehabilitation":            "Rehabilitation Center",
	"rehabilitation center":     "Rehabilitation Center",
	"asc":                       "Ambulatory Surgery Center",
	"surgery center":            "Ambulatory Surgery Center",
	"ambulatory surgery center": "Ambulatory Surgery Center",
	"urgent care":               "Urgent Care",
	"home health":               "Home Health",
	"psychiatric":               "Psychiatric Facility",
	"psychiatric hospital":      "Psychiatric Facility",
	"behavioral health":         "Psychiatric Facility",
	"dialysis":                  "Dialysis Center",
	"dialysis center":           "Dialysis Center",
	"hospice":                   "Hospice",
	"children's hospital":       "Children's Hospital",
	"childrens hospital":        "Children's Hospital",
	"pediatric hospital":        "Children's Hospital",
	"critical access hospital":  "Critical Access Hospital",
	"cah":                       "Critical Access Hospital",
}

// MapSpecialty maps a provider specialty onto the closed vocabulary. Unknown
// values fall back to the title-cased input; only empty input maps to "".
func MapSpecialty(raw string) string {
	return lookup(specialties, raw)
}

// MapFacilityType maps a provider facility type onto the closed vocabulary,
// with the same fallback as MapSpecialty.
func MapFacilityType(raw string) string {
	return lookup(facilityTypes, raw)
}

func lookup(dict map[string]string, raw string) string {
	key := strings.ToLower(collapseSpace(raw))
	if key == "" {
		return ""
	}
	if v, ok := dict[key]; ok {
		return v
	}
	return titleCase(key)
}

var statuses = map[string]model.JobStatus{
	"active":    model.StatusActive,
	"open":      model.StatusActive,
	"available": model.StatusActive,
	"filled":    model.StatusFilled,
	"closed":    model.StatusFilled,
	"expired":   model.StatusExpired,
	"draft":     model.StatusDraft,
	"pending":   model.StatusDraft,
}

// MapStatus maps a provider status onto the four canonical values. Anything
// unrecognised is active.
func MapStatus(raw string) model.JobStatus {
	if s, ok := statuses[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return model.StatusActive
}

var (
	traumaRoman   = []string{"I", "II", "III", "IV", "V"}
	traumaPattern = regexp.MustCompile(`(?i)^(?:level\s*)?(i{1,3}|iv|v|[1-5])$`)
)

// NormalizeTraumaLevel maps "1", "II", "level 3" and similar onto
// "Level I".."Level V". Anything else is passed through trimmed.
func NormalizeTraumaLevel(raw string) string {
	raw = collapseSpace(raw)
	m := traumaPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	tok := strings.ToUpper(m[1])
	if n, err := strconv.Atoi(tok); err == nil {
		return "Level " + traumaRoman[n-1]
	}
	return "Level " + tok
}
