package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amishk599/staffsync/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const callToAction = "Apply today to lock in your next travel nursing assignment."

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func placeName(city, state string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{city, state} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// buildSEO synthesizes the search fields for a job page.
func buildSEO(job model.Job, brand string) model.SEO {
	place := placeName(job.Location.City, job.Location.State)

	title := job.Title
	if place != "" {
		title += " in " + place
	}
	title += " - Travel Nursing Job | " + brand

	return model.SEO{
		Title:       title,
		Description: seoDescription(job, place),
		Keywords:    seoKeywords(job),
		Slug:        slugify(job.Title, job.Location.City, job.Location.State, job.ExternalID),
	}
}

func seoDescription(job model.Job, place string) string {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	b.WriteString(job.Title)
	b.WriteString(" position")
	if job.FacilityName != "" {
		b.WriteString(" at " + job.FacilityName)
	}
	if place != "" {
		b.WriteString(" in " + place)
	}
	b.WriteString(".")
	if job.WeeklyHours > 0 {
		fmt.Fprintf(&b, " %d hours per week.", job.WeeklyHours)
	}
	if job.PayRate != nil {
		b.WriteString(p.Sprintf(" Earn $%.0f per week.", *job.PayRate))
	}
	if job.StartDate != nil {
		b.WriteString(" Starts " + job.StartDate.Format("January 2, 2006") + ".")
	}
	b.WriteString(" " + callToAction)
	return b.String()
}

func seoKeywords(job model.Job) []string {
	city, state := job.Location.City, job.Location.State
	candidates := []string{
		job.Title,
		job.Title + " jobs",
		"travel nursing jobs",
	}
	if city != "" {
		candidates = append(candidates, "travel nurse jobs in "+city, job.Title+" "+city)
	}
	if state != "" {
		candidates = append(candidates, "travel nursing "+state)
	}
	if job.Specialty != "" {
		candidates = append(candidates, job.Specialty+" travel nurse", job.Specialty+" nursing jobs")
	}
	if job.FacilityName != "" {
		candidates = append(candidates, job.FacilityName+" jobs")
	}

	seen := map[string]bool{}
	keywords := make([]string, 0, len(candidates))
	for _, k := range candidates {
		k = strings.ToLower(collapseSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keywords = append(keywords, k)
	}
	return keywords
}

func slugify(parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, " "))
	return strings.Trim(slugUnsafe.ReplaceAllString(joined, "-"), "-")
}
