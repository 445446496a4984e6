package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var (
	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")). // bright blue
			Padding(0, 1)

	summaryFailedBoxStyle = summaryBoxStyle.
				BorderForeground(lipgloss.Color("214")) // orange

	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")). // dim gray
				Width(12)

	summaryOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // green

	summaryFailStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196")) // red

	summaryHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// renderSummary formats a run summary as a bordered box.
func renderSummary(s model.RunSummary) string {
	row := func(label, value string) string {
		return summaryLabelStyle.Render(label) + value
	}

	failed := fmt.Sprintf("%d", s.Failed)
	box := summaryBoxStyle
	if s.Failed > 0 {
		failed = summaryFailStyle.Render(failed)
		box = summaryFailedBoxStyle
	}

	lines := []string{
		summaryTitleStyle.Render(fmt.Sprintf("%s sync summary", s.Kind)),
		"",
		row("Processed", fmt.Sprintf("%d", s.Total)),
		row("Succeeded", summaryOKStyle.Render(fmt.Sprintf("%d", s.Succeeded))),
		row("Failed", failed),
		row("Pages", fmt.Sprintf("%d", s.Pages)),
		row("Duration", s.Duration.Round(time.Millisecond).String()),
	}
	if s.DryRun {
		lines = append(lines, "", summaryHintStyle.Render("dry run: nothing was written"))
	}
	return box.Render(strings.Join(lines, "\n"))
}

func printSummary(w io.Writer, s model.RunSummary) {
	fmt.Fprintln(w, renderSummary(s))
}
