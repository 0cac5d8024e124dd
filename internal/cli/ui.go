package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hmkim/marketbrief/internal/pipeline"
	"github.com/hmkim/marketbrief/internal/validate"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	summaryStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(1, 2).
		Width(72)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	errStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	dimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))
)

// renderRunSummary builds the post-run report card printed after a
// successful publication.
func renderRunSummary(result *pipeline.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Publication run complete"))
	b.WriteString("\n")

	langs := append([]string(nil), result.Languages...)
	sort.Strings(langs)

	lines := []string{
		fmt.Sprintf("Date       %s %s", result.Artifact.Date, result.Artifact.Session),
		fmt.Sprintf("Languages  %s", strings.Join(langs, ", ")),
		fmt.Sprintf("Staged at  %s", result.StagedPath),
		fmt.Sprintf("Elapsed    %s", result.Elapsed.Round(time.Millisecond)),
	}
	if len(result.Dropped) > 0 {
		lines = append(lines, warnStyle.Render(
			fmt.Sprintf("Dropped    %s (translation failed)", strings.Join(result.Dropped, ", "))))
	}
	lines = append(lines, renderValidation(result.Validation))

	b.WriteString(summaryStyle.Render(strings.Join(lines, "\n")))
	return b.String()
}

func renderValidation(report *validate.Report) string {
	switch report.Overall {
	case validate.OverallValid:
		return okStyle.Render("Validation valid")
	case validate.OverallWarning:
		var b strings.Builder
		b.WriteString(warnStyle.Render(fmt.Sprintf("Validation %d warnings", len(report.Warnings))))
		for _, w := range report.Warnings {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render("  - " + w))
		}
		return b.String()
	default:
		var b strings.Builder
		b.WriteString(errStyle.Render(fmt.Sprintf("Validation %d errors", len(report.Errors))))
		for _, e := range report.Errors {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render("  - " + e))
		}
		return b.String()
	}
}
