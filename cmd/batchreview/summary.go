package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/asset-review-api/pkg/batch"
	"github.com/noah-isme/asset-review-api/pkg/reviewclient"
)

type theme struct {
	Title   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = theme{
	Title:   lipgloss.Color("#5FAFD7"),
	Success: lipgloss.Color("#00D787"),
	Error:   lipgloss.Color("#FF005F"),
	Warning: lipgloss.Color("#FFAF00"),
	Hint:    lipgloss.Color("#6C6C6C"),
}

func (t theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t theme) passStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t theme) failStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t theme) warnStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning)
}

func (t theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func renderSummary(outcomes []batch.Outcome, counts batch.Counts, skipped []string) string {
	t := defaultTheme
	var b strings.Builder

	b.WriteString(t.titleStyle().Render("Batch review results"))
	b.WriteString("\n\n")

	width := 0
	for _, outcome := range outcomes {
		width = max(width, len(outcome.FileName))
	}
	name := lipgloss.NewStyle().Width(width + 2)

	for _, outcome := range outcomes {
		b.WriteString(name.Render(outcome.FileName))
		b.WriteString(renderOutcome(t, outcome))
		b.WriteString("\n")
		if outcome.Result != nil && !outcome.Result.GhostMode {
			for _, violation := range outcome.Result.Violations {
				b.WriteString(t.hintStyle().Render("    - " + violation))
				b.WriteString("\n")
			}
		}
	}
	for _, path := range skipped {
		b.WriteString(t.hintStyle().Render("skipped " + path))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderCounts(t, counts))
	return b.String()
}

func renderOutcome(t theme, outcome batch.Outcome) string {
	switch outcome.Status {
	case batch.StatusError:
		return t.warnStyle().Render("ERROR " + outcome.Error)
	case batch.StatusComplete:
		result := outcome.Result
		if result == nil {
			return t.failStyle().Render("FAIL")
		}
		if result.GhostMode {
			return t.passStyle().Render("SUBMITTED")
		}
		label := t.failStyle().Render("FAIL")
		if result.Pass {
			label = t.passStyle().Render("PASS")
		}
		line := fmt.Sprintf("%s %d%%", label, result.Confidence)
		if result.CustomMessage != "" {
			line += " " + t.hintStyle().Render(result.CustomMessage)
		}
		return line
	default:
		return t.hintStyle().Render(string(outcome.Status))
	}
}

func renderCounts(t theme, counts batch.Counts) string {
	parts := []string{
		t.passStyle().Render(fmt.Sprintf("%d passed", counts.Pass)),
		t.failStyle().Render(fmt.Sprintf("%d failed", counts.Fail)),
	}
	if counts.Error > 0 {
		parts = append(parts, t.warnStyle().Render(fmt.Sprintf("%d errored", counts.Error)))
	}
	if pending := counts.Pending + counts.Processing; pending > 0 {
		parts = append(parts, t.hintStyle().Render(fmt.Sprintf("%d not reviewed", pending)))
	}
	return strings.Join(parts, "  ")
}

func renderAssetTypes(types []reviewclient.AssetType) string {
	t := defaultTheme
	if len(types) == 0 {
		return t.hintStyle().Render("no asset types configured")
	}

	width := 0
	for _, assetType := range types {
		width = max(width, len(assetType.Name))
	}
	name := t.titleStyle().Width(width + 2)

	lines := make([]string, 0, len(types))
	for _, assetType := range types {
		lines = append(lines, name.Render(assetType.Name)+assetType.Description)
	}
	return strings.Join(lines, "\n")
}
