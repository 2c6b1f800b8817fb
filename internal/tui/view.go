package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/scenarist/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render(fmt.Sprintf("Scenarist • %s", m.displayTitle()))
	sections = append(sections, title)

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	groups := components.NewStepList(m.entries).Groups()
	for _, group := range groups {
		sections = append(sections, sectionStyle.Render(group[0].Scenario))
		sections = append(sections, renderStepEntries(group))
	}

	passed, failed, skipped := m.counts()
	summary := components.NewSummary(components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Passed:    passed,
		Failed:    failed,
		Skipped:   skipped,
		Scenarios: m.scenarios,
		Succeeded: m.succeeded,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		Aborts:    m.aborts,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}
	if m.err != nil {
		sections = append(sections, failureStyle.Render(m.err.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func renderStepEntries(entries []components.StepEntry) string {
	var lines []string
	for _, entry := range entries {
		line := fmt.Sprintf(" %s %s %s", StatusIcon(entry.Status), entry.ID, detailStyle.Render(entry.Platform+" "+entry.Action))
		if entry.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, entry.Duration.Truncate(time.Millisecond))
		}
		if strings.TrimSpace(entry.Message) != "" {
			line = fmt.Sprintf("%s: %s", line, failureStyle.Render(entry.Message))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) displayTitle() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "Run"
}

// StatusIcon returns the glyph representing a step status.
func StatusIcon(status string) string {
	switch status {
	case components.StatusPassed:
		return successStyle.Render("✓")
	case components.StatusRunning:
		return runningStyle.Render("⏳")
	case components.StatusFailed:
		return failureStyle.Render("✗")
	case components.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
