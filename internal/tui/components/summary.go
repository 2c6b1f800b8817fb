package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering summaries.
type SummaryData struct {
	Total     int
	Completed int
	Passed    int
	Failed    int
	Skipped   int
	// Scenarios counts finished runs; Succeeded those whose verdict passed.
	Scenarios int
	Succeeded int
	Finished  bool
	Cancelled bool
	Aborts    []string
}

// Summary renders a textual execution summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		line := fmt.Sprintf("Steps: %d/%d completed (%d passed, %d failed", s.data.Completed, s.data.Total, s.data.Passed, s.data.Failed)
		if s.data.Skipped > 0 {
			line += fmt.Sprintf(", %d not executed", s.data.Skipped)
		}
		lines = append(lines, line+")")
	}

	for _, abort := range s.data.Aborts {
		lines = append(lines, "Aborted: "+abort)
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Execution cancelled")
	case s.data.Finished && s.data.Scenarios > 0:
		if s.data.Succeeded == s.data.Scenarios {
			lines = append(lines, fmt.Sprintf("All %d scenario(s) passed", s.data.Scenarios))
		} else {
			lines = append(lines, fmt.Sprintf("%d of %d scenario(s) failed", s.data.Scenarios-s.data.Succeeded, s.data.Scenarios))
		}
	case s.data.Finished:
		lines = append(lines, "Execution finished")
	}

	return strings.Join(lines, "\n")
}
