package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/scenarist/internal/tui/components"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepStartMsg:
		i := m.ensureStep(msg.Event.Scenario, msg.Event.Step)
		m.setStatus(i, components.StatusRunning)
		return m, nil
	case StepResultMsg:
		i := m.ensureStep(msg.Event.Scenario, msg.Event.Step)
		status := components.StatusPassed
		if !msg.Result.Success {
			status = components.StatusFailed
		}
		m.setStatus(i, status)
		m.entries[i].Duration = msg.Result.Duration
		m.entries[i].Message = msg.Result.Error
		return m, nil
	case RunDoneMsg:
		if msg.Report == nil {
			return m, nil
		}
		m.scenarios++
		if msg.Report.Success {
			m.succeeded++
		}
		if abort := msg.Report.Abort; abort != nil {
			m.aborts = append(m.aborts, fmt.Sprintf("%s before step %s: %s", msg.Report.ScenarioName, abort.StepID, abort.Error))
		}
		for i, entry := range m.entries {
			if entry.Scenario == msg.Report.ScenarioName && !entry.Done() {
				m.setStatus(i, components.StatusSkipped)
			}
		}
		return m, nil
	case AllDoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.cancelled = true
			m.finished = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
