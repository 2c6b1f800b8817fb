// Package tui renders live scenario progress with Bubbletea.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/engine"
	"github.com/alexisbeaulieu97/scenarist/internal/report"
	"github.com/alexisbeaulieu97/scenarist/internal/tui/components"
)

// StepStartMsg indicates a step has started executing.
type StepStartMsg struct {
	Event engine.StepEvent
}

// StepResultMsg reports that a step has finished execution.
type StepResultMsg struct {
	Event  engine.StepEvent
	Result report.StepResult
}

// RunDoneMsg carries the report of one finished scenario.
type RunDoneMsg struct {
	Report *report.Report
}

// AllDoneMsg signals that every scenario has finished.
type AllDoneMsg struct {
	Err error
}

// Model contains the Bubbletea state for the scenario progress view.
type Model struct {
	title     string
	entries   []components.StepEntry
	index     map[string]int
	total     int
	completed int
	scenarios int
	succeeded int
	aborts    []string
	finished  bool
	cancelled bool
	err       error
	cancel    context.CancelFunc
}

// NewModel constructs a model tracking every step of scenarios. Scenarios
// must already be normalized so that each step carries its id.
func NewModel(title string, scenarios []scenario.Scenario) Model {
	m := Model{
		title: title,
		index: make(map[string]int),
	}

	for _, sc := range scenarios {
		for _, step := range sc.Steps {
			m.ensureStep(sc.Name, step)
		}
	}

	return m
}

// WithCancel returns a copy of the model that invokes cancel when the user
// interrupts the view.
func (m Model) WithCancel(cancel context.CancelFunc) Model {
	m.cancel = cancel
	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return nil
}

// TotalSteps returns the total number of steps tracked by the model.
func (m Model) TotalSteps() int {
	return m.total
}

// CompletedSteps returns the number of steps with a terminal status.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether execution has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the run.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Entries returns the tracked steps in declaration order.
func (m Model) Entries() []components.StepEntry {
	return components.NewStepList(m.entries).Entries()
}

func key(scenarioName, stepID string) string {
	return scenarioName + "\x00" + stepID
}

func (m *Model) ensureStep(scenarioName string, step scenario.Step) int {
	k := key(scenarioName, step.ID)
	if i, exists := m.index[k]; exists {
		return i
	}
	m.entries = append(m.entries, components.StepEntry{
		Scenario: scenarioName,
		ID:       step.ID,
		Platform: string(step.Platform),
		Action:   string(step.Action),
		Status:   components.StatusPending,
	})
	m.total++
	m.index[k] = len(m.entries) - 1
	return len(m.entries) - 1
}

func (m *Model) setStatus(i int, status string) {
	entry := &m.entries[i]
	if !entry.Done() && status != components.StatusPending && status != components.StatusRunning {
		m.completed++
	}
	entry.Status = status
}

func (m Model) counts() (passed, failed, skipped int) {
	for _, entry := range m.entries {
		switch entry.Status {
		case components.StatusPassed:
			passed++
		case components.StatusFailed:
			failed++
		case components.StatusSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}
