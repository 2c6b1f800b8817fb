package components

import "time"

// Step statuses as shown by the progress view.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	// StatusSkipped marks a step left unexecuted after a failure or abort.
	StatusSkipped = "skipped"
)

// StepEntry is one row of the step list.
type StepEntry struct {
	Scenario string
	ID       string
	Platform string
	Action   string
	Status   string
	Duration time.Duration
	Message  string
}

// Done reports whether the entry reached a terminal status.
func (e StepEntry) Done() bool {
	return e.Status == StatusPassed || e.Status == StatusFailed || e.Status == StatusSkipped
}

// StepList groups step entries by scenario, preserving declaration order.
type StepList struct {
	entries []StepEntry
}

// NewStepList constructs a step list component.
func NewStepList(entries []StepEntry) StepList {
	clone := make([]StepEntry, len(entries))
	copy(clone, entries)
	return StepList{entries: clone}
}

// Entries returns the ordered step entries.
func (s StepList) Entries() []StepEntry {
	clone := make([]StepEntry, len(s.entries))
	copy(clone, s.entries)
	return clone
}

// Groups returns the entries split by scenario, in first-seen order.
func (s StepList) Groups() [][]StepEntry {
	var groups [][]StepEntry
	index := make(map[string]int)
	for _, entry := range s.entries {
		i, ok := index[entry.Scenario]
		if !ok {
			i = len(groups)
			index[entry.Scenario] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], entry)
	}
	return groups
}
