// Package report assembles and renders the outcome of a scenario run.
package report

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

// State is the lifecycle state of a run.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// StepResult records the outcome of one executed step. Skipped steps have no
// StepResult.
type StepResult struct {
	StepID      string
	Platform    scenario.Platform
	Action      scenario.Action
	Success     bool
	Duration    time.Duration
	OutputValue any
	Error       string
	ErrorKind   string

	// Err is the typed failure. It is not serialized.
	Err error
}

// NewFailure builds a failed result from err, classifying it for the report.
func NewFailure(step scenario.Step, duration time.Duration, err error) StepResult {
	return StepResult{
		StepID:    step.ID,
		Platform:  step.Platform,
		Action:    step.Action,
		Success:   false,
		Duration:  duration,
		Error:     err.Error(),
		ErrorKind: scenarioerrors.Kind(err),
		Err:       err,
	}
}

// NewSuccess builds a successful result.
func NewSuccess(step scenario.Step, duration time.Duration, output any) StepResult {
	return StepResult{
		StepID:      step.ID,
		Platform:    step.Platform,
		Action:      step.Action,
		Success:     true,
		Duration:    duration,
		OutputValue: output,
	}
}

type stepResultJSON struct {
	StepID      string            `json:"step_id"`
	Platform    scenario.Platform `json:"platform"`
	Action      scenario.Action   `json:"action"`
	DurationMS  int64             `json:"duration_ms"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	ErrorKind   string            `json:"error_kind,omitempty"`
	OutputValue any               `json:"output_value,omitempty"`
}

// MarshalJSON renders durations as whole milliseconds.
func (r StepResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(stepResultJSON{
		StepID:      r.StepID,
		Platform:    r.Platform,
		Action:      r.Action,
		DurationMS:  r.Duration.Milliseconds(),
		Success:     r.Success,
		Error:       r.Error,
		ErrorKind:   r.ErrorKind,
		OutputValue: r.OutputValue,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *StepResult) UnmarshalJSON(data []byte) error {
	var raw stepResultJSON
	if err := decodeExact(data, &raw); err != nil {
		return err
	}
	*r = StepResult{
		StepID:      raw.StepID,
		Platform:    raw.Platform,
		Action:      raw.Action,
		Success:     raw.Success,
		Duration:    time.Duration(raw.DurationMS) * time.Millisecond,
		OutputValue: raw.OutputValue,
		Error:       raw.Error,
		ErrorKind:   raw.ErrorKind,
	}
	return nil
}

// Abort records why a run stopped before attempting a step, such as a
// variable reference that could not be resolved.
type Abort struct {
	StepID    string `json:"step_id"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`

	Err error `json:"-"`
}

// NewAbort builds an Abort for step from err.
func NewAbort(stepID string, err error) *Abort {
	return &Abort{
		StepID:    stepID,
		Error:     err.Error(),
		ErrorKind: scenarioerrors.Kind(err),
		Err:       err,
	}
}

// Report is the immutable outcome of one run.
type Report struct {
	RunID        string
	ScenarioName string
	State        State
	Success      bool
	TotalSteps   int
	Results      []StepResult
	Abort        *Abort
	FinalContext map[string]any
	StartedAt    time.Time
	FinishedAt   time.Time
}

// ExecutedSteps is the number of steps that produced a result.
func (r Report) ExecutedSteps() int {
	return len(r.Results)
}

// Duration is the wall-clock time of the run.
func (r Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		var total time.Duration
		for _, res := range r.Results {
			total += res.Duration
		}
		return total
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FirstFailure returns the failing result, if any.
func (r Report) FirstFailure() (StepResult, bool) {
	for _, res := range r.Results {
		if !res.Success {
			return res, true
		}
	}
	return StepResult{}, false
}

type reportJSON struct {
	RunID         string         `json:"run_id,omitempty"`
	ScenarioName  string         `json:"scenario_name"`
	State         State          `json:"state"`
	Success       bool           `json:"success"`
	TotalSteps    int            `json:"total_steps"`
	ExecutedSteps int            `json:"executed_steps"`
	DurationMS    int64          `json:"duration_ms"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	Results       []StepResult   `json:"results"`
	Abort         *Abort         `json:"abort,omitempty"`
	FinalContext  map[string]any `json:"final_context"`
}

// MarshalJSON implements json.Marshaler.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:         r.RunID,
		ScenarioName:  r.ScenarioName,
		State:         r.State,
		Success:       r.Success,
		TotalSteps:    r.TotalSteps,
		ExecutedSteps: r.ExecutedSteps(),
		DurationMS:    r.Duration().Milliseconds(),
		Results:       r.Results,
		Abort:         r.Abort,
		FinalContext:  r.FinalContext,
	}
	if out.Results == nil {
		out.Results = []StepResult{}
	}
	if out.FinalContext == nil {
		out.FinalContext = map[string]any{}
	}
	if !r.StartedAt.IsZero() {
		started := r.StartedAt
		out.StartedAt = &started
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		out.FinishedAt = &finished
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Report) UnmarshalJSON(data []byte) error {
	var raw reportJSON
	if err := decodeExact(data, &raw); err != nil {
		return err
	}
	*r = Report{
		RunID:        raw.RunID,
		ScenarioName: raw.ScenarioName,
		State:        raw.State,
		Success:      raw.Success,
		TotalSteps:   raw.TotalSteps,
		Results:      raw.Results,
		Abort:        raw.Abort,
		FinalContext: raw.FinalContext,
	}
	if raw.StartedAt != nil {
		r.StartedAt = *raw.StartedAt
	}
	if raw.FinishedAt != nil {
		r.FinishedAt = *raw.FinishedAt
	}
	return nil
}

// decodeExact keeps numbers as json.Number so saved ids are not rounded
// through float64.
func decodeExact(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
