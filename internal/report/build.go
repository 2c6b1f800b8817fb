package report

import (
	"time"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
)

// Option customises Build.
type Option func(*Report)

// WithRunID sets the run identifier.
func WithRunID(id string) Option {
	return func(r *Report) { r.RunID = id }
}

// WithTimes records when the run started and finished.
func WithTimes(started, finished time.Time) Option {
	return func(r *Report) {
		r.StartedAt = started
		r.FinishedAt = finished
	}
}

// WithAbort records that the run stopped before attempting a step.
func WithAbort(abort *Abort) Option {
	return func(r *Report) {
		if abort == nil {
			return
		}
		r.Abort = abort
		r.Success = false
		r.State = StateAborted
	}
}

// Build folds step results into a Report. It is pure: the same inputs give
// the same report. A run succeeds only when every declared step produced a
// successful result; an empty scenario succeeds vacuously.
func Build(scenarioName string, totalSteps int, results []StepResult, finalContext map[string]any, opts ...Option) Report {
	copied := append([]StepResult(nil), results...)

	success := len(copied) == totalSteps
	for _, res := range copied {
		success = success && res.Success
	}

	state := StateCompleted
	if len(copied) < totalSteps {
		state = StateAborted
	}

	ctx := scenario.CloneMap(finalContext)
	if ctx == nil {
		ctx = map[string]any{}
	}

	r := Report{
		ScenarioName: scenarioName,
		State:        state,
		Success:      success,
		TotalSteps:   totalSteps,
		Results:      copied,
		FinalContext: ctx,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}
