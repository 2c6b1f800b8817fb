package engine

import (
	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/report"
)

// StepEvent identifies a step within a run.
type StepEvent struct {
	RunID    string
	Scenario string
	Index    int
	Total    int
	Step     scenario.Step
}

// Observer receives step progress. Calls for one run are sequential; an
// observer shared by RunAll must be safe for concurrent use.
type Observer interface {
	OnStepStart(event StepEvent)
	OnStepResult(event StepEvent, result report.StepResult)
}

type nopObserver struct{}

func (nopObserver) OnStepStart(StepEvent)                     {}
func (nopObserver) OnStepResult(StepEvent, report.StepResult) {}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	StepStart  func(event StepEvent)
	StepResult func(event StepEvent, result report.StepResult)
}

// OnStepStart implements Observer.
func (o ObserverFuncs) OnStepStart(event StepEvent) {
	if o.StepStart != nil {
		o.StepStart(event)
	}
}

// OnStepResult implements Observer.
func (o ObserverFuncs) OnStepResult(event StepEvent, result report.StepResult) {
	if o.StepResult != nil {
		o.StepResult(event, result)
	}
}
