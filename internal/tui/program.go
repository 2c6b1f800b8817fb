package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/scenarist/internal/engine"
	"github.com/alexisbeaulieu97/scenarist/internal/report"
)

// Observer forwards engine progress to a Bubbletea program.
type Observer struct {
	send func(tea.Msg)
}

// NewObserver returns an observer delivering messages through send,
// typically (*tea.Program).Send.
func NewObserver(send func(tea.Msg)) Observer {
	return Observer{send: send}
}

// OnStepStart implements engine.Observer.
func (o Observer) OnStepStart(event engine.StepEvent) {
	o.send(StepStartMsg{Event: event})
}

// OnStepResult implements engine.Observer.
func (o Observer) OnStepResult(event engine.StepEvent, result report.StepResult) {
	o.send(StepResultMsg{Event: event, Result: result})
}

// RunFunc executes scenarios, reporting progress to obs.
type RunFunc func(ctx context.Context, obs engine.Observer) ([]*report.Report, error)

// Execute runs fn while displaying m on out. Interrupting the view cancels
// the context passed to fn. The reports and error returned by fn are passed
// through.
func Execute(ctx context.Context, out io.Writer, m Model, fn RunFunc) ([]*report.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(m.WithCancel(cancel), tea.WithOutput(out))

	var (
		reports []*report.Report
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reports, runErr = fn(ctx, NewObserver(program.Send))
		for _, rep := range reports {
			program.Send(RunDoneMsg{Report: rep})
		}
		program.Send(AllDoneMsg{Err: runErr})
	}()

	_, programErr := program.Run()
	if programErr != nil {
		cancel()
	}
	<-done

	if programErr != nil && runErr == nil {
		return reports, programErr
	}
	return reports, runErr
}
