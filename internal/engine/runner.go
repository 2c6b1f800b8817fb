// Package engine runs scenarios step by step and produces reports.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/executor"
	"github.com/alexisbeaulieu97/scenarist/internal/logger"
	"github.com/alexisbeaulieu97/scenarist/internal/report"
	"github.com/alexisbeaulieu97/scenarist/internal/vars"
	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

// Runner executes scenarios strictly in declaration order and stops at the
// first failing step.
type Runner struct {
	registry    *executor.Registry
	logger      *logger.Logger
	stepTimeout time.Duration
	observer    Observer
	now         func() time.Time
	newID       func() string
}

// NewRunner returns a runner resolving executors from registry.
func NewRunner(registry *executor.Registry, opts ...Option) *Runner {
	r := &Runner{
		registry:    registry,
		logger:      logger.Nop(),
		stepTimeout: scenario.DefaultStepTimeout,
		observer:    nopObserver{},
		now:         time.Now,
		newID:       defaultID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = executor.NewRegistry()
	}
	return r
}

// Run executes sc and returns its report. A scenario that fails validation
// returns the ValidationError and runs no step. Executor failures, timeouts
// and cancellation produce a failed StepResult; an unresolvable variable
// reference stops the run before the step is attempted and is recorded as
// the report's Abort.
func (r *Runner) Run(ctx context.Context, sc scenario.Scenario) (*report.Report, error) {
	sc = sc.Clone()
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	run := &run{
		runner:    r,
		id:        r.newID(),
		scenario:  sc,
		state:     report.StatePending,
		values:    vars.New(),
		executors: make(map[scenario.Platform]executor.Executor),
	}
	run.log = r.logger.WithFields(map[string]any{
		"run_id":   run.id,
		"scenario": sc.Name,
	})

	return run.execute(ctx), nil
}

type run struct {
	runner    *Runner
	id        string
	scenario  scenario.Scenario
	state     report.State
	values    *vars.Context
	executors map[scenario.Platform]executor.Executor
	log       *logger.Logger
}

func (r *run) execute(ctx context.Context) *report.Report {
	started := r.runner.now()
	r.state = report.StateRunning
	r.log.WithFields(map[string]any{"total_steps": len(r.scenario.Steps)}).Info("scenario started")

	results := make([]report.StepResult, 0, len(r.scenario.Steps))
	var abort *report.Abort
	for i, step := range r.scenario.Steps {
		stepLog := r.log.WithFields(map[string]any{
			"step_id":  step.ID,
			"platform": string(step.Platform),
			"action":   string(step.Action),
		})

		// A step whose parameters cannot be resolved is never attempted.
		resolved, err := r.values.Resolve(step.ID, step.Params)
		if err != nil {
			abort = report.NewAbort(step.ID, err)
			r.state = report.StateAborted
			stepLog.Error(err, "step not attempted")
			break
		}

		event := StepEvent{
			RunID:    r.id,
			Scenario: r.scenario.Name,
			Index:    i,
			Total:    len(r.scenario.Steps),
			Step:     step,
		}
		r.runner.observer.OnStepStart(event)

		result := r.runStep(ctx, step, resolved)
		results = append(results, result)

		stepLog.Step(result.Success, result.Duration, result.Err, "step finished")
		r.runner.observer.OnStepResult(event, result)

		if !result.Success {
			if i < len(r.scenario.Steps)-1 {
				r.state = report.StateAborted
			}
			break
		}
	}
	if r.state == report.StateRunning {
		r.state = report.StateCompleted
	}

	r.closeExecutors()

	rep := report.Build(r.scenario.Name, len(r.scenario.Steps), results, r.values.Snapshot(),
		report.WithRunID(r.id),
		report.WithTimes(started, r.runner.now()),
		report.WithAbort(abort),
	)

	r.log.WithFields(map[string]any{
		"state":          string(r.state),
		"success":        rep.Success,
		"executed_steps": rep.ExecutedSteps(),
		"duration_ms":    rep.Duration().Milliseconds(),
	}).Info("scenario finished")

	return &rep
}

func (r *run) runStep(ctx context.Context, step scenario.Step, resolved map[string]any) report.StepResult {
	if err := ctx.Err(); err != nil {
		return report.NewFailure(step, 0, r.executorError(step, fmt.Errorf("run cancelled: %w", err)))
	}

	exec, err := r.executorFor(step.Platform)
	if err != nil {
		return report.NewFailure(step, 0, r.executorError(step, err))
	}

	timeout := r.scenario.StepTimeout(step, r.runner.stepTimeout)
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.runner.now()
	output, err := invoke(stepCtx, exec, step.Action, resolved)
	duration := r.runner.now().Sub(start)

	if err != nil {
		return report.NewFailure(step, duration, r.classify(ctx, stepCtx, step, timeout, err))
	}

	if step.OutputVariable == "" {
		return report.NewSuccess(step, duration, nil)
	}
	r.values.Set(step.OutputVariable, output)
	return report.NewSuccess(step, duration, scenario.CloneValue(output))
}

// classify maps a raw executor failure onto the error taxonomy.
func (r *run) classify(parent, stepCtx context.Context, step scenario.Step, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return r.executorError(step, fmt.Errorf("run cancelled: %w", parent.Err()))
	}
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return scenarioerrors.NewTimeoutError(step.ID, timeout)
	}

	var execErr *scenarioerrors.ExecutorError
	if errors.As(err, &execErr) {
		return err
	}
	return r.executorError(step, err)
}

func (r *run) executorError(step scenario.Step, err error) error {
	return scenarioerrors.NewExecutorError(step.ID, string(step.Platform), string(step.Action), err)
}

// executorFor instantiates the platform's executor on first use.
func (r *run) executorFor(platform scenario.Platform) (executor.Executor, error) {
	if exec, ok := r.executors[platform]; ok {
		return exec, nil
	}
	factory, err := r.runner.registry.Get(platform)
	if err != nil {
		return nil, err
	}
	exec, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create %s executor: %w", platform, err)
	}
	if exec == nil {
		return nil, fmt.Errorf("create %s executor: factory returned nil", platform)
	}
	r.executors[platform] = exec
	return exec, nil
}

func (r *run) closeExecutors() {
	for platform, exec := range r.executors {
		closer, ok := exec.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			r.log.WithFields(map[string]any{"platform": string(platform)}).Error(err, "close executor")
		}
	}
	r.executors = map[scenario.Platform]executor.Executor{}
}

type outcome struct {
	value any
	err   error
}

// invoke runs the executor in its own goroutine so a step that ignores ctx
// still yields at the deadline. Panics become errors.
func invoke(ctx context.Context, exec executor.Executor, action scenario.Action, params map[string]any) (any, error) {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("executor panicked: %v", p)}
			}
		}()
		value, err := exec.Execute(ctx, action, params)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		select {
		case out := <-done:
			return out.value, out.err
		default:
			return nil, ctx.Err()
		}
	}
}
