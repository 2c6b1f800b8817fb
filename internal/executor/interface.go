package executor

import (
	"context"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
)

// Executor performs the actions of a single platform.
//
// Implementations should:
//   - Report the platform they serve via Platform()
//   - Treat params as already resolved; no variable references remain
//   - Honor ctx cancellation, since the runner enforces step deadlines
//     through it
//   - Optionally implement io.Closer to release browsers, connections or
//     clients when the run ends
type Executor interface {
	// Platform returns the platform this executor serves.
	Platform() scenario.Platform

	// Execute runs action with params and returns the step's output value.
	// Actions without a meaningful output return nil. Failures are returned
	// as (nil, err); the runner classifies and records them.
	Execute(ctx context.Context, action scenario.Action, params map[string]any) (any, error)
}

// Factory creates a fresh executor for one run. Runs never share executor
// instances created by a factory.
type Factory func() (Executor, error)

// Static returns a factory that always yields e. It is intended for tests and
// for stateless executors that are safe to share.
func Static(e Executor) Factory {
	return func() (Executor, error) {
		return e, nil
	}
}

// Func adapts a plain function to the Executor interface.
type Func struct {
	For scenario.Platform
	Fn  func(ctx context.Context, action scenario.Action, params map[string]any) (any, error)
}

// Platform implements Executor.
func (f Func) Platform() scenario.Platform {
	return f.For
}

// Execute implements Executor.
func (f Func) Execute(ctx context.Context, action scenario.Action, params map[string]any) (any, error) {
	return f.Fn(ctx, action, params)
}
