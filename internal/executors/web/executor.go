// Package web drives a browser for web-platform steps.
package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/executor"
	"github.com/alexisbeaulieu97/scenarist/internal/params"
	"github.com/alexisbeaulieu97/scenarist/pkg/diff"
)

var (
	// ErrNotVisible is returned by verify when the element is absent or hidden.
	ErrNotVisible = errors.New("element is not visible")
	// ErrTextMismatch is returned by extract when the text differs from the
	// expected param.
	ErrTextMismatch = errors.New("extracted text does not match")
)

// Executor maps web steps onto Driver commands.
type Executor struct {
	driver Driver
}

// New returns an executor backed by driver.
func New(driver Driver) *Executor {
	return &Executor{driver: driver}
}

// NewFactory returns a factory that creates one Chrome-backed executor per run.
func NewFactory(opts ChromeOptions) executor.Factory {
	return func() (executor.Executor, error) {
		return New(NewChromeDriver(opts)), nil
	}
}

// Platform implements executor.Executor.
func (e *Executor) Platform() scenario.Platform {
	return scenario.PlatformWeb
}

// Execute implements executor.Executor. Only extract produces an output.
func (e *Executor) Execute(ctx context.Context, action scenario.Action, p map[string]any) (any, error) {
	cmd, err := buildCommand(action, p)
	if err != nil {
		return nil, err
	}

	outcome, err := e.driver.Perform(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", action, cmd.Target, err)
	}

	switch action {
	case scenario.ActionVerify:
		if !outcome.OK {
			return nil, fmt.Errorf("verify %s: %w", cmd.Target, ErrNotVisible)
		}
		return nil, nil
	case scenario.ActionExtract:
		want, ok, err := params.String(p, "expected")
		if err != nil {
			return nil, err
		}
		if ok {
			if delta := diff.Unified(want, outcome.Extracted, "expected", cmd.Target); delta != "" {
				return nil, fmt.Errorf("extract %s: %w\n%s", cmd.Target, ErrTextMismatch, delta)
			}
		}
		return outcome.Extracted, nil
	default:
		return nil, nil
	}
}

// Close releases the browser.
func (e *Executor) Close() error {
	if e.driver == nil {
		return nil
	}
	return e.driver.Close()
}

func buildCommand(action scenario.Action, p map[string]any) (Command, error) {
	cmd := Command{Action: action}
	var err error

	switch action {
	case scenario.ActionNavigate:
		cmd.Target, err = params.RequiredString(p, "url")
	case scenario.ActionClick, scenario.ActionVerify, scenario.ActionExtract:
		cmd.Target, err = params.RequiredString(p, "selector", "target")
	case scenario.ActionType:
		if cmd.Target, err = params.RequiredString(p, "selector", "target"); err != nil {
			break
		}
		// Typing an empty string is allowed.
		cmd.Value, _, err = params.String(p, "value", "text")
	default:
		err = fmt.Errorf("unsupported web action %q", action)
	}
	if err != nil {
		return Command{}, err
	}
	return cmd, nil
}
