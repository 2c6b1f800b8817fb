package scenario

import (
	"fmt"
	"strings"
	"time"

	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

// DefaultStepTimeout bounds a single step when nothing else is configured.
const DefaultStepTimeout = 60 * time.Second

// Settings captures run-wide execution parameters.
type Settings struct {
	StepTimeout time.Duration
}

// ApplyDefaults ensures settings remain within supported ranges.
func (s Settings) ApplyDefaults() Settings {
	clone := s
	if clone.StepTimeout <= 0 {
		clone.StepTimeout = DefaultStepTimeout
	}
	return clone
}

// Scenario is an ordered, named sequence of steps. Order is execution order.
type Scenario struct {
	Name        string
	Description string
	Settings    Settings
	Steps       []Step
}

// Normalize assigns positional identifiers to steps submitted without one.
// Identifiers are 1-indexed ("step-1", "step-2", ...).
func (s *Scenario) Normalize() {
	for i := range s.Steps {
		if strings.TrimSpace(s.Steps[i].ID) == "" {
			s.Steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
	}
}

// Validate ensures the scenario satisfies all invariants. A scenario without
// steps is valid.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return scenarioerrors.NewValidationError("name", "scenario name is required", nil)
	}
	if s.Settings.StepTimeout < 0 {
		return scenarioerrors.NewValidationError("settings.step_timeout", "step timeout must be non-negative", nil)
	}

	seen := make(map[string]int, len(s.Steps))
	for i, step := range s.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if err := step.validate(field); err != nil {
			return err
		}
		if prev, ok := seen[step.ID]; ok {
			return scenarioerrors.NewValidationError(field+".id", fmt.Sprintf("duplicate step id %q (also used by steps[%d])", step.ID, prev), nil)
		}
		seen[step.ID] = i
	}

	return nil
}

// Clone returns a deep copy of the scenario.
func (s Scenario) Clone() Scenario {
	steps := make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = step.Clone()
	}
	return Scenario{
		Name:        s.Name,
		Description: s.Description,
		Settings:    s.Settings,
		Steps:       steps,
	}
}

// StepTimeout returns the deadline that applies to step, preferring the
// step override over the scenario setting and fallback.
func (s Scenario) StepTimeout(step Step, fallback time.Duration) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	if s.Settings.StepTimeout > 0 {
		return s.Settings.StepTimeout
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultStepTimeout
}
