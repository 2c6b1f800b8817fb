package config

import (
	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

// ToScenario converts the document into a validated domain scenario.
func (d *Document) ToScenario() (scenario.Scenario, error) {
	stepTimeout, err := ParseDuration(d.Settings.StepTimeout)
	if err != nil {
		return scenario.Scenario{}, scenarioerrors.NewValidationError("settings.step_timeout", err.Error(), err)
	}

	sc := scenario.Scenario{
		Name:        d.Name,
		Description: d.Description,
		Settings:    scenario.Settings{StepTimeout: stepTimeout},
		Steps:       make([]scenario.Step, 0, len(d.Steps)),
	}

	for i, step := range d.Steps {
		timeout, err := ParseDuration(step.Timeout)
		if err != nil {
			return scenario.Scenario{}, scenarioerrors.NewValidationError(fieldForStep(i, "timeout"), err.Error(), err)
		}
		sc.Steps = append(sc.Steps, scenario.Step{
			ID:             step.ID,
			Platform:       scenario.Platform(step.Platform),
			Action:         scenario.Action(step.Action),
			Params:         scenario.CloneMap(step.Params),
			OutputVariable: step.OutputVariable,
			Timeout:        timeout,
		})
	}

	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return scenario.Scenario{}, err
	}
	return sc, nil
}

// LoadScenario loads path and converts it to a scenario.
func LoadScenario(path string) (scenario.Scenario, error) {
	doc, err := Load(path)
	if err != nil {
		return scenario.Scenario{}, err
	}
	return doc.ToScenario()
}
