package config

import (
	"gopkg.in/yaml.v3"
)

// Document is a scenario as written in a YAML or JSON file or submitted over
// HTTP.
type Document struct {
	Name        string   `yaml:"name" json:"name" validate:"required,max=200"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Settings    Settings `yaml:"settings,omitempty" json:"settings,omitempty"`
	Steps       []Step   `yaml:"steps" json:"steps" validate:"dive"`
}

// Settings holds run-wide parameters.
type Settings struct {
	// StepTimeout accepts a Go duration ("30s") or a number of seconds.
	StepTimeout string `yaml:"step_timeout,omitempty" json:"step_timeout,omitempty" validate:"omitempty,duration"`
}

// Step is one entry of the steps list.
type Step struct {
	ID             string         `yaml:"id,omitempty" json:"id,omitempty" validate:"omitempty,step_id"`
	Platform       string         `yaml:"platform" json:"platform" validate:"required,platform"`
	Action         string         `yaml:"action" json:"action" validate:"required"`
	Params         map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	OutputVariable string         `yaml:"output_variable,omitempty" json:"output_variable,omitempty" validate:"omitempty,var_name"`
	Timeout        string         `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,duration"`
}

// UnmarshalYAML accepts variable_output as an alias of output_variable.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type rawStep Step
	var base struct {
		rawStep        `yaml:",inline"`
		VariableOutput string `yaml:"variable_output"`
	}
	if err := value.Decode(&base); err != nil {
		return err
	}

	*s = Step(base.rawStep)
	if s.OutputVariable == "" {
		s.OutputVariable = base.VariableOutput
	}
	return nil
}
