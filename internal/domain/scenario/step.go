package scenario

import (
	"fmt"
	"regexp"
	"time"

	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

var (
	stepIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	varNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Platform identifies the kind of system a step drives.
type Platform string

const (
	PlatformWeb Platform = "web"
	PlatformAPI Platform = "api"
	PlatformDB  Platform = "db"
)

// Action is a platform-specific verb.
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionClick    Action = "click"
	ActionType     Action = "type"
	ActionVerify   Action = "verify"
	ActionExtract  Action = "extract"

	ActionGet    Action = "GET"
	ActionPost   Action = "POST"
	ActionPut    Action = "PUT"
	ActionDelete Action = "DELETE"

	ActionQuery          Action = "query"
	ActionValidateSchema Action = "validate-schema"
)

var validActions = map[Platform][]Action{
	PlatformWeb: {ActionNavigate, ActionClick, ActionType, ActionVerify, ActionExtract},
	PlatformAPI: {ActionGet, ActionPost, ActionPut, ActionDelete},
	PlatformDB:  {ActionQuery, ActionValidateSchema},
}

// Platforms returns the closed set of supported platforms.
func Platforms() []Platform {
	return []Platform{PlatformWeb, PlatformAPI, PlatformDB}
}

// IsValid reports whether p is a recognised platform.
func (p Platform) IsValid() bool {
	_, ok := validActions[p]
	return ok
}

// ActionsFor returns the actions permitted for the platform.
func ActionsFor(p Platform) []Action {
	return append([]Action(nil), validActions[p]...)
}

// IsValidAction reports whether action is permitted for platform.
func IsValidAction(p Platform, action Action) bool {
	for _, candidate := range validActions[p] {
		if candidate == action {
			return true
		}
	}
	return false
}

// IsValidStepID reports whether id is an acceptable step identifier.
func IsValidStepID(id string) bool {
	return stepIDPattern.MatchString(id)
}

// IsValidVariableName reports whether name can be used as an output variable.
func IsValidVariableName(name string) bool {
	return varNamePattern.MatchString(name)
}

// Step is a single unit of work tagged with a platform and action. Steps are
// treated as immutable once a scenario has been submitted for a run.
type Step struct {
	ID             string
	Platform       Platform
	Action         Action
	Params         map[string]any
	OutputVariable string
	Timeout        time.Duration
}

// Validate ensures the step satisfies the schema rules. It is a local check
// that never runs mid-scenario.
func (s Step) Validate() error {
	return s.validate("step")
}

func (s Step) validate(field string) error {
	if s.ID == "" {
		return scenarioerrors.NewValidationError(field+".id", "step id is required", nil)
	}
	if !stepIDPattern.MatchString(s.ID) {
		return scenarioerrors.NewValidationError(field+".id", fmt.Sprintf("step id %q must match %s", s.ID, stepIDPattern), nil)
	}

	if s.Platform == "" {
		return scenarioerrors.NewValidationError(field+".platform", "platform is required", nil)
	}
	if !s.Platform.IsValid() {
		return scenarioerrors.NewValidationError(field+".platform", fmt.Sprintf("unknown platform %q (expected one of %v)", s.Platform, Platforms()), nil)
	}

	if s.Action == "" {
		return scenarioerrors.NewValidationError(field+".action", "action is required", nil)
	}
	if !IsValidAction(s.Platform, s.Action) {
		return scenarioerrors.NewValidationError(field+".action", fmt.Sprintf("action %q is not valid for platform %s (expected one of %v)", s.Action, s.Platform, validActions[s.Platform]), nil)
	}

	if s.OutputVariable != "" && !IsValidVariableName(s.OutputVariable) {
		return scenarioerrors.NewValidationError(field+".output_variable", fmt.Sprintf("output variable %q must match %s", s.OutputVariable, varNamePattern), nil)
	}

	if s.Timeout < 0 {
		return scenarioerrors.NewValidationError(field+".timeout", "timeout must be non-negative", nil)
	}

	return nil
}

// Clone returns a copy of the step whose params can be mutated freely.
func (s Step) Clone() Step {
	clone := s
	if s.Params != nil {
		clone.Params = CloneMap(s.Params)
	}
	return clone
}
