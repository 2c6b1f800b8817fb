package config

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

// requiredParams lists, per platform and action, the parameters a step must
// carry. Each entry is a set of accepted aliases.
var requiredParams = map[scenario.Platform]map[scenario.Action][][]string{
	scenario.PlatformWeb: {
		scenario.ActionNavigate: {{"url"}},
		scenario.ActionClick:    {{"selector", "target"}},
		scenario.ActionType:     {{"selector", "target"}},
		scenario.ActionVerify:   {{"selector", "target"}},
		scenario.ActionExtract:  {{"selector", "target"}},
	},
	scenario.PlatformAPI: {
		scenario.ActionGet:    {{"url"}},
		scenario.ActionPost:   {{"url"}},
		scenario.ActionPut:    {{"url"}},
		scenario.ActionDelete: {{"url"}},
	},
	scenario.PlatformDB: {
		scenario.ActionQuery:          {{"connection_string"}, {"query"}},
		scenario.ActionValidateSchema: {{"connection_string"}, {"table"}},
	},
}

// Validate performs structural and cross-field validation of a document.
func Validate(doc *Document) error {
	if doc == nil {
		return scenarioerrors.NewValidationError("document", "document is nil", nil)
	}

	if err := validatorInstance().Struct(doc); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(doc.Steps))
	for i, step := range doc.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
		if step.ID == "" {
			continue
		}
		if prev, ok := seen[step.ID]; ok {
			return scenarioerrors.NewValidationError(fieldForStep(i, "id"), fmt.Sprintf("duplicate step id %q (also used by steps[%d])", step.ID, prev), nil)
		}
		seen[step.ID] = i
	}
	return nil
}

func validateStep(index int, step Step) error {
	platform := scenario.Platform(step.Platform)
	action := scenario.Action(step.Action)
	if !scenario.IsValidAction(platform, action) {
		return scenarioerrors.NewValidationError(fieldForStep(index, "action"),
			fmt.Sprintf("action %q is not valid for platform %s (expected one of %v)", step.Action, platform, scenario.ActionsFor(platform)), nil)
	}

	for _, aliases := range requiredParams[platform][action] {
		if !hasAny(step.Params, aliases) {
			return scenarioerrors.NewValidationError(fieldForStep(index, "params."+aliases[0]),
				fmt.Sprintf("%s is required for %s %s", strings.Join(aliases, " or "), platform, action), nil)
		}
	}
	return nil
}

func hasAny(params map[string]any, keys []string) bool {
	for _, key := range keys {
		value, ok := params[key]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}
