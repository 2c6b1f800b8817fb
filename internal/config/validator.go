package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

// validatorInstance configures and returns the shared validator used by the
// config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
			return scenario.Platform(fl.Field().String()).IsValid()
		})

		_ = v.RegisterValidation("var_name", func(fl validator.FieldLevel) bool {
			return scenario.IsValidVariableName(fl.Field().String())
		})

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return scenario.IsValidStepID(fl.Field().String())
		})

		_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			d, err := ParseDuration(fl.Field().String())
			return err == nil && d >= 0
		})

		validateInst = v
	})

	return validateInst
}

// ParseDuration accepts Go duration syntax or a plain number of seconds.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

// convertValidationError normalizes validator errors into scenario
// validation errors with yaml-style field paths.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		return scenarioerrors.NewValidationError(field, describe(ve), err)
	}

	return scenarioerrors.NewValidationError("document", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	// Drop the root struct name: "Document.steps[0].platform" -> "steps[0].platform".
	_, rest, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "platform":
		return fmt.Sprintf("unknown platform %q (expected one of %v)", fe.Value(), scenario.Platforms())
	case "var_name":
		return fmt.Sprintf("%q is not a valid variable name", fe.Value())
	case "step_id":
		return fmt.Sprintf("%q may only contain letters, digits, '.', '_' and '-'", fe.Value())
	case "duration":
		return fmt.Sprintf("%q is not a valid duration", fe.Value())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
