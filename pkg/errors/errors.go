package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind labels used in reports to classify a failed step.
const (
	KindValidation = "validation"
	KindContext    = "context"
	KindExecutor   = "executor"
	KindTimeout    = "timeout"
)

// ParseError represents a scenario document parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures a malformed scenario or step schema. It is raised
// before any step runs and rejects the whole submission.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ContextError reports a variable reference that could not be resolved.
type ContextError struct {
	Variable string
	StepID   string
	Reason   string
}

// NewContextError constructs a ContextError for the given variable and step.
func NewContextError(variable, stepID, reason string) error {
	return &ContextError{Variable: variable, StepID: stepID, Reason: reason}
}

func (e *ContextError) Error() string {
	if e == nil {
		return ""
	}
	reason := e.Reason
	if reason == "" {
		reason = "is not set"
	}
	if e.StepID != "" {
		return fmt.Sprintf("context error on step %s: variable %q %s", e.StepID, e.Variable, reason)
	}
	return fmt.Sprintf("context error: variable %q %s", e.Variable, reason)
}

// ExecutorError represents a platform-specific failure while executing a step.
type ExecutorError struct {
	StepID   string
	Platform string
	Action   string
	Err      error
}

// NewExecutorError constructs an ExecutorError.
func NewExecutorError(stepID, platform, action string, err error) error {
	return &ExecutorError{StepID: stepID, Platform: platform, Action: action, Err: err}
}

func (e *ExecutorError) Error() string {
	if e == nil {
		return ""
	}
	target := e.Platform
	if e.Action != "" {
		target = fmt.Sprintf("%s %s", e.Platform, e.Action)
	}
	switch {
	case e.StepID != "" && target != "":
		return fmt.Sprintf("executor error on step %s (%s): %v", e.StepID, target, e.Err)
	case e.StepID != "":
		return fmt.Sprintf("executor error on step %s: %v", e.StepID, e.Err)
	default:
		return fmt.Sprintf("executor error: %v", e.Err)
	}
}

// Unwrap exposes the root error.
func (e *ExecutorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TimeoutError marks a step that exceeded its deadline.
type TimeoutError struct {
	StepID  string
	Timeout time.Duration
}

// NewTimeoutError constructs a TimeoutError.
func NewTimeoutError(stepID string, timeout time.Duration) error {
	return &TimeoutError{StepID: stepID, Timeout: timeout}
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("timeout: step %s exceeded %s", e.StepID, e.Timeout)
}

// Kind classifies err into one of the report error kinds. Unknown errors are
// treated as executor failures.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var timeoutErr *TimeoutError
	if stderrors.As(err, &timeoutErr) {
		return KindTimeout
	}
	var contextErr *ContextError
	if stderrors.As(err, &contextErr) {
		return KindContext
	}
	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) {
		return KindValidation
	}
	return KindExecutor
}
