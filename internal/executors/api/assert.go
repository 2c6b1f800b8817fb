package api

import (
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/scenarist/pkg/diff"
)

// ErrBodyMismatch is returned when the response does not match expect_body.
var ErrBodyMismatch = errors.New("response body does not match expect_body")

// matchBody compares body against expected. Objects in expected act as
// patterns: only the keys they name are compared, recursively. Lists and
// scalars must match exactly.
func matchBody(expected, body any) error {
	delta, err := diff.Values(expected, project(body, expected))
	if err != nil {
		return fmt.Errorf("compare response body: %w", err)
	}
	if delta == "" {
		return nil
	}
	return fmt.Errorf("%w\n%s", ErrBodyMismatch, delta)
}

func project(actual, expected any) any {
	pattern, ok := expected.(map[string]any)
	if !ok {
		return actual
	}
	object, ok := actual.(map[string]any)
	if !ok {
		return actual
	}

	out := make(map[string]any, len(pattern))
	for key, want := range pattern {
		if got, present := object[key]; present {
			out[key] = project(got, want)
		}
	}
	return out
}
