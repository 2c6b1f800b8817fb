// Package diff renders line-oriented differences between expected and
// actual content for assertion failures.
package diff

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultMaxLines bounds the rendered diff so it stays readable inside an
// error message.
const DefaultMaxLines = 200

// Unified returns a unified-style diff of expected against actual, or an
// empty string when they are identical. Output is truncated at
// DefaultMaxLines.
func Unified(expected, actual, expectedLabel, actualLabel string) string {
	return UnifiedN(expected, actual, expectedLabel, actualLabel, DefaultMaxLines)
}

// UnifiedN is Unified with an explicit line limit. A limit of zero or less
// disables truncation.
func UnifiedN(expected, actual, expectedLabel, actualLabel string, maxLines int) string {
	if expected == actual {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	out := []string{"--- " + expectedLabel, "+++ " + actualLabel}
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			out = append(out, prefix+line)
		}
	}

	if maxLines > 0 && len(out) > maxLines {
		hidden := len(out) - maxLines
		out = append(out[:maxLines], fmt.Sprintf("... (%d more lines)", hidden))
	}
	return strings.Join(out, "\n") + "\n"
}

// Values diffs the canonical renderings of two JSON-shaped values. Strings
// are compared verbatim; everything else is rendered as indented JSON with
// sorted keys, so 42 and 42.0 compare equal.
func Values(expected, actual any) (string, error) {
	exp, err := Canonical(expected)
	if err != nil {
		return "", fmt.Errorf("render expected value: %w", err)
	}
	act, err := Canonical(actual)
	if err != nil {
		return "", fmt.Errorf("render actual value: %w", err)
	}
	return Unified(exp, act, "expected", "actual"), nil
}

// Canonical renders v for comparison.
func Canonical(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
