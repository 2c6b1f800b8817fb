// Package params coerces resolved step parameters into the concrete types
// executors need. Parameters arrive JSON-shaped, so numbers may be float64,
// int or int64 depending on whether they came from YAML, JSON or a previous
// step's output.
package params

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/scenarist/internal/vars"
)

// ErrMissing is returned when a required parameter is absent or empty.
var ErrMissing = errors.New("missing required parameter")

// String returns the first non-empty string stored under one of keys. Keys
// after the first are treated as aliases.
func String(p map[string]any, keys ...string) (string, bool, error) {
	for _, key := range keys {
		raw, ok := p[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if v == "" {
				continue
			}
			return v, true, nil
		case map[string]any, []any:
			return "", false, fmt.Errorf("parameter %q must be a scalar, got %T", key, raw)
		default:
			text, err := vars.Stringify(v)
			if err != nil {
				return "", false, fmt.Errorf("parameter %q: %w", key, err)
			}
			return text, true, nil
		}
	}
	return "", false, nil
}

// RequiredString is String that fails with ErrMissing when no key is set.
func RequiredString(p map[string]any, keys ...string) (string, error) {
	value, ok, err := String(p, keys...)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissing, strings.Join(keys, "|"))
	}
	return value, nil
}

// Int converts a numeric or numeric-string parameter.
func Int(p map[string]any, key string) (int, bool, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	value, err := ToInt(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parameter %q: %w", key, err)
	}
	return value, true, nil
}

// ToInt converts a JSON-shaped number to int. Fractional values are rejected.
func ToInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	case float32:
		return ToInt(float64(v))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", raw)
	}
}

// IntList accepts a single integer or a list of integers.
func IntList(p map[string]any, key string) ([]int, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, isList := raw.([]any)
	if !isList {
		value, err := ToInt(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		return []int{value}, nil
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		value, err := ToInt(item)
		if err != nil {
			return nil, fmt.Errorf("parameter %q[%d]: %w", key, i, err)
		}
		out = append(out, value)
	}
	return out, nil
}

// StringList accepts a list of scalars and renders each as a string.
func StringList(p map[string]any, key string) ([]string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			text, err := vars.Stringify(item)
			if err != nil {
				return nil, fmt.Errorf("parameter %q[%d]: %w", key, i, err)
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q must be a list, got %T", key, raw)
	}
}

// StringMap accepts a mapping of scalars, such as headers or query values.
func StringMap(p map[string]any, key string) (map[string]string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = item
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			text, err := vars.Stringify(item)
			if err != nil {
				return nil, fmt.Errorf("parameter %q.%s: %w", key, k, err)
			}
			out[k] = text
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q must be a mapping, got %T", key, raw)
	}
}

// Map returns a nested mapping parameter.
func Map(p map[string]any, key string) (map[string]any, bool, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	m, isMap := raw.(map[string]any)
	if !isMap {
		return nil, false, fmt.Errorf("parameter %q must be a mapping, got %T", key, raw)
	}
	return m, true, nil
}
