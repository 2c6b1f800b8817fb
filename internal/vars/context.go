package vars

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

// referencePattern matches ${name}, ${name.field}, ${name.0} and the escaped
// form $${name}.
var referencePattern = regexp.MustCompile(`(\$?)\$\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_-]+)*)\}`)

// Context is the run-scoped variable store. A Context belongs to exactly one
// run and is only written by the runner goroutine, so it carries no lock.
type Context struct {
	values map[string]any
}

// New returns an empty context.
func New() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores value under name, replacing any previous value.
func (c *Context) Set(name string, value any) {
	c.values[name] = value
}

// Get returns the value stored under name.
func (c *Context) Get(name string) (any, bool) {
	value, ok := c.values[name]
	return value, ok
}

// Len returns the number of variables set.
func (c *Context) Len() int {
	return len(c.values)
}

// Snapshot returns a deep copy of every variable.
func (c *Context) Snapshot() map[string]any {
	out := scenario.CloneMap(c.values)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// Resolve substitutes variable references in params and returns a new
// mapping. The input is never mutated. A reference to an unset variable or
// an unreachable path fails with a ContextError naming the variable.
func (c *Context) Resolve(stepID string, params map[string]any) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	resolved, err := c.resolveValue(stepID, params)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

func (c *Context) resolveValue(stepID string, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return c.resolveString(stepID, v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			resolved, err := c.resolveValue(stepID, item)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := c.resolveValue(stepID, item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := c.resolveString(stepID, item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return scenario.CloneValue(value), nil
	}
}

func (c *Context) resolveString(stepID, input string) (any, error) {
	matches := referencePattern.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return input, nil
	}

	// A string that is exactly one reference keeps the referenced type.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(input) && matches[0][3] == matches[0][2] {
		path := input[matches[0][4]:matches[0][5]]
		value, err := c.lookup(stepID, path)
		if err != nil {
			return nil, err
		}
		return scenario.CloneValue(value), nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		last = m[1]

		path := input[m[4]:m[5]]
		if m[3] > m[2] {
			b.WriteString("${" + path + "}")
			continue
		}

		value, err := c.lookup(stepID, path)
		if err != nil {
			return nil, err
		}
		text, err := Stringify(value)
		if err != nil {
			return nil, scenarioerrors.NewContextError(path, stepID, fmt.Sprintf("cannot be rendered as text: %v", err))
		}
		b.WriteString(text)
	}
	b.WriteString(input[last:])
	return b.String(), nil
}

func (c *Context) lookup(stepID, path string) (any, error) {
	segments := strings.Split(path, ".")
	root := segments[0]

	current, ok := c.values[root]
	if !ok {
		return nil, scenarioerrors.NewContextError(root, stepID, "is not set")
	}

	for i, segment := range segments[1:] {
		next, ok := descend(current, segment)
		if !ok {
			walked := strings.Join(segments[:i+2], ".")
			return nil, scenarioerrors.NewContextError(root, stepID, fmt.Sprintf("has no value at %q", walked))
		}
		current = next
	}
	return current, nil
}

func descend(value any, segment string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		item, ok := v[segment]
		return item, ok
	case map[string]string:
		item, ok := v[segment]
		return item, ok
	case []any:
		idx, ok := index(segment, len(v))
		if !ok {
			return nil, false
		}
		return v[idx], true
	case []map[string]any:
		idx, ok := index(segment, len(v))
		if !ok {
			return nil, false
		}
		return v[idx], true
	case []string:
		idx, ok := index(segment, len(v))
		if !ok {
			return nil, false
		}
		return v[idx], true
	default:
		return nil, false
	}
}

func index(segment string, length int) (int, bool) {
	idx, err := strconv.Atoi(segment)
	if err != nil || idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}

// References returns the sorted, unique variable names referenced anywhere in
// params. Escaped references are ignored.
func References(params map[string]any) []string {
	seen := make(map[string]struct{})
	collectReferences(params, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectReferences(value any, seen map[string]struct{}) {
	switch v := value.(type) {
	case string:
		for _, m := range referencePattern.FindAllStringSubmatch(v, -1) {
			if m[1] != "" {
				continue
			}
			root, _, _ := strings.Cut(m[2], ".")
			seen[root] = struct{}{}
		}
	case []string:
		for _, item := range v {
			collectReferences(item, seen)
		}
	case map[string]any:
		for _, item := range v {
			collectReferences(item, seen)
		}
	case []any:
		for _, item := range v {
			collectReferences(item, seen)
		}
	}
}

// Stringify renders a context value for embedding inside a larger string.
// Records and sequences are rendered as compact JSON.
func Stringify(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
