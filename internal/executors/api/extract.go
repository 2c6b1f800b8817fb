package api

import (
	"fmt"
	"net/http"

	"github.com/expr-lang/expr"
)

// evaluate runs an extract expression over the decoded response. The
// environment exposes body, status and headers (first value per name).
func evaluate(source string, body any, resp *http.Response) (any, error) {
	headers := make(map[string]any, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}
	env := map[string]any{
		"body":    body,
		"status":  resp.StatusCode,
		"headers": headers,
	}

	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile extract %q: %w", source, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate extract %q: %w", source, err)
	}
	return out, nil
}
