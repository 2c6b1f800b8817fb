// Package db runs SQL statements and schema checks for db-platform steps.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/executor"
	"github.com/alexisbeaulieu97/scenarist/internal/params"
)

// Capture modes for query steps.
const (
	CaptureFirst = "first"
	CaptureAll   = "all"
	CaptureCount = "count"
)

// ErrSchemaMismatch is returned when expected columns are missing.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Executor performs db steps through a Backend.
type Executor struct {
	backend Backend
}

// New returns an executor using backend.
func New(backend Backend) *Executor {
	return &Executor{backend: backend}
}

// NewFactory returns a factory creating an executor with its own pools per run.
func NewFactory() executor.Factory {
	return func() (executor.Executor, error) {
		return New(NewSQLBackend()), nil
	}
}

// Platform implements executor.Executor.
func (e *Executor) Platform() scenario.Platform {
	return scenario.PlatformDB
}

// Close releases database connections.
func (e *Executor) Close() error {
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context, action scenario.Action, p map[string]any) (any, error) {
	dsn, err := params.RequiredString(p, "connection_string")
	if err != nil {
		return nil, err
	}

	switch action {
	case scenario.ActionQuery:
		return e.query(ctx, dsn, p)
	case scenario.ActionValidateSchema:
		return e.validateSchema(ctx, dsn, p)
	default:
		return nil, fmt.Errorf("unsupported db action %q", action)
	}
}

func (e *Executor) query(ctx context.Context, dsn string, p map[string]any) (any, error) {
	statement, err := params.RequiredString(p, "query")
	if err != nil {
		return nil, err
	}
	rawArgs, ok := p["args"]
	if !ok {
		rawArgs = p["params"]
	}
	args, err := queryArgs(rawArgs)
	if err != nil {
		return nil, err
	}

	capture, ok, err := params.String(p, "capture")
	if err != nil {
		return nil, err
	}
	if !ok {
		capture = CaptureFirst
	}
	switch capture {
	case CaptureFirst, CaptureAll, CaptureCount:
	default:
		return nil, fmt.Errorf("capture must be one of first, all, count; got %q", capture)
	}

	res, err := e.backend.Query(ctx, dsn, statement, args)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	switch capture {
	case CaptureAll:
		out := make([]any, len(res.Rows))
		for i, row := range res.Rows {
			out[i] = row
		}
		return out, nil
	case CaptureCount:
		if !res.ReturnsRows {
			return res.RowsAffected, nil
		}
		return int64(len(res.Rows)), nil
	default:
		if len(res.Rows) == 0 {
			return nil, nil
		}
		return res.Rows[0], nil
	}
}

func (e *Executor) validateSchema(ctx context.Context, dsn string, p map[string]any) (any, error) {
	table, err := params.RequiredString(p, "table")
	if err != nil {
		return nil, err
	}
	expected, err := params.StringList(p, "expected_columns")
	if err != nil {
		return nil, err
	}

	actual, err := e.backend.Columns(ctx, dsn, table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	if len(actual) == 0 {
		return nil, fmt.Errorf("table %s not found or has no columns", table)
	}

	present := make(map[string]struct{}, len(actual))
	for _, column := range actual {
		present[strings.ToLower(column)] = struct{}{}
	}
	missing := make([]string, 0)
	for _, column := range expected {
		if _, ok := present[strings.ToLower(column)]; !ok {
			missing = append(missing, column)
		}
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: table %s is missing columns %s", ErrSchemaMismatch, table, strings.Join(missing, ", "))
	}

	return map[string]any{
		"table":           table,
		"valid":           true,
		"actual_columns":  toAnySlice(actual),
		"missing_columns": []any{},
	}, nil
}

// queryArgs turns a list into positional arguments and a mapping into named
// arguments.
func queryArgs(raw any) ([]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return append([]any(nil), v...), nil
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]any, 0, len(v))
		for _, name := range names {
			out = append(out, sql.Named(name, v[name]))
		}
		return out, nil
	default:
		return []any{v}, nil
	}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
