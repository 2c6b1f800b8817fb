package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Result is the outcome of one statement.
type Result struct {
	Rows []map[string]any
	// ReturnsRows is false for statements run only for their effect, in
	// which case RowsAffected is set instead of Rows.
	ReturnsRows  bool
	RowsAffected int64
}

// Backend runs statements against a database identified by a DSN.
type Backend interface {
	Query(ctx context.Context, dsn, statement string, args []any) (Result, error)
	Columns(ctx context.Context, dsn, table string) ([]string, error)
	Close() error
}

// SQLBackend implements Backend on database/sql. One pool is opened per DSN
// and kept until Close.
type SQLBackend struct {
	mu    sync.Mutex
	pools map[string]*pool
}

type pool struct {
	db     *sql.DB
	driver string
}

// NewSQLBackend returns a backend with no open connections.
func NewSQLBackend() *SQLBackend {
	return &SQLBackend{pools: make(map[string]*pool)}
}

// driverFor maps a connection string onto a registered driver name and the
// DSN that driver expects.
func driverFor(dsn string) (string, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return "sqlite", dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported connection string %q (expected postgres://, postgresql://, sqlite://, file: or :memory:)", redactDSN(dsn))
	}
}

func (b *SQLBackend) open(ctx context.Context, dsn string) (*pool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pools[dsn]; ok {
		return p, nil
	}

	driver, source, err := driverFor(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", redactDSN(dsn), err)
	}
	if driver == "sqlite" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", redactDSN(dsn), err)
	}

	p := &pool{db: db, driver: driver}
	b.pools[dsn] = p
	return p, nil
}

// Query implements Backend. Rows come back as column-name mappings with
// byte slices converted to strings. Statements that do not produce rows are
// executed for their rows-affected count.
func (b *SQLBackend) Query(ctx context.Context, dsn, statement string, args []any) (Result, error) {
	p, err := b.open(ctx, dsn)
	if err != nil {
		return Result{}, err
	}

	if !returnsRows(statement) {
		res, err := p.db.ExecContext(ctx, statement, args...)
		if err != nil {
			return Result{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = -1
		}
		return Result{RowsAffected: affected}, nil
	}

	rows, err := p.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return Result{}, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return Result{Rows: result, ReturnsRows: true}, nil
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"TABLE":    true,
	"PRAGMA":   true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
}

// returnsRows reports whether statement produces a result set, judged by its
// leading keyword or a RETURNING clause.
func returnsRows(statement string) bool {
	words := strings.FieldsFunc(strings.ToUpper(skipComments(statement)), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	if len(words) == 0 {
		return false
	}
	return rowKeywords[words[0]] || slices.Contains(words, "RETURNING")
}

func skipComments(statement string) string {
	s := statement
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			_, rest, ok := strings.Cut(s, "\n")
			if !ok {
				return ""
			}
			s = rest
		case strings.HasPrefix(s, "/*"):
			_, rest, ok := strings.Cut(s, "*/")
			if !ok {
				return ""
			}
			s = rest
		default:
			return s
		}
	}
}

// Columns implements Backend.
func (b *SQLBackend) Columns(ctx context.Context, dsn, table string) ([]string, error) {
	p, err := b.open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	switch p.driver {
	case "postgres":
		schema, name := "public", table
		if before, after, ok := strings.Cut(table, "."); ok {
			schema, name = before, after
		}
		rows, err = p.db.QueryContext(ctx,
			`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`,
			schema, name)
	default:
		rows, err = p.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}

// Close closes every pool opened by the backend.
func (b *SQLBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for dsn, p := range b.pools {
		if err := p.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", redactDSN(dsn), err)
		}
		delete(b.pools, dsn)
	}
	return firstErr
}

func normalizeValue(v any) any {
	switch typed := v.(type) {
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// redactDSN hides the password component of URL-style connection strings.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPassword := strings.Cut(creds, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":xxxxx@" + host
}
