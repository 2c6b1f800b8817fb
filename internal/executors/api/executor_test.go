package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/logger"
	"github.com/alexisbeaulieu97/scenarist/internal/params"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryWaitMin = time.Millisecond
	opts.RetryWaitMax = 5 * time.Millisecond
	opts.UserAgent = "scenarist/test"
	return opts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestExecuteGetReturnsDecodedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/42", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("view"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "scenarist/test", r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, map[string]any{"id": 42, "name": "ada"})
	}))
	defer srv.Close()

	exec := New(testOptions())
	defer exec.Close()

	out, err := exec.Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":     srv.URL + "/users/42",
		"query":   map[string]any{"view": "full"},
		"headers": map[string]any{"Authorization": "Bearer abc"},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": int64(42), "name": "ada"}, out)
	require.Equal(t, scenario.PlatformAPI, exec.Platform())
}

func TestExecutePostSendsJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "ada", payload["name"])
		writeJSON(w, http.StatusCreated, map[string]any{"id": 7})
	}))
	defer srv.Close()

	out, err := New(testOptions()).Execute(context.Background(), scenario.ActionPost, map[string]any{
		"url":           srv.URL,
		"body":          map[string]any{"name": "ada"},
		"expect_status": float64(201),
		"extract":       "body.id",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), out)
}

func TestExecuteMethodOverrideAndTextBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "raw text", string(data))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("patched"))
	}))
	defer srv.Close()

	out, err := New(testOptions()).Execute(context.Background(), scenario.ActionPut, map[string]any{
		"url":    srv.URL,
		"method": "patch",
		"body":   "raw text",
	})
	require.NoError(t, err)
	require.Equal(t, "patched", out)
}

func TestExecuteUnexpectedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": strings.Repeat("x", 2000)})
	}))
	defer srv.Close()

	_, err := New(testOptions()).Execute(context.Background(), scenario.ActionDelete, map[string]any{"url": srv.URL + "/users/1"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Status)
	require.Equal(t, http.MethodDelete, statusErr.Method)
	require.LessOrEqual(t, len(statusErr.Body), maxErrorBody+3)
}

func TestExecuteExpectStatusList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	out, err := New(testOptions()).Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":           srv.URL,
		"expect_status": []any{200, 404},
	})
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestExecuteRetriesServerErrorsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer srv.Close()

	buf := &bytes.Buffer{}
	log, err := logger.New(logger.Options{Level: "debug", Writer: buf})
	require.NoError(t, err)

	opts := testOptions()
	opts.Logger = log
	out, err := New(opts).Execute(context.Background(), scenario.ActionGet, map[string]any{"url": srv.URL})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ok": true}, out)
	require.EqualValues(t, 2, calls.Load())
	require.Contains(t, buf.String(), `"component":"http"`)
}

func TestExecuteRetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.RetryMax = 0
	_, err := New(opts).Execute(context.Background(), scenario.ActionGet, map[string]any{"url": srv.URL})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.Status)
	require.EqualValues(t, 1, calls.Load())
}

func TestExecuteSchemaValidation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "not-a-number"})
	}))
	defer srv.Close()

	schema := map[string]any{
		"type":       "object",
		"required":   []any{"id"},
		"properties": map[string]any{"id": map[string]any{"type": "integer", "minimum": 1}},
	}
	_, err := New(testOptions()).Execute(context.Background(), scenario.ActionGet, map[string]any{"url": srv.URL, "schema": schema})
	require.ErrorContains(t, err, "does not match schema")
	require.ErrorContains(t, err, "/id")
}

func TestExecuteSchemaAccepts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []any{map[string]any{"id": 1}})
	}))
	defer srv.Close()

	schema := map[string]any{"type": "array", "minItems": 1}
	out, err := New(testOptions()).Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":     srv.URL,
		"schema":  schema,
		"extract": "len(body) == 1 && status == 200 ? body[0].id : -1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), out)
}

func TestExecuteExtractHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := New(testOptions()).Execute(context.Background(), scenario.ActionDelete, map[string]any{
		"url":     srv.URL,
		"extract": `headers["X-Request-Id"]`,
	})
	require.NoError(t, err)
	require.Equal(t, "req-1", out)
}

func TestExecuteInvalidParams(t *testing.T) {
	t.Parallel()

	exec := New(testOptions())
	ctx := context.Background()

	_, err := exec.Execute(ctx, scenario.ActionGet, map[string]any{})
	require.ErrorIs(t, err, params.ErrMissing)

	_, err = exec.Execute(ctx, scenario.ActionGet, map[string]any{"url": "/relative"})
	require.ErrorContains(t, err, "must be absolute")

	_, err = exec.Execute(ctx, scenario.ActionGet, map[string]any{"url": "http://x", "headers": "bad"})
	require.ErrorContains(t, err, "headers")
}

func TestExecuteHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(testOptions()).Execute(ctx, scenario.ActionGet, map[string]any{"url": srv.URL})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsJSON(t *testing.T) {
	t.Parallel()

	require.True(t, isJSON("application/json"))
	require.True(t, isJSON("application/problem+json; charset=utf-8"))
	require.False(t, isJSON("text/html"))
	require.False(t, isJSON(""))
}

func TestExecuteBadExtractExpression(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1})
	}))
	defer srv.Close()

	_, err := New(testOptions()).Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":     srv.URL,
		"extract": "body.(",
	})
	require.ErrorContains(t, err, "compile extract")
}

func TestExecuteKeepsLargeIntegers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 9007199254740993, "ratio": 0.25, "tags": [1, 2.5]}`))
	}))
	defer srv.Close()

	out, err := New(testOptions()).Execute(context.Background(), scenario.ActionGet, map[string]any{"url": srv.URL})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"id":    int64(9007199254740993),
		"ratio": 0.25,
		"tags":  []any{int64(1), 2.5},
	}, out)

	id, err := New(testOptions()).Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":     srv.URL,
		"extract": "body.id",
	})
	require.NoError(t, err)
	require.Equal(t, int64(9007199254740993), id)
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ctype   string
		raw     string
		want    any
		wantErr string
	}{
		{name: "empty", ctype: "application/json", raw: "  ", want: nil},
		{name: "text", ctype: "text/plain", raw: "42", want: "42"},
		{name: "integer", ctype: "application/json", raw: "18446744073709551615", want: float64(18446744073709551615)},
		{name: "negative", ctype: "application/json", raw: "-12", want: int64(-12)},
		{name: "exponent", ctype: "application/json", raw: "1e3", want: float64(1000)},
		{name: "nested", ctype: "application/json", raw: `[{"n": 3}]`, want: []any{map[string]any{"n": int64(3)}}},
		{name: "trailing data", ctype: "application/json", raw: `{"a": 1} {"b": 2}`, wantErr: "unexpected data"},
		{name: "malformed", ctype: "application/json", raw: `{"a":`, wantErr: "decode json response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(tt.ctype, []byte(tt.raw))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExecuteGetDropsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.Empty(t, data)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer srv.Close()

	out, err := New(testOptions()).Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":  srv.URL,
		"body": map[string]any{"ignored": true},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ok": true}, out)
}

func TestExecuteResponseTooLarge(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.MaxResponseBytes = 32
	_, err := New(opts).Execute(context.Background(), scenario.ActionGet, map[string]any{"url": srv.URL})
	require.ErrorIs(t, err, ErrResponseTooLarge)

	opts.MaxResponseBytes = 64
	out, err := New(opts).Execute(context.Background(), scenario.ActionGet, map[string]any{"url": srv.URL})
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("x", 64), out)
}
