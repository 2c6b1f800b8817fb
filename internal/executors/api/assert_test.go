package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
)

func TestMatchBody(t *testing.T) {
	t.Parallel()

	body := map[string]any{
		"id":     float64(7),
		"status": "paid",
		"items":  []any{map[string]any{"sku": "A"}},
		"meta":   map[string]any{"region": "eu", "trace": "x1"},
	}

	cases := []struct {
		name     string
		expected any
		wantErr  bool
	}{
		{name: "subset of keys", expected: map[string]any{"status": "paid"}},
		{name: "integer equals float", expected: map[string]any{"id": 7}},
		{name: "nested subset", expected: map[string]any{"meta": map[string]any{"region": "eu"}}},
		{name: "list compared exactly", expected: map[string]any{"items": []any{map[string]any{"sku": "A"}}}},
		{name: "value differs", expected: map[string]any{"status": "pending"}, wantErr: true},
		{name: "key missing", expected: map[string]any{"refund": true}, wantErr: true},
		{name: "list differs", expected: map[string]any{"items": []any{}}, wantErr: true},
		{name: "type differs", expected: "paid", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := matchBody(tc.expected, body)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrBodyMismatch)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestExecuteExpectBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "status": "pending"})
	}))
	defer srv.Close()

	exec := New(testOptions())
	defer exec.Close()

	_, err := exec.Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":         srv.URL,
		"expect_body": map[string]any{"status": "paid"},
	})
	require.ErrorIs(t, err, ErrBodyMismatch)
	require.Contains(t, err.Error(), `-  "status": "paid"`)
	require.Contains(t, err.Error(), `+  "status": "pending"`)

	out, err := exec.Execute(context.Background(), scenario.ActionGet, map[string]any{
		"url":         srv.URL,
		"expect_body": map[string]any{"id": 7},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": int64(7), "status": "pending"}, out)
}
