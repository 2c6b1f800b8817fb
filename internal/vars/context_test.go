package vars

import (
	"testing"

	"github.com/stretchr/testify/require"

	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

func TestContextSetGetOverwrite(t *testing.T) {
	t.Parallel()

	ctx := New()
	require.Equal(t, 0, ctx.Len())

	ctx.Set("token", "first")
	ctx.Set("token", "second")

	value, ok := ctx.Get("token")
	require.True(t, ok)
	require.Equal(t, "second", value)
	require.Equal(t, 1, ctx.Len())

	_, ok = ctx.Get("missing")
	require.False(t, ok)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	ctx := New()
	ctx.Set("token", "abc")
	ctx.Set("user_id", float64(42))
	ctx.Set("active", true)
	ctx.Set("user", map[string]any{
		"name":  "ada",
		"roles": []any{"admin", "dev"},
	})
	ctx.Set("rows", []map[string]any{{"id": int64(7)}})

	tests := []struct {
		name   string
		params map[string]any
		want   map[string]any
	}{
		{
			name:   "no references",
			params: map[string]any{"url": "https://example.test", "n": 3},
			want:   map[string]any{"url": "https://example.test", "n": 3},
		},
		{
			name:   "whole value keeps type",
			params: map[string]any{"id": "${user_id}", "flag": "${active}"},
			want:   map[string]any{"id": float64(42), "flag": true},
		},
		{
			name:   "embedded reference stringified",
			params: map[string]any{"url": "/users/${user_id}?t=${token}"},
			want:   map[string]any{"url": "/users/42?t=abc"},
		},
		{
			name:   "record embedded as json",
			params: map[string]any{"text": "user=${user}"},
			want:   map[string]any{"text": `user={"name":"ada","roles":["admin","dev"]}`},
		},
		{
			name:   "dotted paths",
			params: map[string]any{"name": "${user.name}", "role": "${user.roles.1}", "row": "${rows.0.id}"},
			want:   map[string]any{"name": "ada", "role": "dev", "row": int64(7)},
		},
		{
			name: "nested structures",
			params: map[string]any{
				"headers": map[string]any{"Authorization": "Bearer ${token}"},
				"args":    []any{"${user_id}", "plain"},
			},
			want: map[string]any{
				"headers": map[string]any{"Authorization": "Bearer abc"},
				"args":    []any{float64(42), "plain"},
			},
		},
		{
			name:   "escaped reference is literal",
			params: map[string]any{"text": "$${token} and ${token}", "raw": "$${missing}"},
			want:   map[string]any{"text": "${token} and abc", "raw": "${missing}"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ctx.Resolve("step", tt.params)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMissingVariable(t *testing.T) {
	t.Parallel()

	ctx := New()
	ctx.Set("user", map[string]any{"name": "ada"})

	tests := []struct {
		name     string
		params   map[string]any
		variable string
	}{
		{name: "unset whole value", params: map[string]any{"id": "${user_id}"}, variable: "user_id"},
		{name: "unset embedded", params: map[string]any{"url": "/u/${user_id}"}, variable: "user_id"},
		{name: "unset nested", params: map[string]any{"h": map[string]any{"a": []any{"${token}"}}}, variable: "token"},
		{name: "unreachable path", params: map[string]any{"x": "${user.email}"}, variable: "user"},
		{name: "index on record", params: map[string]any{"x": "${user.name.0}"}, variable: "user"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ctx.Resolve("s2", tt.params)
			var contextErr *scenarioerrors.ContextError
			require.ErrorAs(t, err, &contextErr)
			require.Equal(t, tt.variable, contextErr.Variable)
			require.Equal(t, "s2", contextErr.StepID)
			require.Equal(t, scenarioerrors.KindContext, scenarioerrors.Kind(err))
		})
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	ctx := New()
	ctx.Set("token", "abc")

	params := map[string]any{"headers": map[string]any{"auth": "${token}"}}
	resolved, err := ctx.Resolve("s", params)
	require.NoError(t, err)

	require.Equal(t, "${token}", params["headers"].(map[string]any)["auth"])
	resolved["headers"].(map[string]any)["auth"] = "changed"
	require.Equal(t, "${token}", params["headers"].(map[string]any)["auth"])
}

func TestResolvedRecordIsCopied(t *testing.T) {
	t.Parallel()

	ctx := New()
	ctx.Set("user", map[string]any{"name": "ada"})

	resolved, err := ctx.Resolve("s", map[string]any{"body": "${user}"})
	require.NoError(t, err)
	resolved["body"].(map[string]any)["name"] = "grace"

	value, _ := ctx.Get("user")
	require.Equal(t, "ada", value.(map[string]any)["name"])
}

func TestResolveNilParams(t *testing.T) {
	t.Parallel()

	got, err := New().Resolve("s", nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReferences(t *testing.T) {
	t.Parallel()

	params := map[string]any{
		"url":  "/users/${user_id}/posts/${post.id}",
		"body": map[string]any{"token": "${token}", "again": "${user_id}"},
		"list": []any{"${z}", "$${escaped}"},
	}
	require.Equal(t, []string{"post", "token", "user_id", "z"}, References(params))
	require.Empty(t, References(nil))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	ctx := New()
	ctx.Set("user", map[string]any{"name": "ada"})

	snapshot := ctx.Snapshot()
	snapshot["user"].(map[string]any)["name"] = "grace"
	snapshot["extra"] = 1

	value, _ := ctx.Get("user")
	require.Equal(t, "ada", value.(map[string]any)["name"])
	require.Equal(t, 1, ctx.Len())
	require.NotNil(t, New().Snapshot())
}

func TestStringify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: "null"},
		{in: "x", want: "x"},
		{in: 1.5, want: "1.5"},
		{in: float64(3), want: "3"},
		{in: int64(9), want: "9"},
		{in: false, want: "false"},
		{in: []any{1, "a"}, want: `[1,"a"]`},
	}
	for _, tt := range tests {
		got, err := Stringify(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}
