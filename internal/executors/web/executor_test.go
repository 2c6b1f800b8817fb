package web

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/params"
)

type fakeDriver struct {
	commands []Command
	visible  map[string]bool
	text     map[string]string
	err      error
	closed   bool
}

func (f *fakeDriver) Perform(ctx context.Context, cmd Command) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return Outcome{}, f.err
	}
	switch cmd.Action {
	case scenario.ActionVerify:
		return Outcome{OK: f.visible[cmd.Target]}, nil
	case scenario.ActionExtract:
		return Outcome{OK: true, Extracted: f.text[cmd.Target]}, nil
	default:
		return Outcome{OK: true}, nil
	}
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func TestExecutorActions(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{
		visible: map[string]bool{"#welcome": true},
		text:    map[string]string{"h1": "Dashboard"},
	}
	exec := New(driver)
	ctx := context.Background()

	tests := []struct {
		name   string
		action scenario.Action
		params map[string]any
		want   any
		cmd    Command
	}{
		{
			name:   "navigate",
			action: scenario.ActionNavigate,
			params: map[string]any{"url": "https://example.test/login"},
			cmd:    Command{Action: scenario.ActionNavigate, Target: "https://example.test/login"},
		},
		{
			name:   "type with aliases",
			action: scenario.ActionType,
			params: map[string]any{"target": "#user", "text": "ada"},
			cmd:    Command{Action: scenario.ActionType, Target: "#user", Value: "ada"},
		},
		{
			name:   "click",
			action: scenario.ActionClick,
			params: map[string]any{"selector": "#submit"},
			cmd:    Command{Action: scenario.ActionClick, Target: "#submit"},
		},
		{
			name:   "verify visible",
			action: scenario.ActionVerify,
			params: map[string]any{"selector": "#welcome"},
			cmd:    Command{Action: scenario.ActionVerify, Target: "#welcome"},
		},
		{
			name:   "extract returns text",
			action: scenario.ActionExtract,
			params: map[string]any{"selector": "h1"},
			want:   "Dashboard",
			cmd:    Command{Action: scenario.ActionExtract, Target: "h1"},
		},
	}

	for _, tt := range tests {
		got, err := exec.Execute(ctx, tt.action, tt.params)
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.want, got, tt.name)
		require.Equal(t, tt.cmd, driver.commands[len(driver.commands)-1], tt.name)
	}
	require.Equal(t, scenario.PlatformWeb, exec.Platform())
}

func TestExecutorVerifyHiddenFails(t *testing.T) {
	t.Parallel()

	exec := New(&fakeDriver{})
	out, err := exec.Execute(context.Background(), scenario.ActionVerify, map[string]any{"selector": "#missing"})
	require.Nil(t, out)
	require.ErrorIs(t, err, ErrNotVisible)
	require.Contains(t, err.Error(), "#missing")
}

func TestExecutorMissingParams(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	exec := New(driver)

	_, err := exec.Execute(context.Background(), scenario.ActionNavigate, map[string]any{})
	require.ErrorIs(t, err, params.ErrMissing)

	_, err = exec.Execute(context.Background(), scenario.ActionClick, map[string]any{"url": "x"})
	require.ErrorIs(t, err, params.ErrMissing)

	_, err = exec.Execute(context.Background(), scenario.ActionGet, map[string]any{"url": "x"})
	require.ErrorContains(t, err, "unsupported web action")

	require.Empty(t, driver.commands)
}

func TestExecutorDriverErrorAndClose(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	exec := New(driver)

	_, err := exec.Execute(context.Background(), scenario.ActionNavigate, map[string]any{"url": "https://nope.invalid"})
	require.ErrorContains(t, err, "ERR_NAME_NOT_RESOLVED")

	require.NoError(t, exec.Close())
	require.True(t, driver.closed)
}

func TestExecutorHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&fakeDriver{}).Execute(ctx, scenario.ActionClick, map[string]any{"selector": "a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestVisibilityScriptQuotesSelector(t *testing.T) {
	t.Parallel()

	script := visibilityScript(`a[href="/x"]`)
	require.Contains(t, script, `document.querySelector("a[href=\"/x\"]")`)
}

func TestChromeDriverCloseWithoutStart(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewChromeDriver(ChromeOptions{Headless: true}).Close())
}

func TestExecutorExtractExpectedText(t *testing.T) {
	t.Parallel()

	exec := New(&fakeDriver{text: map[string]string{"h1": "Welcome, Ada"}})

	out, err := exec.Execute(context.Background(), scenario.ActionExtract, map[string]any{"selector": "h1", "expected": "Welcome, Ada"})
	require.NoError(t, err)
	require.Equal(t, "Welcome, Ada", out)

	_, err = exec.Execute(context.Background(), scenario.ActionExtract, map[string]any{"selector": "h1", "expected": "Welcome, Bob"})
	require.ErrorIs(t, err, ErrTextMismatch)
	require.Contains(t, err.Error(), "-Welcome, Bob")
	require.Contains(t, err.Error(), "+Welcome, Ada")
}
