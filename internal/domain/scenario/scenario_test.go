package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

func TestScenarioValidate(t *testing.T) {
	t.Parallel()

	t.Run("empty scenario is valid", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, Scenario{Name: "noop"}.Validate())
	})

	t.Run("name required", func(t *testing.T) {
		t.Parallel()
		err := Scenario{}.Validate()
		var validationErr *scenarioerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Equal(t, "name", validationErr.Field)
	})

	t.Run("step errors carry index", func(t *testing.T) {
		t.Parallel()
		sc := Scenario{Name: "x", Steps: []Step{
			{ID: "ok", Platform: PlatformWeb, Action: ActionNavigate},
			{ID: "bad", Platform: PlatformWeb, Action: ActionQuery},
		}}
		err := sc.Validate()
		var validationErr *scenarioerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Equal(t, "steps[1].action", validationErr.Field)
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		t.Parallel()
		sc := Scenario{Name: "x", Steps: []Step{
			{ID: "same", Platform: PlatformWeb, Action: ActionNavigate},
			{ID: "same", Platform: PlatformWeb, Action: ActionClick},
		}}
		err := sc.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "duplicate step id")
	})
}

func TestScenarioNormalizeAssignsPositionalIDs(t *testing.T) {
	t.Parallel()

	sc := Scenario{Name: "x", Steps: []Step{
		{Platform: PlatformWeb, Action: ActionNavigate},
		{ID: "named", Platform: PlatformAPI, Action: ActionGet},
		{ID: "  ", Platform: PlatformDB, Action: ActionQuery},
	}}
	sc.Normalize()

	require.Equal(t, "step-1", sc.Steps[0].ID)
	require.Equal(t, "named", sc.Steps[1].ID)
	require.Equal(t, "step-3", sc.Steps[2].ID)
	require.NoError(t, sc.Validate())
}

func TestScenarioStepTimeoutPrecedence(t *testing.T) {
	t.Parallel()

	sc := Scenario{Name: "x", Settings: Settings{StepTimeout: 5 * time.Second}}
	require.Equal(t, 2*time.Second, sc.StepTimeout(Step{Timeout: 2 * time.Second}, time.Minute))
	require.Equal(t, 5*time.Second, sc.StepTimeout(Step{}, time.Minute))

	sc.Settings.StepTimeout = 0
	require.Equal(t, time.Minute, sc.StepTimeout(Step{}, time.Minute))
	require.Equal(t, DefaultStepTimeout, sc.StepTimeout(Step{}, 0))
}

func TestSettingsApplyDefaults(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultStepTimeout, Settings{}.ApplyDefaults().StepTimeout)
	require.Equal(t, time.Second, Settings{StepTimeout: time.Second}.ApplyDefaults().StepTimeout)
}

func TestScenarioCloneIsIndependent(t *testing.T) {
	t.Parallel()

	sc := Scenario{Name: "x", Steps: []Step{{ID: "a", Platform: PlatformAPI, Action: ActionGet, Params: map[string]any{"url": "A"}}}}
	clone := sc.Clone()
	clone.Steps[0].Params["url"] = "B"
	clone.Steps = append(clone.Steps, Step{ID: "b"})

	require.Equal(t, "A", sc.Steps[0].Params["url"])
	require.Len(t, sc.Steps, 1)
}
