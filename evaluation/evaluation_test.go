package evaluation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		e, err := New(testConfig())
		require.NoError(t, err)
		assert.Equal(t, StatusPending, e.Status)
		assert.Equal(t, "example-quiz", e.WebsiteName)
		assert.Equal(t, "desktop", e.Viewport)
	})

	t.Run("defaults applied", func(t *testing.T) {
		e, err := New(Config{
			StartURL:    "https://example.com",
			WebsiteName: "example",
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxSteps, e.Config.MaxSteps)
		assert.Equal(t, "desktop", e.Config.Viewport)
	})

	t.Run("max steps clamped", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxSteps = 10000
		e, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, MaxStepsLimit, e.Config.MaxSteps)
	})

	t.Run("invalid start url", func(t *testing.T) {
		for _, u := range []string{"", "notaurl", "ftp://example.com", "https://"} {
			cfg := testConfig()
			cfg.StartURL = u
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidStartURL, "url %q", u)
		}
	})

	t.Run("missing website name", func(t *testing.T) {
		cfg := testConfig()
		cfg.WebsiteName = ""
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrInvalidWebsiteName)
	})
}

func TestEvaluation_Lifecycle(t *testing.T) {
	t.Run("start from pending", func(t *testing.T) {
		e, err := New(testConfig())
		require.NoError(t, err)

		require.NoError(t, e.Start())
		assert.Equal(t, StatusRunning, e.Status)
		require.NotNil(t, e.StartedAt)

		assert.ErrorIs(t, e.Start(), ErrAlreadyStarted)
	})

	t.Run("finalize requires running", func(t *testing.T) {
		e, err := New(testConfig())
		require.NoError(t, err)
		assert.ErrorIs(t, e.Finalize(ReasonEndOfFlow), ErrNotRunning)
	})

	t.Run("finalize exactly once", func(t *testing.T) {
		e, err := New(testConfig())
		require.NoError(t, err)
		require.NoError(t, e.Start())
		e.AppendStep(Step{URL: "https://example.com"})

		require.NoError(t, e.Finalize(ReasonEndOfFlow))
		assert.ErrorIs(t, e.Finalize(ReasonEndOfFlow), ErrAlreadyFinalized)
	})
}

func TestEvaluation_AppendStep(t *testing.T) {
	e, err := New(testConfig())
	require.NoError(t, err)

	e.AppendStep(Step{URL: "https://example.com/1"})
	e.AppendStep(Step{URL: "https://example.com/2"})

	require.Len(t, e.Steps, 2)
	assert.Equal(t, 1, e.Steps[0].StepNumber)
	assert.Equal(t, 2, e.Steps[1].StepNumber)
	assert.False(t, e.Steps[0].Timestamp.IsZero())
}

func TestEvaluation_Finalize_StatusDerivation(t *testing.T) {
	tests := []struct {
		name       string
		steps      []Step
		wantStatus Status
	}{
		{
			name: "all clean steps complete",
			steps: []Step{
				{URL: "https://example.com/1"},
				{URL: "https://example.com/2"},
			},
			wantStatus: StatusCompleted,
		},
		{
			name: "mixed steps are partial",
			steps: []Step{
				{URL: "https://example.com/1"},
				{URL: "https://example.com/2", Errors: []string{"screenshot failed"}},
			},
			wantStatus: StatusPartial,
		},
		{
			name: "no clean steps fail",
			steps: []Step{
				{URL: "https://example.com/1", Errors: []string{"navigation failed"}},
			},
			wantStatus: StatusFailed,
		},
		{
			name: "any blocked step wins",
			steps: []Step{
				{URL: "https://example.com/1"},
				{URL: "https://example.com/2", Blocked: true, BlockCategory: "captcha"},
			},
			wantStatus: StatusBlocked,
		},
		{
			name:       "no steps at all fail",
			steps:      nil,
			wantStatus: StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(testConfig())
			require.NoError(t, err)
			require.NoError(t, e.Start())
			for _, step := range tt.steps {
				e.AppendStep(step)
			}

			require.NoError(t, e.Finalize(ReasonEndOfFlow))
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, ReasonEndOfFlow, e.TerminationReason)
			require.NotNil(t, e.CompletedAt)
			assert.True(t, e.Status.IsFinal())
		})
	}
}

func TestEvaluation_Finalize_Counters(t *testing.T) {
	e, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, e.Start())

	e.AppendStep(Step{URL: "https://example.com/1"})
	e.AppendStep(Step{URL: "https://example.com/2", Errors: []string{"boom"}})
	e.AppendStep(Step{URL: "https://example.com/3"})

	require.NoError(t, e.Finalize(ReasonMaxSteps))
	assert.Equal(t, 2, e.CompletedSteps)
	assert.Equal(t, 1, e.FailedSteps)
	assert.GreaterOrEqual(t, e.TotalDurationMs, int64(0))
}

func TestEvaluation_FailInitialization(t *testing.T) {
	e, err := New(testConfig())
	require.NoError(t, err)

	require.NoError(t, e.FailInitialization(errors.New("browser launch failed")))
	assert.Equal(t, StatusFailed, e.Status)
	assert.Equal(t, ReasonSessionError, e.TerminationReason)
	require.Len(t, e.Steps, 1)
	assert.Contains(t, e.Steps[0].Errors[0], "browser launch failed")
	assert.Equal(t, e.StartURL, e.Steps[0].URL)
}

func TestStatus_IsFinal(t *testing.T) {
	assert.False(t, StatusPending.IsFinal())
	assert.False(t, StatusRunning.IsFinal())
	assert.True(t, StatusCompleted.IsFinal())
	assert.True(t, StatusPartial.IsFinal())
	assert.True(t, StatusFailed.IsFinal())
	assert.True(t, StatusBlocked.IsFinal())
}

func TestSteps_JSONRoundTrip(t *testing.T) {
	steps := Steps{
		{
			StepNumber: 1,
			URL:        "https://example.com",
			PageTitle:  "Quiz",
			FormFields: []FormField{{Name: "email", Type: "email", Required: true}},
			Timestamp:  time.Now().UTC(),
		},
	}

	value, err := steps.Value()
	require.NoError(t, err)

	var decoded Steps
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 1)
	assert.Equal(t, "https://example.com", decoded[0].URL)
	assert.Equal(t, "email", decoded[0].FormFields[0].Name)
}
