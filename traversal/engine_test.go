package traversal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/evaluation"
	"github.com/draphael123/Evaluation-Tracker/logger"
	"github.com/draphael123/Evaluation-Tracker/storage"
)

func newTestEngine(t *testing.T) (*Engine, storage.BlobStorage, *CaptureSink) {
	t.Helper()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	sink := &CaptureSink{}
	return NewEngine(blobs, sink, logger.NewTestLogger()), blobs, sink
}

func runningEvaluation(t *testing.T, cfg evaluation.Config) *evaluation.Evaluation {
	t.Helper()
	if cfg.WebsiteName == "" {
		cfg.WebsiteName = "example"
	}
	if cfg.StepDelayMs == 0 {
		cfg.StepDelayMs = 1
	}
	e, err := evaluation.New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	return e
}

func TestEngine_TwoStepFlowCompletes(t *testing.T) {
	ctx := context.Background()
	engine, blobs, sink := newTestEngine(t)

	donePage := &browser.FakePage{
		URL:      "https://example.com/done",
		Title:    "All done",
		BodyText: "Thank you for completing the assessment",
	}
	quizPage := &browser.FakePage{
		URL:      "https://example.com/quiz",
		Title:    "Quiz",
		Headings: []string{"What do you enjoy?"},
		BodyText: "Question 1 of 1",
		Elements: []*browser.FakeElement{
			{Tag: "div", Class: "option", TextContent: "Running"},
			{Tag: "div", Class: "option", TextContent: "Swimming"},
			{Tag: "input", Type: "text", Name: "email"},
			{
				Tag: "button", TextContent: "Continue",
				OnClick: func(d *browser.FakeDriver) { d.Goto(donePage.URL) },
			},
		},
	}
	session := browser.NewFakeDriver(quizPage, donePage)

	e := runningEvaluation(t, evaluation.Config{
		StartURL:      "https://example.com/quiz",
		MaxSteps:      10,
		AutoFillForms: true,
	})

	require.NoError(t, engine.Run(ctx, session, e))

	assert.Equal(t, evaluation.StatusCompleted, e.Status)
	assert.Equal(t, evaluation.ReasonEndOfFlow, e.TerminationReason)
	assert.Equal(t, 2, e.CompletedSteps)
	assert.Equal(t, 0, e.FailedSteps)
	require.Len(t, e.Steps, 2)

	first := e.Steps[0]
	assert.Equal(t, "https://example.com/quiz", first.URL)
	assert.Equal(t, "Quiz", first.PageTitle)
	assert.Equal(t, "What do you enjoy?", first.H1)
	assert.Equal(t, "Running", first.SelectedOption)
	assert.Equal(t, 1, first.FieldsFilled)
	assert.Equal(t, "Continue", first.ClickedControl)
	assert.Contains(t, first.ButtonLabels, "Continue")
	require.Len(t, first.FormFields, 1)
	assert.Equal(t, "email", first.FormFields[0].Name)

	second := e.Steps[1]
	assert.Equal(t, "https://example.com/done", second.URL)
	assert.Empty(t, second.ClickedControl)

	for i, step := range e.Steps {
		wantPath := fmt.Sprintf("evaluations/%s/step-%02d.png", e.ID, i+1)
		assert.Equal(t, wantPath, step.ScreenshotPath)
		exists, err := blobs.Exists(ctx, step.ScreenshotPath)
		require.NoError(t, err)
		assert.True(t, exists)
	}

	assert.Len(t, sink.ByType(EventInit), 1)
	assert.Len(t, sink.ByType(EventStepCompleted), 2)
	assert.Len(t, sink.ByType(EventOptionSelected), 1)
	assert.Len(t, sink.ByType(EventFormFilled), 1)
	assert.Len(t, sink.ByType(EventCompleted), 1)
}

func TestEngine_LoopDetection(t *testing.T) {
	ctx := context.Background()
	engine, _, sink := newTestEngine(t)

	// The continue button goes nowhere: the page repeats identically.
	page := &browser.FakePage{
		URL:      "https://example.com/stuck",
		Title:    "Stuck",
		Headings: []string{"Round and round"},
		Elements: []*browser.FakeElement{
			{Tag: "button", TextContent: "Continue"},
		},
	}
	session := browser.NewFakeDriver(page)

	e := runningEvaluation(t, evaluation.Config{
		StartURL: "https://example.com/stuck",
		MaxSteps: 3,
	})

	require.NoError(t, engine.Run(ctx, session, e))

	assert.Equal(t, evaluation.ReasonLoopDetected, e.TerminationReason)
	require.Len(t, e.Steps, 3, "first recurrence is tolerated, second halts")
	assert.True(t, e.Steps[2].Failed())
	assert.Equal(t, evaluation.StatusPartial, e.Status)
	assert.Len(t, sink.ByType(EventStepError), 1)
}

func TestEngine_MaxStepsBound(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	session := browser.NewFakeDriver()
	for i := 1; i <= 3; i++ {
		next := fmt.Sprintf("https://example.com/step%d", i+1)
		session.AddPage(&browser.FakePage{
			URL:      fmt.Sprintf("https://example.com/step%d", i),
			Headings: []string{fmt.Sprintf("Step %d", i)},
			Elements: []*browser.FakeElement{
				{
					Tag: "button", TextContent: "Next",
					OnClick: func(d *browser.FakeDriver) { d.Goto(next) },
				},
			},
		})
	}

	e := runningEvaluation(t, evaluation.Config{
		StartURL: "https://example.com/step1",
		MaxSteps: 2,
	})

	require.NoError(t, engine.Run(ctx, session, e))

	assert.Equal(t, evaluation.ReasonMaxSteps, e.TerminationReason)
	assert.Equal(t, evaluation.StatusCompleted, e.Status)
	require.Len(t, e.Steps, 2)
	assert.Equal(t, "https://example.com/step1", e.Steps[0].URL)
	assert.Equal(t, "https://example.com/step2", e.Steps[1].URL)
}

func TestEngine_BlockedRun(t *testing.T) {
	ctx := context.Background()
	engine, _, sink := newTestEngine(t)

	page := &browser.FakePage{
		URL:      "https://example.com/verify",
		Title:    "Verify",
		BodyText: "Please enter the 6-digit code we sent you",
	}
	session := browser.NewFakeDriver(page)

	e := runningEvaluation(t, evaluation.Config{
		StartURL: "https://example.com/verify",
		MaxSteps: 5,
	})

	require.NoError(t, engine.Run(ctx, session, e))

	assert.Equal(t, evaluation.StatusBlocked, e.Status)
	assert.Equal(t, evaluation.ReasonBlocked, e.TerminationReason)
	require.Len(t, e.Steps, 1)
	assert.True(t, e.Steps[0].Blocked)
	assert.Equal(t, "two_factor", e.Steps[0].BlockCategory)
	assert.NotEmpty(t, e.Steps[0].BlockReason)
	assert.Len(t, sink.ByType(EventBlocked), 1)
}

func TestEngine_NoActionableControl(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	page := &browser.FakePage{
		URL:      "https://example.com/deadend",
		BodyText: "Nothing to do here",
	}
	session := browser.NewFakeDriver(page)

	e := runningEvaluation(t, evaluation.Config{
		StartURL: "https://example.com/deadend",
		MaxSteps: 5,
	})

	require.NoError(t, engine.Run(ctx, session, e))

	assert.Equal(t, evaluation.ReasonNoActionableControl, e.TerminationReason)
	assert.Equal(t, evaluation.StatusCompleted, e.Status)
	require.Len(t, e.Steps, 1)
}

func TestEngine_InitialNavigationFailure(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	session := browser.NewFakeDriver()
	session.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	e := runningEvaluation(t, evaluation.Config{
		StartURL: "https://doesnotexist.example.com",
		MaxSteps: 5,
	})

	require.NoError(t, engine.Run(ctx, session, e))

	assert.Equal(t, evaluation.StatusFailed, e.Status)
	assert.Equal(t, evaluation.ReasonSessionError, e.TerminationReason)
	require.Len(t, e.Steps, 1)
	assert.Contains(t, e.Steps[0].Errors[0], "navigation failed")
}

func TestEngine_ScreenshotFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	page := &browser.FakePage{
		URL:      "https://example.com/done",
		BodyText: "Thank you for your submission",
	}
	session := browser.NewFakeDriver(page)
	session.ScreenshotErr = errors.New("capture failed")

	e := runningEvaluation(t, evaluation.Config{
		StartURL: "https://example.com/done",
		MaxSteps: 5,
	})

	require.NoError(t, engine.Run(ctx, session, e))

	assert.Equal(t, evaluation.ReasonEndOfFlow, e.TerminationReason)
	require.Len(t, e.Steps, 1)
	assert.Empty(t, e.Steps[0].ScreenshotPath)
	require.Len(t, e.Steps[0].Errors, 1)
	assert.Contains(t, e.Steps[0].Errors[0], "screenshot failed")
}

func TestEngine_ContextCancellation(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	page := &browser.FakePage{URL: "https://example.com"}
	session := browser.NewFakeDriver(page)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := runningEvaluation(t, evaluation.Config{
		StartURL: "https://example.com",
		MaxSteps: 5,
	})

	require.NoError(t, engine.Run(ctx, session, e))
	assert.Equal(t, evaluation.ReasonSessionError, e.TerminationReason)
	assert.Equal(t, evaluation.StatusFailed, e.Status)
}
