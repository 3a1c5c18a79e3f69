package traversal

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/evaluation"
	"github.com/draphael123/Evaluation-Tracker/heuristics"
	"github.com/draphael123/Evaluation-Tracker/logger"
	"github.com/draphael123/Evaluation-Tracker/storage"
)

// DefaultStepDelay is how long the engine waits after actuating a control
// before observing the page again, letting transitions and XHR-driven
// re-renders settle.
const DefaultStepDelay = 1500 * time.Millisecond

// Engine walks one browser session through a flow, appending a step to the
// evaluation's audit trail per page visited. The engine never persists; the
// caller saves the mutated evaluation afterwards.
type Engine struct {
	blocker   *heuristics.BlockerClassifier
	endOfFlow *heuristics.EndOfFlowClassifier
	options   *heuristics.OptionSelector
	autofill  *heuristics.FormAutofiller
	navigator *heuristics.Navigator

	storage storage.BlobStorage
	sink    EventSink
	logger  logger.Logger
}

// NewEngine creates a traversal engine. A nil sink disables progress events.
func NewEngine(blobs storage.BlobStorage, sink EventSink, log logger.Logger) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		blocker:   heuristics.NewBlockerClassifier(log),
		endOfFlow: heuristics.NewEndOfFlowClassifier(log),
		options:   heuristics.NewOptionSelector(log),
		autofill:  heuristics.NewFormAutofiller(log),
		navigator: heuristics.NewNavigator(log),
		storage:   blobs,
		sink:      sink,
		logger:    log,
	}
}

// Run traverses the flow described by the evaluation's config using the
// given session. The evaluation must already be running; on return it is
// finalized with a termination reason. The returned error covers engine
// misuse only, never heuristic outcomes.
func (en *Engine) Run(ctx context.Context, session browser.Driver, e *evaluation.Evaluation) error {
	cfg := e.Config
	delay := DefaultStepDelay
	if cfg.StepDelayMs > 0 {
		delay = time.Duration(cfg.StepDelayMs) * time.Millisecond
	}
	data := heuristics.DefaultTestData().Merge(cfg.TestData)
	loops := newLoopDetector()

	en.publish(e, EventInit, 0, cfg.StartURL, "")

	navStart := time.Now()
	if err := session.Navigate(ctx, cfg.StartURL); err != nil {
		en.logger.Error(ctx, "initial navigation failed", map[string]interface{}{
			"evaluation_id": e.ID.String(),
			"url":           cfg.StartURL,
			"error":         err.Error(),
		})
		e.AppendStep(evaluation.Step{
			URL:    cfg.StartURL,
			Errors: []string{fmt.Sprintf("navigation failed: %v", err)},
		})
		return en.finish(ctx, e, evaluation.ReasonSessionError)
	}
	loadTime := time.Since(navStart)

	for stepNumber := 1; stepNumber <= cfg.MaxSteps; stepNumber++ {
		if err := ctx.Err(); err != nil {
			e.AppendStep(evaluation.Step{
				Errors: []string{fmt.Sprintf("run aborted: %v", err)},
			})
			return en.finish(ctx, e, evaluation.ReasonSessionError)
		}

		en.publish(e, EventStepStarted, stepNumber, "", "")

		step, obs, err := en.observe(ctx, session, e, stepNumber, loadTime)
		if err != nil {
			step.Errors = append(step.Errors, fmt.Sprintf("observation failed: %v", err))
			e.AppendStep(step)
			en.publish(e, EventStepError, stepNumber, step.URL, err.Error())
			return en.finish(ctx, e, evaluation.ReasonSessionError)
		}

		if loops.observe(obs.fingerprint, stepNumber) {
			step.Errors = append(step.Errors, "page repeated without progress")
			e.AppendStep(step)
			en.publish(e, EventStepError, stepNumber, step.URL, "loop detected")
			return en.finish(ctx, e, evaluation.ReasonLoopDetected)
		}

		blocked := en.blocker.Classify(ctx, obs.bodyText, step.PageTitle, session)
		if blocked.IsBlocked {
			step.Blocked = true
			step.BlockCategory = string(blocked.Category)
			step.BlockReason = blocked.Reason
			e.AppendStep(step)
			en.publish(e, EventBlocked, stepNumber, step.URL, blocked.Reason)
			return en.finish(ctx, e, evaluation.ReasonBlocked)
		}

		if done, reason := en.endOfFlow.IsEndOfFlow(ctx, session); done {
			e.AppendStep(step)
			en.publish(e, EventStepCompleted, stepNumber, step.URL, reason)
			return en.finish(ctx, e, evaluation.ReasonEndOfFlow)
		}

		if label, ok := en.options.Select(ctx, session); ok {
			step.SelectedOption = label
			en.publish(e, EventOptionSelected, stepNumber, step.URL, label)
		}

		if cfg.AutoFillForms {
			if filled := en.autofill.Fill(ctx, session, data); filled > 0 {
				step.FieldsFilled = filled
				en.publish(e, EventFormFilled, stepNumber, step.URL,
					fmt.Sprintf("%d fields filled", filled))
			}
		}

		label, ok := en.navigator.ClickNext(ctx, session)
		if !ok {
			e.AppendStep(step)
			en.publish(e, EventStepCompleted, stepNumber, step.URL, "no actionable control")
			return en.finish(ctx, e, evaluation.ReasonNoActionableControl)
		}
		step.ClickedControl = label

		e.AppendStep(step)
		en.publish(e, EventStepCompleted, stepNumber, step.URL, label)

		settleStart := time.Now()
		if err := sleep(ctx, delay); err != nil {
			e.AppendStep(evaluation.Step{
				Errors: []string{fmt.Sprintf("run aborted: %v", err)},
			})
			return en.finish(ctx, e, evaluation.ReasonSessionError)
		}
		loadTime = time.Since(settleStart)
	}

	return en.finish(ctx, e, evaluation.ReasonMaxSteps)
}

// observation carries per-page data needed by checks but not recorded on the
// step itself.
type observation struct {
	fingerprint string
	bodyText    string
}

// observe collects the audit record for the current page. Metadata failures
// degrade to empty fields; screenshot failures are recorded as step errors.
// Only a dead session (current URL unreadable) is returned as an error.
func (en *Engine) observe(ctx context.Context, session browser.Driver, e *evaluation.Evaluation, stepNumber int, loadTime time.Duration) (evaluation.Step, observation, error) {
	step := evaluation.Step{
		LoadTimeMs: loadTime.Milliseconds(),
		Timestamp:  time.Now(),
	}

	url, err := session.CurrentURL(ctx)
	if err != nil {
		return step, observation{}, err
	}
	step.URL = url

	if title, err := session.Title(ctx); err == nil {
		step.PageTitle = title
	}

	headings, _ := session.Headings(ctx)
	if len(headings) > 0 {
		step.H1 = headings[0]
	}

	bodyText, _ := session.PageText(ctx)
	step.FormFields = en.collectFormFields(ctx, session)
	buttonLabels := en.collectButtonLabels(ctx, session)
	step.ButtonLabels = buttonLabels

	if path, err := en.screenshot(ctx, session, e, stepNumber); err != nil {
		step.Errors = append(step.Errors, fmt.Sprintf("screenshot failed: %v", err))
	} else {
		step.ScreenshotPath = path
	}

	obs := observation{
		fingerprint: Fingerprint(url, headings, buttonLabels),
		bodyText:    bodyText,
	}
	return step, obs, nil
}

func (en *Engine) collectFormFields(ctx context.Context, session browser.Driver) []evaluation.FormField {
	elements, err := session.Query(ctx, browser.CSS("input, textarea, select"))
	if err != nil {
		return nil
	}

	var fields []evaluation.FormField
	for _, el := range elements {
		inputType, _ := el.Attr(ctx, "type")
		if el.TagName() == "input" && inputType == "hidden" {
			continue
		}
		name, _ := el.Attr(ctx, "name")
		if name == "" {
			name, _ = el.Attr(ctx, "id")
		}
		placeholder, _ := el.Attr(ctx, "placeholder")
		required, _ := el.Attr(ctx, "required")
		fields = append(fields, evaluation.FormField{
			Name:        name,
			Type:        inputType,
			Required:    required != "",
			Placeholder: placeholder,
		})
	}
	return fields
}

func (en *Engine) collectButtonLabels(ctx context.Context, session browser.Driver) []string {
	var labels []string
	for _, sel := range []browser.Selector{
		browser.CSS("button"),
		browser.Role("button"),
		browser.CSS(`input[type="submit"], input[type="button"]`),
	} {
		elements, err := session.Query(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			text, err := el.Text(ctx)
			if err != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if text != "" {
				labels = append(labels, text)
			}
		}
	}
	return labels
}

func (en *Engine) screenshot(ctx context.Context, session browser.Driver, e *evaluation.Evaluation, stepNumber int) (string, error) {
	img, err := session.Screenshot(ctx, true)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("evaluations/%s/step-%02d.png", e.ID, stepNumber)
	if err := en.storage.Upload(ctx, path, bytes.NewReader(img)); err != nil {
		return "", err
	}
	return path, nil
}

// finish finalizes the evaluation and emits the completion event.
func (en *Engine) finish(ctx context.Context, e *evaluation.Evaluation, reason string) error {
	if err := e.Finalize(reason); err != nil {
		return err
	}

	en.logger.Info(ctx, "traversal finished", map[string]interface{}{
		"evaluation_id":      e.ID.String(),
		"status":             string(e.Status),
		"termination_reason": reason,
		"completed_steps":    e.CompletedSteps,
		"failed_steps":       e.FailedSteps,
	})
	en.publish(e, EventCompleted, len(e.Steps), "", reason)
	return nil
}

func (en *Engine) publish(e *evaluation.Evaluation, t EventType, stepNumber int, url, message string) {
	en.sink.Publish(Event{
		Type:         t,
		EvaluationID: e.ID,
		StepNumber:   stepNumber,
		URL:          url,
		Message:      message,
		Timestamp:    time.Now(),
	})
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
