package heuristics

import (
	"context"
	"strings"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/logger"
)

// Navigator finds and clicks the best control that advances the flow,
// refusing anything whose text marks an exit gate.
type Navigator struct {
	logger logger.Logger
}

// NewNavigator creates a navigator.
func NewNavigator(log logger.Logger) *Navigator {
	return &Navigator{logger: log}
}

// navShapes are the element templates tried for each phrase, in order.
func navShapes(phrase string) []browser.Selector {
	return []browser.Selector{
		browser.TextContains("button", phrase),
		browser.TextContains("a", phrase),
		{Role: "button", Text: phrase},
		browser.TextContains(`input[type="submit"], input[type="button"]`, phrase),
	}
}

// ClickNext clicks the first qualifying advance control found by walking
// the phrase catalogue in priority order, then structural fallbacks. It
// returns the clicked label and ok=false only when no actionable control
// exists anywhere, which signals the orchestrator to stop.
func (n *Navigator) ClickNext(ctx context.Context, page browser.Driver) (string, bool) {
	for _, phrase := range nextPatterns {
		for _, sel := range navShapes(phrase) {
			if label, ok := n.clickFirstQualifying(ctx, page, sel); ok {
				return label, true
			}
		}
	}

	for _, css := range navFallbackSelectors {
		if label, ok := n.clickFirstQualifying(ctx, page, browser.CSS(css)); ok {
			return label, true
		}
	}

	return "", false
}

// clickFirstQualifying clicks the first visible, enabled candidate whose own
// text does not match a stop pattern.
func (n *Navigator) clickFirstQualifying(ctx context.Context, page browser.Driver, sel browser.Selector) (string, bool) {
	elements, err := page.Query(ctx, sel)
	if err != nil {
		return "", false
	}

	for _, el := range elements {
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		enabled, err := el.Enabled(ctx)
		if err != nil || !enabled {
			continue
		}
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if matchesAny(text, stopPatterns) {
			continue
		}

		if err := el.Click(ctx); err != nil {
			n.logger.Debug(ctx, "advance control click failed, trying next candidate", map[string]interface{}{
				"label": truncate(text, auditLabelLen),
				"error": err.Error(),
			})
			continue
		}
		if text == "" {
			text = sel.CSS
		}
		return truncate(text, auditLabelLen), true
	}

	return "", false
}
