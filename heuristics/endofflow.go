package heuristics

import (
	"context"
	"fmt"
	"strings"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/logger"
)

// exitGateSelectors are the interactive element shapes checked for
// stop-pattern text.
var exitGateSelectors = []browser.Selector{
	browser.CSS("button"),
	browser.CSS("a"),
	browser.Role("button"),
	browser.CSS(`input[type="submit"], input[type="button"]`),
}

// EndOfFlowClassifier detects terminal pages: either an exit gate control
// (signup, checkout) is visible, meaning the evaluable portion of the flow
// is finished, or the body carries a confirmation phrase.
type EndOfFlowClassifier struct {
	logger logger.Logger
}

// NewEndOfFlowClassifier creates an end-of-flow classifier.
func NewEndOfFlowClassifier(log logger.Logger) *EndOfFlowClassifier {
	return &EndOfFlowClassifier{logger: log}
}

// IsEndOfFlow reports whether traversal should stop here, with a
// human-readable reason for the audit trail. Either condition alone
// suffices.
func (c *EndOfFlowClassifier) IsEndOfFlow(ctx context.Context, page browser.Driver) (bool, string) {
	for _, sel := range exitGateSelectors {
		elements, err := page.Query(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			text, err := el.Text(ctx)
			if err != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if text == "" || !matchesAny(text, stopPatterns) {
				continue
			}
			visible, err := el.Visible(ctx)
			if err != nil || !visible {
				continue
			}
			return true, fmt.Sprintf("reached exit gate %q", truncate(text, 50))
		}
	}

	body, err := page.PageText(ctx)
	if err != nil {
		return false, ""
	}
	lowered := strings.ToLower(body)
	for _, phrase := range terminalPhrases {
		if strings.Contains(lowered, phrase) {
			return true, fmt.Sprintf("terminal confirmation %q", phrase)
		}
	}

	return false, ""
}
