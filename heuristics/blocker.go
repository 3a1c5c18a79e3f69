package heuristics

import (
	"context"
	"fmt"
	"strings"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/logger"
)

// BlockingResult is the outcome of a blocker check.
type BlockingResult struct {
	IsBlocked bool
	Category  BlockCategory
	Reason    string
}

// BlockerClassifier detects page conditions that require human intervention
// (2FA, CAPTCHA, verification, login and account walls). It is read-only and
// never mutates page state.
type BlockerClassifier struct {
	logger logger.Logger
}

// NewBlockerClassifier creates a blocker classifier.
func NewBlockerClassifier(log logger.Logger) *BlockerClassifier {
	return &BlockerClassifier{logger: log}
}

// Classify checks the page text and title against the ordered pattern table,
// then probes the DOM for verification widgets. Probe failures fail open: a
// false negative is preferable to aborting a healthy run. The page may be
// nil when only text is available.
func (c *BlockerClassifier) Classify(ctx context.Context, pageText, pageTitle string, page browser.Driver) BlockingResult {
	haystack := strings.ToLower(pageTitle + "\n" + pageText)

	for _, entry := range blockerPatterns {
		for _, phrase := range entry.phrases {
			if strings.Contains(haystack, phrase) {
				return BlockingResult{
					IsBlocked: true,
					Category:  entry.category,
					Reason:    fmt.Sprintf("page text matches %q", phrase),
				}
			}
		}
	}

	if page == nil {
		return BlockingResult{}
	}

	for _, probe := range blockerProbes {
		elements, err := page.Query(ctx, probe.sel)
		if err != nil {
			c.logger.Debug(ctx, "blocker probe failed, continuing", map[string]interface{}{
				"selector": probe.sel.CSS,
				"error":    err.Error(),
			})
			continue
		}
		for _, el := range elements {
			visible, err := el.Visible(ctx)
			if err != nil {
				continue
			}
			if visible {
				return BlockingResult{
					IsBlocked: true,
					Category:  BlockVerificationInput,
					Reason:    probe.reason,
				}
			}
		}
	}

	return BlockingResult{}
}
