package heuristics

import (
	"context"
	"strings"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/logger"
)

const (
	// maxOptionTextLen filters out paragraphs of prose that happen to sit
	// in option-looking containers.
	maxOptionTextLen = 100

	// auditLabelLen bounds the label recorded in the step observation.
	auditLabelLen = 50
)

// optionFamilies is the priority-ordered set of selector shapes scanned for
// quiz/selection choices after radio/checkbox labels.
var optionFamilies = []browser.Selector{
	browser.CSS(`[role="option"], [role="radio"], [role="checkbox"]`),
	browser.CSS(`[class*="option"], [class*="choice"], [class*="answer"]`),
	browser.CSS("li"),
	browser.CSS(`button[class*="option"], button[class*="choice"]`),
}

// OptionSelector picks one unselected choice on quiz/selection-style pages.
// It performs at most one click per invocation.
type OptionSelector struct {
	logger logger.Logger
}

// NewOptionSelector creates an option selector.
func NewOptionSelector(log logger.Logger) *OptionSelector {
	return &OptionSelector{logger: log}
}

// Select clicks the first eligible choice and returns its label for the
// audit trail. Returns ok=false when the page offers nothing to select;
// that is an expected outcome on arbitrary sites, not an error.
func (s *OptionSelector) Select(ctx context.Context, page browser.Driver) (string, bool) {
	if label, ok := s.selectControlLabel(ctx, page); ok {
		return label, true
	}

	for _, family := range optionFamilies {
		elements, err := page.Query(ctx, family)
		if err != nil {
			continue
		}
		for _, el := range elements {
			text, ok := s.eligible(ctx, el)
			if !ok {
				continue
			}
			if err := el.Click(ctx); err != nil {
				s.logger.Debug(ctx, "option click failed", map[string]interface{}{
					"label": truncate(text, auditLabelLen),
					"error": err.Error(),
				})
				return "", false
			}
			return truncate(text, auditLabelLen), true
		}
	}

	return s.selectRawControl(ctx, page)
}

// eligible applies the skip rules: invisible, already selected, text that
// looks like navigation or an exit gate, and degenerate text lengths.
func (s *OptionSelector) eligible(ctx context.Context, el browser.Element) (string, bool) {
	visible, err := el.Visible(ctx)
	if err != nil || !visible {
		return "", false
	}

	text, err := el.Text(ctx)
	if err != nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	if len(text) == 0 || len(text) > maxOptionTextLen {
		return "", false
	}
	if matchesAny(text, nextPatterns) || matchesAny(text, stopPatterns) {
		return "", false
	}

	checked, err := el.Checked(ctx)
	if err != nil || checked {
		return "", false
	}
	class, _ := el.Attr(ctx, "class")
	class = strings.ToLower(class)
	if strings.Contains(class, "selected") || strings.Contains(class, "active") {
		return "", false
	}

	return text, true
}

// selectControlLabel scans labels bound to radio/checkbox controls; a label
// whose control is unchecked is the strongest option signal. Labels for
// text fields are left alone.
func (s *OptionSelector) selectControlLabel(ctx context.Context, page browser.Driver) (string, bool) {
	labels, err := page.Query(ctx, browser.CSS("label[for]"))
	if err != nil {
		return "", false
	}

	for _, label := range labels {
		text, ok := s.eligible(ctx, label)
		if !ok {
			continue
		}
		id, err := label.Attr(ctx, "for")
		if err != nil || id == "" {
			continue
		}
		controls, err := page.Query(ctx, browser.CSS(
			`input[type="radio"][id="`+id+`"], input[type="checkbox"][id="`+id+`"]`))
		if err != nil || len(controls) == 0 {
			continue
		}
		checked, err := controls[0].Checked(ctx)
		if err != nil || checked {
			continue
		}

		if err := label.Click(ctx); err != nil {
			s.logger.Debug(ctx, "option label click failed", map[string]interface{}{
				"label": truncate(text, auditLabelLen),
				"error": err.Error(),
			})
			return "", false
		}
		return truncate(text, auditLabelLen), true
	}

	return "", false
}

// selectRawControl is the fallback: click the first visible unchecked radio
// or checkbox directly, preferring its associated label as the click target.
func (s *OptionSelector) selectRawControl(ctx context.Context, page browser.Driver) (string, bool) {
	elements, err := page.Query(ctx, browser.CSS(`input[type="radio"], input[type="checkbox"]`))
	if err != nil {
		return "", false
	}

	for _, el := range elements {
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		checked, err := el.Checked(ctx)
		if err != nil || checked {
			continue
		}

		target := el
		label := "option"
		if id, _ := el.Attr(ctx, "id"); id != "" {
			labels, err := page.Query(ctx, browser.CSS(`label[for="`+id+`"]`))
			if err == nil && len(labels) > 0 {
				if text, err := labels[0].Text(ctx); err == nil && strings.TrimSpace(text) != "" {
					target = labels[0]
					label = strings.TrimSpace(text)
				}
			}
		}

		if err := target.Click(ctx); err != nil {
			s.logger.Debug(ctx, "raw control click failed", map[string]interface{}{
				"error": err.Error(),
			})
			return "", false
		}
		return truncate(label, auditLabelLen), true
	}

	return "", false
}
