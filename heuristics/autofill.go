package heuristics

import (
	"context"
	"strings"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/logger"
)

// skipInputTypes are input types that are not fillable text entry.
var skipInputTypes = map[string]bool{
	"hidden":   true,
	"submit":   true,
	"button":   true,
	"reset":    true,
	"image":    true,
	"file":     true,
	"radio":    true,
	"checkbox": true,
	"range":    true,
	"color":    true,
}

// FormAutofiller fills empty visible inputs with synthetic test data matched
// by fuzzy field-name containment. A field that already holds a value is
// never clobbered, which makes repeated passes idempotent.
type FormAutofiller struct {
	logger logger.Logger
}

// NewFormAutofiller creates a form autofiller.
func NewFormAutofiller(log logger.Logger) *FormAutofiller {
	return &FormAutofiller{logger: log}
}

// Fill walks the page's fillable fields and returns how many were set. A
// single field's failure is skipped, never raised; the count is used purely
// for progress reporting.
func (f *FormAutofiller) Fill(ctx context.Context, page browser.Driver, data TestData) int {
	elements, err := page.Query(ctx, browser.CSS("input, textarea, select"))
	if err != nil {
		f.logger.Debug(ctx, "form field query failed", map[string]interface{}{
			"error": err.Error(),
		})
		return 0
	}

	filled := 0
	for _, el := range elements {
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		enabled, err := el.Enabled(ctx)
		if err != nil || !enabled {
			continue
		}

		inputType, _ := el.Attr(ctx, "type")
		if el.TagName() == "input" && skipInputTypes[strings.ToLower(inputType)] {
			continue
		}

		value, err := el.Value(ctx)
		if err != nil || strings.TrimSpace(value) != "" {
			continue
		}

		if el.TagName() == "select" {
			// Index 0 is assumed to be a placeholder.
			if err := el.SelectIndex(ctx, 1); err != nil {
				continue
			}
			filled++
			continue
		}

		name, _ := el.Attr(ctx, "name")
		id, _ := el.Attr(ctx, "id")
		placeholder, _ := el.Attr(ctx, "placeholder")
		identifier := strings.Join([]string{name, id, placeholder}, " ")

		testValue, ok := data.Lookup(identifier, inputType)
		if !ok {
			continue
		}

		if err := el.Fill(ctx, testValue); err != nil {
			f.logger.Debug(ctx, "field fill failed, skipping", map[string]interface{}{
				"field": strings.TrimSpace(identifier),
				"error": err.Error(),
			})
			continue
		}
		filled++
	}

	return filled
}
