package heuristics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/logger"
)

func endOfFlowPage(t *testing.T, p *browser.FakePage) browser.Driver {
	t.Helper()
	d := browser.NewFakeDriver(p)
	require.NoError(t, d.Navigate(context.Background(), p.URL))
	return d
}

func TestEndOfFlowClassifier_TerminalPhrase(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"thank you page", "Thank you for completing the assessment", true},
		{"order confirmation", "Your order confirmed. Confirmation number 8812.", true},
		{"mid flow page", "Please continue to step 2", false},
		{"empty body", "", false},
	}

	c := NewEndOfFlowClassifier(logger.NewTestLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := endOfFlowPage(t, &browser.FakePage{
				URL:      "https://example.com/done",
				BodyText: tt.body,
			})
			got, reason := c.IsEndOfFlow(context.Background(), page)
			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestEndOfFlowClassifier_ExitGate(t *testing.T) {
	c := NewEndOfFlowClassifier(logger.NewTestLogger())

	t.Run("visible signup button ends flow", func(t *testing.T) {
		page := endOfFlowPage(t, &browser.FakePage{
			URL:      "https://example.com/results",
			BodyText: "Here is your plan",
			Elements: []*browser.FakeElement{
				{Tag: "button", TextContent: "Sign Up To See Results"},
			},
		})
		got, reason := c.IsEndOfFlow(context.Background(), page)
		assert.True(t, got)
		assert.Contains(t, reason, "exit gate")
	})

	t.Run("hidden signup button is ignored", func(t *testing.T) {
		page := endOfFlowPage(t, &browser.FakePage{
			URL:      "https://example.com/quiz",
			BodyText: "Question 3 of 10",
			Elements: []*browser.FakeElement{
				{Tag: "button", TextContent: "Sign Up", Hidden: true},
				{Tag: "button", TextContent: "Next"},
			},
		})
		got, _ := c.IsEndOfFlow(context.Background(), page)
		assert.False(t, got)
	})

	t.Run("checkout link ends flow", func(t *testing.T) {
		page := endOfFlowPage(t, &browser.FakePage{
			URL: "https://example.com/cart",
			Elements: []*browser.FakeElement{
				{Tag: "a", TextContent: "Proceed to Checkout"},
			},
		})
		got, _ := c.IsEndOfFlow(context.Background(), page)
		assert.True(t, got)
	})
}
