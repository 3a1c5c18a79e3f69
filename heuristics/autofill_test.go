package heuristics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/logger"
)

func autofillPage(t *testing.T, elements ...*browser.FakeElement) *browser.FakeDriver {
	t.Helper()
	d := browser.NewFakeDriver(&browser.FakePage{
		URL:      "https://example.com/form",
		Elements: elements,
	})
	require.NoError(t, d.Navigate(context.Background(), "https://example.com/form"))
	return d
}

func TestFormAutofiller_FillsByName(t *testing.T) {
	ctx := context.Background()
	email := &browser.FakeElement{Tag: "input", Type: "text", Name: "email"}
	first := &browser.FakeElement{Tag: "input", Type: "text", Name: "first_name"}
	zip := &browser.FakeElement{Tag: "input", Type: "text", Placeholder: "ZIP code"}
	page := autofillPage(t, email, first, zip)

	f := NewFormAutofiller(logger.NewTestLogger())
	filled := f.Fill(ctx, page, DefaultTestData())

	assert.Equal(t, 3, filled)
	assert.Equal(t, "qa.tester@example.com", email.Val)
	assert.Equal(t, "Taylor", first.Val)
	assert.Equal(t, "94105", zip.Val)
}

func TestFormAutofiller_NeverClobbers(t *testing.T) {
	ctx := context.Background()
	email := &browser.FakeElement{Tag: "input", Type: "text", Name: "email", Val: "foo@bar.com"}
	page := autofillPage(t, email)

	f := NewFormAutofiller(logger.NewTestLogger())
	filled := f.Fill(ctx, page, DefaultTestData())

	assert.Equal(t, 0, filled)
	assert.Equal(t, "foo@bar.com", email.Val)
}

func TestFormAutofiller_Idempotent(t *testing.T) {
	ctx := context.Background()
	email := &browser.FakeElement{Tag: "input", Type: "text", Name: "email"}
	page := autofillPage(t, email)

	f := NewFormAutofiller(logger.NewTestLogger())
	assert.Equal(t, 1, f.Fill(ctx, page, DefaultTestData()))
	assert.Equal(t, 0, f.Fill(ctx, page, DefaultTestData()),
		"second pass finds nothing empty")
	assert.Equal(t, "qa.tester@example.com", email.Val)
}

func TestFormAutofiller_TypeInference(t *testing.T) {
	ctx := context.Background()
	// No recognizable name: the type attribute decides.
	email := &browser.FakeElement{Tag: "input", Type: "email", Name: "field_17"}
	tel := &browser.FakeElement{Tag: "input", Type: "tel", Name: "field_18"}
	page := autofillPage(t, email, tel)

	f := NewFormAutofiller(logger.NewTestLogger())
	assert.Equal(t, 2, f.Fill(ctx, page, DefaultTestData()))
	assert.Equal(t, "qa.tester@example.com", email.Val)
	assert.Equal(t, "5551234567", tel.Val)
}

func TestFormAutofiller_SelectPicksFirstRealOption(t *testing.T) {
	ctx := context.Background()
	sel := &browser.FakeElement{
		Tag:     "select",
		Name:    "state",
		Options: []string{"Select a state", "California", "Nevada"},
	}
	page := autofillPage(t, sel)

	f := NewFormAutofiller(logger.NewTestLogger())
	assert.Equal(t, 1, f.Fill(ctx, page, DefaultTestData()))
	assert.Equal(t, 1, sel.SelectedIndex)
	assert.Equal(t, "California", sel.Val)
}

func TestFormAutofiller_SkipsNonFillable(t *testing.T) {
	ctx := context.Background()
	hidden := &browser.FakeElement{Tag: "input", Type: "hidden", Name: "email"}
	invisible := &browser.FakeElement{Tag: "input", Type: "text", Name: "email", Hidden: true}
	disabled := &browser.FakeElement{Tag: "input", Type: "text", Name: "email", Disabled: true}
	radio := &browser.FakeElement{Tag: "input", Type: "radio", Name: "email"}
	unknown := &browser.FakeElement{Tag: "input", Type: "text", Name: "xq_blob_77"}
	page := autofillPage(t, hidden, invisible, disabled, radio, unknown)

	f := NewFormAutofiller(logger.NewTestLogger())
	assert.Equal(t, 0, f.Fill(ctx, page, DefaultTestData()))
	for _, el := range []*browser.FakeElement{hidden, invisible, disabled, radio, unknown} {
		assert.Empty(t, el.Val)
	}
}

func TestFormAutofiller_CustomDataWins(t *testing.T) {
	ctx := context.Background()
	email := &browser.FakeElement{Tag: "input", Type: "text", Name: "email"}
	page := autofillPage(t, email)

	data := DefaultTestData().Merge(map[string]string{"email": "override@example.org"})
	f := NewFormAutofiller(logger.NewTestLogger())
	assert.Equal(t, 1, f.Fill(ctx, page, data))
	assert.Equal(t, "override@example.org", email.Val)
}
