package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestData_Lookup(t *testing.T) {
	data := DefaultTestData()

	tests := []struct {
		name       string
		identifier string
		inputType  string
		want       string
		wantOK     bool
	}{
		{"exact key", "email", "text", "qa.tester@example.com", true},
		{"identifier contains key", "user_email", "text", "qa.tester@example.com", true},
		{"separator insensitive", "First-Name", "text", "Taylor", true},
		{"camel case", "firstName", "text", "Taylor", true},
		{"placeholder fragment", "Enter your ZIP", "text", "94105", true},
		{"longer key wins", "first_name", "text", "Taylor", true},
		{"type inference email", "field_17", "email", "qa.tester@example.com", true},
		{"type inference tel", "field_18", "tel", "5551234567", true},
		{"keyword inference birth", "date_of_birth", "text", "01/15/1990", true},
		{"bare name falls to full name", "your_name", "text", "Taylor Morgan", true},
		{"unknown", "xq_blob_77", "text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := data.Lookup(tt.identifier, tt.inputType)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestData_Merge(t *testing.T) {
	data := DefaultTestData().Merge(map[string]string{
		"email":      "override@example.org",
		"Pet-Name":   "Rex",
		"first_name": "Jamie",
	})

	got, ok := data.Lookup("email", "text")
	require.True(t, ok)
	assert.Equal(t, "override@example.org", got)

	got, ok = data.Lookup("petname", "text")
	require.True(t, ok)
	assert.Equal(t, "Rex", got)

	got, ok = data.Lookup("first_name", "text")
	require.True(t, ok)
	assert.Equal(t, "Jamie", got)

	// Defaults survive the merge.
	got, ok = data.Lookup("zip", "text")
	require.True(t, ok)
	assert.Equal(t, "94105", got)

	// The original dictionary is untouched.
	orig, ok := DefaultTestData().Lookup("email", "text")
	require.True(t, ok)
	assert.Equal(t, "qa.tester@example.com", orig)
}
