package traversal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("https://example.com/quiz", []string{"Step 1"}, []string{"Next", "Back"})
	b := Fingerprint("https://example.com/quiz", []string{"Step 1"}, []string{"Next", "Back"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_Normalization(t *testing.T) {
	base := Fingerprint("https://example.com/quiz", []string{"Step 1"}, []string{"Next", "Back"})

	t.Run("query and fragment ignored", func(t *testing.T) {
		got := Fingerprint("https://example.com/quiz?utm_source=ad#top", []string{"Step 1"}, []string{"Next", "Back"})
		assert.Equal(t, base, got)
	})

	t.Run("trailing slash ignored", func(t *testing.T) {
		got := Fingerprint("https://example.com/quiz/", []string{"Step 1"}, []string{"Next", "Back"})
		assert.Equal(t, base, got)
	})

	t.Run("button order ignored", func(t *testing.T) {
		got := Fingerprint("https://example.com/quiz", []string{"Step 1"}, []string{"Back", "Next"})
		assert.Equal(t, base, got)
	})

	t.Run("case insensitive", func(t *testing.T) {
		got := Fingerprint("https://EXAMPLE.com/quiz", []string{"STEP 1"}, []string{"NEXT", "back"})
		assert.Equal(t, base, got)
	})

	t.Run("heading order matters", func(t *testing.T) {
		a := Fingerprint("https://example.com", []string{"One", "Two"}, nil)
		b := Fingerprint("https://example.com", []string{"Two", "One"}, nil)
		assert.NotEqual(t, a, b)
	})

	t.Run("different path differs", func(t *testing.T) {
		got := Fingerprint("https://example.com/other", []string{"Step 1"}, []string{"Next", "Back"})
		assert.NotEqual(t, base, got)
	})
}

func TestLoopDetector(t *testing.T) {
	t.Run("distinct pages never trip", func(t *testing.T) {
		d := newLoopDetector()
		assert.False(t, d.observe("aaa", 1))
		assert.False(t, d.observe("bbb", 2))
		assert.False(t, d.observe("ccc", 3))
	})

	t.Run("early recurrence tolerated", func(t *testing.T) {
		d := newLoopDetector()
		assert.False(t, d.observe("aaa", 1))
		assert.False(t, d.observe("aaa", 2), "landing page re-render is not a loop")
	})

	t.Run("recurrence after step two halts", func(t *testing.T) {
		d := newLoopDetector()
		assert.False(t, d.observe("aaa", 1))
		assert.False(t, d.observe("bbb", 2))
		assert.True(t, d.observe("aaa", 3))
	})
}
