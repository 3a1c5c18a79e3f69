// Package traversal drives a browser session through an unknown multi-page
// flow, recording an audit step per page and deciding when to stop: loop
// detected, blocker hit, end of flow, step budget exhausted, or nothing left
// to click.
package traversal

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Fingerprint condenses a page's identity into a hex digest used for loop
// detection. Two visits to the same logical page produce the same value:
// query strings and fragments are ignored, heading order is kept, and button
// labels are sorted so DOM reordering does not change the digest.
func Fingerprint(pageURL string, headings []string, buttonLabels []string) string {
	var b strings.Builder

	b.WriteString(normalizeURL(pageURL))
	b.WriteByte('\n')

	for _, h := range headings {
		b.WriteString(strings.ToLower(strings.TrimSpace(h)))
		b.WriteByte('\n')
	}

	labels := make([]string, 0, len(buttonLabels))
	for _, l := range buttonLabels {
		labels = append(labels, strings.ToLower(strings.TrimSpace(l)))
	}
	sort.Strings(labels)
	for _, l := range labels {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.ToLower(u.Host + strings.TrimSuffix(u.Path, "/"))
}

// loopDetector remembers fingerprints seen during a run.
type loopDetector struct {
	seen map[string]int
}

func newLoopDetector() *loopDetector {
	return &loopDetector{seen: make(map[string]int)}
}

// observe records a fingerprint at the given 1-based step number and reports
// whether it was already seen. Recurrences on the first two steps are
// tolerated: landing pages often re-render themselves once before a flow
// actually starts.
func (d *loopDetector) observe(fingerprint string, stepNumber int) bool {
	_, dup := d.seen[fingerprint]
	d.seen[fingerprint] = stepNumber
	return dup && stepNumber > 2
}
