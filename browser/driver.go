package browser

import "context"

// Viewport is a named browser window size preset.
type Viewport struct {
	Name   string
	Width  int
	Height int
}

// Viewport presets matching the device classes the evaluator supports.
var (
	ViewportDesktop = Viewport{Name: "desktop", Width: 1920, Height: 1080}
	ViewportTablet  = Viewport{Name: "tablet", Width: 768, Height: 1024}
	ViewportMobile  = Viewport{Name: "mobile", Width: 375, Height: 812}
)

// ViewportByName resolves a preset name, defaulting to desktop.
func ViewportByName(name string) Viewport {
	switch name {
	case ViewportTablet.Name:
		return ViewportTablet
	case ViewportMobile.Name:
		return ViewportMobile
	default:
		return ViewportDesktop
	}
}

// Selector describes a set of page elements. The predicates combine: an
// element matches when it satisfies the CSS selector (when set), carries
// the ARIA role (when set), and its text or value contains Text
// case-insensitively (when set). Heuristics never know the target site's
// markup, so broad selectors plus text filtering is the primary query shape.
type Selector struct {
	CSS  string
	Role string
	Text string
}

// CSS builds a plain CSS selector.
func CSS(css string) Selector {
	return Selector{CSS: css}
}

// Role builds an ARIA role selector.
func Role(role string) Selector {
	return Selector{Role: role}
}

// TextContains builds a selector matching elements under the CSS selector
// whose text contains the given fragment, case-insensitively.
func TextContains(css, text string) Selector {
	return Selector{CSS: css, Text: text}
}

// Element is a handle to a single queried page element. Read methods report
// the element's state; action methods mutate the live page. A handle may go
// stale when the page changes underneath it, in which case actions return an
// error.
type Element interface {
	TagName() string
	Text(ctx context.Context) (string, error)
	Value(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, error)
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Checked(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	SelectIndex(ctx context.Context, index int) error
}

// Driver is the capability contract over a single exclusive browser session.
// All heuristic DOM access goes through this interface so the underlying
// automation binding stays swappable and mockable.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	// PageText returns the rendered text of the document body.
	PageText(ctx context.Context) (string, error)

	// Headings returns the visible h1/h2 texts in document order.
	Headings(ctx context.Context) ([]string, error)

	// Query returns handles for all elements matching the selector.
	Query(ctx context.Context, sel Selector) ([]Element, error)

	// Screenshot captures the viewport, or the full page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// Evaluate runs a script in the page and unmarshals its result into out.
	Evaluate(ctx context.Context, script string, out interface{}) error

	// Close releases the browser session. Safe to call more than once.
	Close(ctx context.Context) error
}

// Factory creates one exclusive browser session per evaluation run.
type Factory interface {
	NewSession(ctx context.Context, vp Viewport) (Driver, error)
}
