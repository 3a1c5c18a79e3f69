package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// FakeDriver is an in-memory Driver used in tests. Pages are keyed by URL;
// element OnClick hooks mutate the driver to model navigation and widget
// state changes.
type FakeDriver struct {
	mu          sync.Mutex
	pages       map[string]*FakePage
	current     *FakePage
	closed      bool
	Screenshots int

	NavigateErr   error
	ScreenshotErr error
}

// FakePage models one page of a fake site.
type FakePage struct {
	URL      string
	Title    string
	BodyText string
	Headings []string
	Elements []*FakeElement
}

// FakeElement models a single DOM element. Zero values mean visible,
// enabled, and unchecked.
type FakeElement struct {
	Tag          string
	Role         string
	Type         string
	Name         string
	ID           string
	Class        string
	Placeholder  string
	For          string
	Src          string
	Autocomplete string

	TextContent string
	Val         string

	Hidden   bool
	Disabled bool
	Checked  bool

	Options       []string
	SelectedIndex int

	// OnClick runs when the element is clicked.
	OnClick func(d *FakeDriver)
}

// NewFakeDriver creates a driver knowing the given pages.
func NewFakeDriver(pages ...*FakePage) *FakeDriver {
	d := &FakeDriver{pages: make(map[string]*FakePage)}
	for _, p := range pages {
		d.pages[p.URL] = p
	}
	return d
}

// AddPage registers another page.
func (d *FakeDriver) AddPage(p *FakePage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[p.URL] = p
}

// Goto switches the current page without error handling; used by OnClick
// hooks to model navigation.
func (d *FakeDriver) Goto(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pages[url]; ok {
		d.current = p
	}
}

// Page returns the current page.
func (d *FakeDriver) Page() *FakePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Closed reports whether Close was called.
func (d *FakeDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	p, ok := d.pages[url]
	if !ok {
		return fmt.Errorf("fake driver has no page for %s", url)
	}
	d.current = p
	return nil
}

func (d *FakeDriver) CurrentURL(ctx context.Context) (string, error) {
	p, err := d.page()
	if err != nil {
		return "", err
	}
	return p.URL, nil
}

func (d *FakeDriver) Title(ctx context.Context) (string, error) {
	p, err := d.page()
	if err != nil {
		return "", err
	}
	return p.Title, nil
}

func (d *FakeDriver) PageText(ctx context.Context) (string, error) {
	p, err := d.page()
	if err != nil {
		return "", err
	}
	return p.BodyText, nil
}

func (d *FakeDriver) Headings(ctx context.Context) ([]string, error) {
	p, err := d.page()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), p.Headings...), nil
}

func (d *FakeDriver) Query(ctx context.Context, sel Selector) ([]Element, error) {
	p, err := d.page()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Element
	for _, el := range p.Elements {
		if matchSelector(el, sel) {
			out = append(out, &fakeHandle{driver: d, el: el})
		}
	}
	return out, nil
}

func (d *FakeDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	d.Screenshots++
	return []byte("fake-png"), nil
}

func (d *FakeDriver) Evaluate(ctx context.Context, script string, out interface{}) error {
	return errors.New("fake driver does not evaluate scripts")
}

func (d *FakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *FakeDriver) page() (*FakePage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrSessionClosed
	}
	if d.current == nil {
		return nil, errors.New("fake driver has no current page")
	}
	return d.current, nil
}

// FakeFactory hands out a prepared FakeDriver, or an error to model browser
// launch failures.
type FakeFactory struct {
	Driver *FakeDriver
	Err    error

	mu       sync.Mutex
	sessions int
}

func (f *FakeFactory) NewSession(ctx context.Context, vp Viewport) (Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.sessions++
	return f.Driver, nil
}

// Sessions reports how many sessions were created.
func (f *FakeFactory) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

// fakeHandle implements Element over a FakeElement.
type fakeHandle struct {
	driver *FakeDriver
	el     *FakeElement
}

func (h *fakeHandle) TagName() string { return h.el.Tag }

func (h *fakeHandle) Text(ctx context.Context) (string, error) {
	return h.el.effectiveText(), nil
}

func (h *fakeHandle) Value(ctx context.Context) (string, error) {
	return h.el.Val, nil
}

func (h *fakeHandle) Attr(ctx context.Context, name string) (string, error) {
	return h.el.attr(name), nil
}

func (h *fakeHandle) Visible(ctx context.Context) (bool, error) {
	return !h.el.Hidden, nil
}

func (h *fakeHandle) Enabled(ctx context.Context) (bool, error) {
	return !h.el.Disabled, nil
}

func (h *fakeHandle) Checked(ctx context.Context) (bool, error) {
	return h.el.Checked, nil
}

func (h *fakeHandle) Click(ctx context.Context) error {
	el := h.el

	// A label click lands on the control it is for.
	if strings.EqualFold(el.Tag, "label") && el.For != "" {
		if p := h.driver.Page(); p != nil {
			for _, other := range p.Elements {
				if other.ID == el.For {
					el = other
					break
				}
			}
		}
	}

	switch strings.ToLower(el.Type) {
	case "checkbox":
		el.Checked = !el.Checked
	case "radio":
		el.Checked = true
	}

	if el.OnClick != nil {
		el.OnClick(h.driver)
	}
	return nil
}

func (h *fakeHandle) Fill(ctx context.Context, value string) error {
	h.el.Val = value
	return nil
}

func (h *fakeHandle) SelectIndex(ctx context.Context, index int) error {
	if index < 0 || index >= len(h.el.Options) {
		return fmt.Errorf("option index %d out of range", index)
	}
	h.el.SelectedIndex = index
	h.el.Val = h.el.Options[index]
	return nil
}

func (el *FakeElement) effectiveText() string {
	if el.TextContent != "" {
		return el.TextContent
	}
	return el.Val
}

func (el *FakeElement) attr(name string) string {
	switch strings.ToLower(name) {
	case "id":
		return el.ID
	case "name":
		return el.Name
	case "type":
		return strings.ToLower(el.Type)
	case "class":
		return el.Class
	case "placeholder":
		return el.Placeholder
	case "role":
		return strings.ToLower(el.Role)
	case "for":
		return el.For
	case "src":
		return el.Src
	case "autocomplete":
		return el.Autocomplete
	default:
		return ""
	}
}

// matchSelector applies the Selector predicates to a fake element.
func matchSelector(el *FakeElement, sel Selector) bool {
	if sel.Role != "" && !strings.EqualFold(el.Role, sel.Role) {
		return false
	}
	if sel.CSS != "" && !matchCSSList(el, sel.CSS) {
		return false
	}
	if sel.Text != "" {
		text := strings.ToLower(el.effectiveText())
		if !strings.Contains(text, strings.ToLower(sel.Text)) {
			return false
		}
	}
	return true
}

// matchCSSList supports the selector subset the heuristics use: comma
// lists of `tag[attr="v"][attr*="v"]` simple selectors.
func matchCSSList(el *FakeElement, css string) bool {
	for _, part := range strings.Split(css, ",") {
		if matchCSSSimple(el, strings.TrimSpace(part)) {
			return true
		}
	}
	return false
}

func matchCSSSimple(el *FakeElement, s string) bool {
	if s == "" {
		return false
	}

	tag := s
	rest := ""
	if i := strings.IndexByte(s, '['); i >= 0 {
		tag = s[:i]
		rest = s[i:]
	}
	if tag != "" && tag != "*" && !strings.EqualFold(tag, el.Tag) {
		return false
	}

	for rest != "" {
		if rest[0] != '[' {
			return false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return false
		}
		if !matchAttrExpr(el, rest[1:end]) {
			return false
		}
		rest = rest[end+1:]
	}
	return true
}

func matchAttrExpr(el *FakeElement, expr string) bool {
	if i := strings.Index(expr, "*="); i >= 0 {
		name := strings.TrimSpace(expr[:i])
		val := trimQuotes(strings.TrimSpace(expr[i+2:]))
		return strings.Contains(strings.ToLower(el.attr(name)), strings.ToLower(val))
	}
	if i := strings.IndexByte(expr, '='); i >= 0 {
		name := strings.TrimSpace(expr[:i])
		val := trimQuotes(strings.TrimSpace(expr[i+1:]))
		return strings.EqualFold(el.attr(name), val)
	}
	return el.attr(strings.TrimSpace(expr)) != ""
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
