package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/draphael123/Evaluation-Tracker/logger"
)

var (
	// ErrStaleElement is returned when an element handle no longer resolves
	// to a live node, typically because the page navigated or re-rendered.
	ErrStaleElement = errors.New("element is no longer attached to the page")

	// ErrSessionClosed is returned when an operation is attempted on a
	// closed browser session.
	ErrSessionClosed = errors.New("browser session is closed")
)

// ChromeOptions configures Chrome sessions created by ChromeFactory.
type ChromeOptions struct {
	Headless  bool
	UserAgent string

	// OpTimeout bounds individual DOM operations. Expired waits degrade
	// gracefully; they never abort the run on their own.
	OpTimeout time.Duration

	// NavTimeout bounds full page navigations.
	NavTimeout time.Duration
}

// ChromeFactory creates chromedp-backed browser sessions.
type ChromeFactory struct {
	opts   ChromeOptions
	logger logger.Logger
}

// NewChromeFactory creates a factory with sane timeout defaults.
func NewChromeFactory(opts ChromeOptions, log logger.Logger) *ChromeFactory {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	return &ChromeFactory{opts: opts, logger: log}
}

// NewSession launches a Chrome instance sized to the viewport. The session
// owns the browser process exclusively until Close.
func (f *ChromeFactory) NewSession(ctx context.Context, vp Viewport) (Driver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.WindowSize(vp.Width, vp.Height),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-background-networking", true),
	)
	if f.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(f.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	taskCtx, cancel := chromedp.NewContext(allocCtx)

	// Dismiss alert/confirm/prompt dialogs as they appear. An unattended
	// dialog blocks every subsequent CDP command.
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() {
				if err := chromedp.Run(taskCtx, page.HandleJavaScriptDialog(false)); err != nil {
					f.logger.Warn(taskCtx, "failed to dismiss page dialog", map[string]interface{}{
						"error": err.Error(),
					})
				}
			}()
		}
	})

	d := &ChromeDriver{
		ctx:         taskCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        f.opts,
		logger:      f.logger,
	}

	// The first Run starts the browser process.
	if err := d.run(ctx, f.opts.NavTimeout,
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)),
	); err != nil {
		d.Close(ctx)
		return nil, fmt.Errorf("failed to launch browser session: %w", err)
	}

	return d, nil
}

// ChromeDriver implements Driver over a chromedp session.
type ChromeDriver struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        ChromeOptions
	logger      logger.Logger

	closeOnce sync.Once
	closed    bool
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, d.opts.NavTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	// Settle on the body being ready; a slow page is observed as-is rather
	// than failing the step.
	if err := d.run(ctx, d.opts.OpTimeout, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		d.logger.Warn(ctx, "page did not settle, proceeding with current state", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}

	return nil
}

func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, d.opts.OpTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (d *ChromeDriver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, d.opts.OpTimeout, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (d *ChromeDriver) PageText(ctx context.Context) (string, error) {
	var text string
	if err := d.Evaluate(ctx, jsBodyText, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (d *ChromeDriver) Headings(ctx context.Context) ([]string, error) {
	var headings []string
	if err := d.Evaluate(ctx, jsHeadings, &headings); err != nil {
		return nil, err
	}
	return headings, nil
}

func (d *ChromeDriver) Query(ctx context.Context, sel Selector) ([]Element, error) {
	var snaps []elementSnapshot
	if err := d.Evaluate(ctx, jsQuery(sel), &snaps); err != nil {
		return nil, err
	}

	elements := make([]Element, 0, len(snaps))
	for _, snap := range snaps {
		elements = append(elements, &chromeElement{
			driver: d,
			sel:    sel,
			snap:   snap,
		})
	}
	return elements, nil
}

func (d *ChromeDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := d.run(ctx, d.opts.OpTimeout, action); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (d *ChromeDriver) Evaluate(ctx context.Context, script string, out interface{}) error {
	return d.run(ctx, d.opts.OpTimeout, chromedp.Evaluate(script, out))
}

// Close tears down the tab and the browser process. Idempotent.
func (d *ChromeDriver) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closed = true
		d.cancel()
		d.allocCancel()
	})
	return nil
}

// run executes chromedp actions bounded by both the caller's context and the
// per-operation timeout.
func (d *ChromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if d.closed {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx := d.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	return chromedp.Run(runCtx, actions...)
}

// chromeElement is a handle into one query result. State reads come from the
// snapshot taken at query time; actions re-resolve the element inside the
// page by re-running the query.
type chromeElement struct {
	driver *ChromeDriver
	sel    Selector
	snap   elementSnapshot
}

func (e *chromeElement) TagName() string {
	return e.snap.Tag
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	return e.snap.Text, nil
}

func (e *chromeElement) Value(ctx context.Context) (string, error) {
	return e.snap.Value, nil
}

func (e *chromeElement) Attr(ctx context.Context, name string) (string, error) {
	return e.snap.Attrs[name], nil
}

func (e *chromeElement) Visible(ctx context.Context) (bool, error) {
	return e.snap.Visible, nil
}

func (e *chromeElement) Enabled(ctx context.Context) (bool, error) {
	return e.snap.Enabled, nil
}

func (e *chromeElement) Checked(ctx context.Context) (bool, error) {
	return e.snap.Checked, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.act(ctx, actionArg{Index: e.snap.Index, Action: "click"})
}

func (e *chromeElement) Fill(ctx context.Context, value string) error {
	return e.act(ctx, actionArg{Index: e.snap.Index, Action: "fill", Value: value})
}

func (e *chromeElement) SelectIndex(ctx context.Context, index int) error {
	return e.act(ctx, actionArg{Index: e.snap.Index, Action: "select", OptionIndex: index})
}

func (e *chromeElement) act(ctx context.Context, arg actionArg) error {
	var ok bool
	if err := e.driver.Evaluate(ctx, jsAction(e.sel, arg), &ok); err != nil {
		return err
	}
	if !ok {
		return ErrStaleElement
	}
	return nil
}
