package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// defaultNavigationTimeout bounds a single page load. Thirty seconds rides
// out slow consent-management scripts without letting one dead page stall
// the whole plan.
const defaultNavigationTimeout = 30 * time.Second

// Viewport dimensions for all sessions. A common desktop size; consent
// banners and footer links behave differently at mobile widths, and the
// audit targets the desktop experience.
const (
	viewportWidth  = 1280
	viewportHeight = 800
)

// Chrome launches isolated Chrome sessions through chromedp.
// It implements Launcher.
type Chrome struct {
	headless   bool
	navTimeout time.Duration
}

// ChromeOption configures the launcher.
type ChromeOption func(*Chrome)

// WithHeadless toggles headless mode. Running headful is useful when
// debugging banner and opt-out selector heuristics against a live site.
func WithHeadless(headless bool) ChromeOption {
	return func(c *Chrome) {
		c.headless = headless
	}
}

// WithNavigationTimeout overrides the per-navigation deadline.
func WithNavigationTimeout(timeout time.Duration) ChromeOption {
	return func(c *Chrome) {
		if timeout > 0 {
			c.navTimeout = timeout
		}
	}
}

// NewChrome creates a Chrome launcher. No browser process starts until
// NewSession is called.
func NewChrome(opts ...ChromeOption) *Chrome {
	c := &Chrome{
		headless:   true,
		navTimeout: defaultNavigationTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSession starts a Chrome process with a fresh temporary profile and
// returns a Session bound to it. The context governs the whole session
// lifetime: cancelling it kills the browser.
func (c *Chrome) NewSession(ctx context.Context, opts ...SessionOption) (Session, error) {
	var cfg SessionSettings
	for _, opt := range opts {
		opt(&cfg)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		// Audited sites frequently serve trackers from hosts with sloppy
		// certificate chains; a TLS failure must not hide the request.
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx:        taskCtx,
		navTimeout: c.navTimeout,
		cancel: func() {
			taskCancel()
			allocCancel()
		},
	}

	if cfg.Observer != nil {
		observer := cfg.Observer
		chromedp.ListenTarget(taskCtx, func(ev any) {
			e, ok := ev.(*network.EventRequestWillBeSent)
			if !ok || e.Request == nil {
				return
			}
			ts := time.Now().UnixMilli()
			if e.WallTime != nil {
				ts = e.WallTime.Time().UnixMilli()
			}
			observer(Request{
				URL:          e.Request.URL,
				Method:       e.Request.Method,
				ResourceType: strings.ToLower(string(e.Type)),
				TimestampMs:  ts,
			})
		})
	}

	// Priming actions run before the first navigation so the opt-out
	// signal, when requested, is visible to the very first request.
	prime := []chromedp.Action{network.Enable()}
	if cfg.GPC {
		prime = append(prime,
			network.SetExtraHTTPHeaders(network.Headers{GPCHeaderName: GPCHeaderValue}),
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, err := page.AddScriptToEvaluateOnNewDocument(GPCInitScript).Do(ctx)
				return err
			}),
		)
	}
	if err := chromedp.Run(taskCtx, prime...); err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	return s, nil
}

// chromeSession drives one Chrome process. It implements Session.
type chromeSession struct {
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
	closed     bool
}

// Navigate loads the URL, waits for the document body, and reports the
// final URL, title, and status. The navigation deadline applies on top of
// any caller deadline.
func (s *chromeSession) Navigate(ctx context.Context, url string) (*NavigationResult, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if url == "" {
		return nil, ErrEmptyURL
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	var title, finalURL string
	if err := chromedp.Run(runCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
	); err != nil {
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	result := &NavigationResult{FinalURL: finalURL, Title: title}
	if resp != nil {
		result.Status = int(resp.Status)
	}
	return result, nil
}

// HTML returns the document's outer HTML.
func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture document HTML: %w", err)
	}
	return html, nil
}

// Evaluate runs a JavaScript expression and decodes its result into out.
func (s *chromeSession) Evaluate(ctx context.Context, expression string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// Scroll steps down the page and returns to the top.
func (s *chromeSession) Scroll(ctx context.Context, steps int, delay time.Duration) error {
	actions := make([]chromedp.Action, 0, steps*2+1)
	for i := 0; i < steps; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollBy(0, window.innerHeight * 0.8)`, nil),
			chromedp.Sleep(delay),
		)
	}
	actions = append(actions, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))

	if err := s.run(ctx, actions...); err != nil {
		return fmt.Errorf("failed to scroll page: %w", err)
	}
	return nil
}

// Close tears down the tab, the browser process, and the temporary profile.
func (s *chromeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return nil
}

// run executes chromedp actions on the session context while honoring the
// caller's context for cancellation.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed {
		return ErrSessionClosed
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Interface conformance checks.
var (
	_ Launcher = (*Chrome)(nil)
	_ Session  = (*chromeSession)(nil)
)
