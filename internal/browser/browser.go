package browser

import (
	"context"
	"time"
)

// Opt-out signal constants. The compliance session asserts Global Privacy
// Control both ways user agents do: as a request header on every request
// and as a JavaScript property scripts can query before any page code runs.
const (
	// GPCHeaderName is the GPC request header field name.
	GPCHeaderName = "Sec-GPC"

	// GPCHeaderValue is the asserted header value.
	GPCHeaderValue = "1"

	// GPCInitScript defines navigator.globalPrivacyControl before any page
	// script executes.
	GPCInitScript = "Object.defineProperty(navigator, 'globalPrivacyControl', " +
		"{get: () => true, configurable: true});"
)

// Request is one outbound request observed during a session.
type Request struct {
	// URL is the full request URL.
	URL string

	// Method is the HTTP method.
	Method string

	// ResourceType is the browser's lowercase resource classification
	// (document, script, xhr, image, ...). Empty when the browser did not
	// classify the request.
	ResourceType string

	// TimestampMs is the wall-clock send time in Unix milliseconds.
	TimestampMs int64
}

// NavigationResult describes a settled navigation.
type NavigationResult struct {
	// FinalURL is the URL after redirects.
	FinalURL string

	// Title is the document title.
	Title string

	// Status is the main document's HTTP status code. Zero when the
	// browser reused a cached document and no response was observed.
	Status int
}

// Session is one isolated browsing context. Methods are called from a
// single session goroutine; the request observer is invoked concurrently
// from the browser event stream.
type Session interface {
	// Navigate loads the URL and waits for the document to settle.
	Navigate(ctx context.Context, url string) (*NavigationResult, error)

	// HTML returns the current document's outer HTML.
	HTML(ctx context.Context) (string, error)

	// Evaluate runs a JavaScript expression in the page and decodes its
	// JSON result into out. Pass nil when the result does not matter.
	Evaluate(ctx context.Context, expression string, out any) error

	// Scroll scrolls the viewport down steps times, pausing delay between
	// steps, then returns to the top. It drives lazy-loaded content and
	// scroll-triggered beacons.
	Scroll(ctx context.Context, steps int, delay time.Duration) error

	// Close tears the session down and releases the browser process.
	Close() error
}

// Launcher creates isolated browser sessions.
type Launcher interface {
	NewSession(ctx context.Context, opts ...SessionOption) (Session, error)
}

// SessionSettings collects per-session settings. It is exported so
// Launcher implementations outside this package, fakes in tests included,
// can apply the same options the Chrome launcher understands.
type SessionSettings struct {
	// GPC asserts the opt-out signal for the session.
	GPC bool

	// Observer receives every outbound request, or nil.
	Observer func(Request)
}

// SessionOption configures one session at creation time.
type SessionOption func(*SessionSettings)

// WithGlobalPrivacyControl asserts the opt-out signal for the session:
// the Sec-GPC header on every request plus the navigator init script,
// registered before the first navigation.
func WithGlobalPrivacyControl() SessionOption {
	return func(s *SessionSettings) {
		s.GPC = true
	}
}

// WithRequestObserver registers a callback invoked once per outbound
// request. The callback runs on the browser event goroutine and must be
// safe to call concurrently with session methods.
func WithRequestObserver(fn func(Request)) SessionOption {
	return func(s *SessionSettings) {
		s.Observer = fn
	}
}
