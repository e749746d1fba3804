package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Prober performs a preflight reachability check against a target before
// any browser session is started. Launching two Chrome instances costs
// seconds and hundreds of megabytes; a misspelled or dead target should
// fail in well under a second instead.
//
// Design decision: We use a struct with an http.Client rather than passing
// the client on each call because:
//  1. Client configuration (timeouts, TLS) should be consistent
//  2. Connection pooling works better with a shared client
//  3. Easier to test with httptest servers
type Prober struct {
	// client is the HTTP client used for probe requests.
	client *http.Client

	// userAgent is the User-Agent header to use for requests.
	// Default simulates a standard browser so bot walls respond the same
	// way they will respond to the audit session.
	userAgent string

	// timeout is the per-probe timeout covering both attempts.
	timeout time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets a custom HTTP client.
// Tests use this to wire httptest TLS clients.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		p.client = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		p.userAgent = ua
	}
}

// WithTimeout sets the total probe timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// New creates a Prober with sensible defaults.
//
// Design decision: Unlike components that talk through a preconfigured
// transport, the prober builds its own default client because it has no
// proxy or session state to inherit; the option exists for tests.
func New(opts ...Option) *Prober {
	p := &Prober{
		// Default User-Agent mimics Chrome on Linux so the target treats
		// the probe like the browser session that follows it.
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		timeout:   10 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		p.client = &http.Client{Timeout: p.timeout}
	}

	return p
}

// Result contains the outcome of a reachability probe.
type Result struct {
	// Target is the probed URL after scheme normalization.
	Target string

	// FinalURL is the URL after following redirects. An http target that
	// redirects to https reports the https URL here.
	FinalURL string

	// Reachable is true if the target answered any HTTP response at all.
	// Status codes are recorded but never flip this to false: a 403 bot
	// wall is still a site the browser session can observe.
	Reachable bool

	// StatusCode is the HTTP status of the successful attempt.
	StatusCode int

	// Method is the HTTP method that got the answer (HEAD or GET).
	Method string

	// Server is the Server response header, if any.
	Server string

	// TLS indicates whether the final connection used TLS.
	TLS bool

	// TLSVersion contains the TLS version if TLS was used.
	TLSVersion string

	// ElapsedMs is the probe duration in milliseconds.
	ElapsedMs int64
}

// Probe checks that the target answers HTTP at all. It tries HEAD first
// because it is cheap, then falls back to GET for servers that reject or
// mishandle HEAD. Any HTTP response counts as reachable; only a transport
// failure on both attempts returns ErrUnreachable.
func (p *Prober) Probe(ctx context.Context, target string) (*Result, error) {
	target = normalizeScheme(target)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.attempt(ctx, http.MethodHead, target)
	method := http.MethodHead

	// Fall back to GET when HEAD failed at the transport level or the
	// server refuses the method.
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		if resp != nil {
			drain(resp)
		}
		resp, err = p.attempt(ctx, http.MethodGet, target)
		method = http.MethodGet
	}

	if err != nil {
		slog.Debug("Probe failed", "target", target, "error", err)
		return nil, fmt.Errorf("failed to reach %s: %w", target, ErrUnreachable)
	}
	defer drain(resp)

	result := &Result{
		Target:     target,
		FinalURL:   resp.Request.URL.String(),
		Reachable:  true,
		StatusCode: resp.StatusCode,
		Method:     method,
		Server:     resp.Header.Get("Server"),
		ElapsedMs:  time.Since(start).Milliseconds(),
	}

	if resp.TLS != nil {
		result.TLS = true
		result.TLSVersion = tlsVersionName(resp.TLS.Version)
	}

	slog.Debug("Probe succeeded",
		"target", target,
		"status", result.StatusCode,
		"method", method,
		"elapsed_ms", result.ElapsedMs)

	return result, nil
}

// attempt performs one probe request.
func (p *Prober) attempt(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	return p.client.Do(req)
}

// drain discards a bounded amount of the response body and closes it, so
// the underlying connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 32*1024)) //nolint:errcheck // best-effort drain
	_ = resp.Body.Close()
}

// normalizeScheme defaults a bare host to https. Consumer sites redirect
// plain http to https anyway; defaulting avoids one redirect round trip.
func normalizeScheme(target string) string {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "https://" + target
	}
	return target
}

// tlsVersionName maps a TLS version constant to its display name.
func tlsVersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "Unknown"
	}
}
