package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/gpcscan/gpcscan/internal/model"
)

// Default configuration values.
// These values follow typical consumer-site characteristics: pages are fast
// to load but heavy with deferred scripts, so delays lean toward letting
// beacons fire rather than finishing quickly.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "gpcscan"

	// DefaultJurisdiction selects the CCPA-style rule set. Most GPC
	// enforcement to date is Californian; auditors targeting EU sites
	// switch with --jurisdiction eu.
	DefaultJurisdiction = model.JurisdictionCalifornia

	// DefaultMaxPages is the crawl budget per audit. Ten pages cover the
	// homepage plus the privacy-relevant paths (policy, contact, checkout)
	// on most sites while keeping a full audit under a few minutes.
	DefaultMaxPages = 10

	// DefaultMaxJourneys caps the URL plan replayed by both sessions.
	// The plan is risk-ranked, so twenty entries is already generous:
	// everything after the first few high-risk pages rarely changes the
	// verdict.
	DefaultMaxJourneys = 20

	// DefaultActionDelay is the pause after navigations and between scroll
	// steps. Analytics beacons commonly defer behind requestIdleCallback
	// or short timers; 800ms gives them room to fire so the traffic log
	// reflects what a real visit produces.
	DefaultActionDelay = 800 * time.Millisecond

	// DefaultPageLoadTimeout bounds a single navigation. Thirty seconds is
	// generous for consumer sites; pages slower than this are skipped
	// rather than stalling the whole session.
	DefaultPageLoadTimeout = 30 * time.Second

	// DefaultLeakWindow is the post-load window in which a tracker request
	// counts as a temporal leak: the request left before any opt-out
	// processing could plausibly have happened. 500ms matches how quickly
	// tag managers boot on commodity hardware.
	DefaultLeakWindow = 500 * time.Millisecond

	// DefaultScrollSteps is how many viewport-heights each page is
	// scrolled. Three steps trigger most lazy-loaded embeds and
	// scroll-depth beacons without turning every page visit into a tour.
	DefaultScrollSteps = 3

	// DefaultBatchSize is the number of concurrent audits in batch mode.
	// Each audit runs two Chrome instances, so this is kept low; raise it
	// only on machines with memory to spare.
	DefaultBatchSize = 2

	// DefaultOracleTimeout bounds one oracle API call. The heuristic
	// fallback makes a slow oracle a latency problem, not a correctness
	// one, so this stays short.
	DefaultOracleTimeout = 20 * time.Second

	// DefaultOracleModel is the model requested from the oracle endpoint.
	DefaultOracleModel = "gpt-4o"

	// DefaultOracleEndpoint is the OpenAI-compatible chat-completions URL
	// the live oracle posts to. Any compatible gateway works.
	DefaultOracleEndpoint = "https://api.openai.com/v1/chat/completions"
)

// Oracle API key environment variables, checked in order. The generic
// OPENAI_API_KEY is honored so an already-configured shell needs nothing
// gpcscan-specific.
const (
	OracleAPIKeyEnv         = "GPCSCAN_ORACLE_API_KEY"
	OracleAPIKeyFallbackEnv = "OPENAI_API_KEY"
)

// Config holds all configuration options for gpcscan.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, SessionConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Targets is the list of root URLs to audit.
	// Must contain at least one http(s) URL.
	Targets []string

	// Jurisdiction selects the regulation rule set violations are cited
	// against: model.JurisdictionCalifornia or model.JurisdictionEU.
	Jurisdiction string

	// MaxPages is the maximum number of pages the crawl visits.
	// This bounds runaway crawling on large or infinitely-generating sites.
	MaxPages int

	// MaxJourneys caps how many graph URLs make it into the session plan.
	// The plan is taken from the top of the risk-sorted graph.
	MaxJourneys int

	// ActionDelay is the pause after a navigation settles and between
	// scroll steps. Shorter values finish faster but under-count deferred
	// tracker beacons.
	ActionDelay time.Duration

	// PageLoadTimeout bounds each navigation. A page exceeding it is
	// logged and skipped; the audit continues.
	PageLoadTimeout time.Duration

	// LeakWindow is the temporal-leak detection window after page load.
	LeakWindow time.Duration

	// ScrollSteps is how many times each page is scrolled down by one
	// viewport height before checks run.
	ScrollSteps int

	// Headless controls whether Chrome runs without a visible window.
	// Disable for debugging a misbehaving site.
	Headless bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of concurrent audits when processing multiple
	// targets. Every audit costs two browser processes.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches the current directory, the XDG config
	// directory, and the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config
	// file. Populated by LoadConfigFile and applied per target.
	SiteConfigs *File

	// ExtraOptOutPatterns are additional opt-out link text patterns matched
	// during per-page checks, on top of the built-in set. Populated from
	// site overrides.
	ExtraOptOutPatterns []string

	// JSONReport enables JSON report output instead of the console format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the console
	// format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite audit history.
	// When set, completed audits are saved for later comparison.
	// Defaults to the XDG data directory (~/.local/share/gpcscan on Linux).
	DBDir string

	// SaveToDB indicates whether to save audit results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// RulesFile optionally points at a user-supplied SQL rule seed.
	// When empty, the embedded rule table is used.
	RulesFile string

	// OracleEndpoint is the OpenAI-compatible chat-completions URL the live
	// oracle posts page summaries to. Empty disables the live oracle; the
	// deterministic heuristic runs alone.
	OracleEndpoint string

	// OracleModel is the model name sent with oracle requests.
	OracleModel string

	// OracleAPIKey authenticates oracle requests. Never logged; the secure
	// log handler masks it if it ever reaches a log attribute.
	OracleAPIKey string

	// OracleTimeout bounds a single oracle call.
	OracleTimeout time.Duration
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., delays, page caps).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Jurisdiction:    DefaultJurisdiction,
		MaxPages:        DefaultMaxPages,
		MaxJourneys:     DefaultMaxJourneys,
		ActionDelay:     DefaultActionDelay,
		PageLoadTimeout: DefaultPageLoadTimeout,
		LeakWindow:      DefaultLeakWindow,
		ScrollSteps:     DefaultScrollSteps,
		Headless:        true,
		BatchSize:       DefaultBatchSize,
		OracleEndpoint:  DefaultOracleEndpoint,
		OracleModel:     DefaultOracleModel,
		OracleTimeout:   DefaultOracleTimeout,
	}
}

// XDGDataDir returns the XDG data directory for gpcscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/gpcscan
// On macOS: ~/Library/Application Support/gpcscan
// On Windows: %LOCALAPPDATA%\gpcscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for gpcscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/gpcscan
// On macOS: ~/Library/Application Support/gpcscan
// On Windows: %APPDATA%\gpcscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for gpcscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/gpcscan
// On macOS: ~/Library/Caches/gpcscan
// On Windows: %LOCALAPPDATA%\gpcscan\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any browser starts.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one target to audit
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// Unknown jurisdictions would load an empty rule table and silently
	// produce zero violations, so reject them upfront
	if c.Jurisdiction != model.JurisdictionCalifornia && c.Jurisdiction != model.JurisdictionEU {
		return ErrInvalidJurisdiction
	}

	// Timeout must be positive; zero timeout would fail every navigation
	if c.PageLoadTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// MaxPages must be positive; zero would mean an empty graph
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	// MaxJourneys must be positive; zero would mean empty sessions
	if c.MaxJourneys <= 0 {
		return ErrInvalidMaxJourneys
	}

	// The leak window must be positive; the boundary semantics (exactly
	// window included) degenerate otherwise
	if c.LeakWindow <= 0 {
		return ErrInvalidLeakWindow
	}

	// ActionDelay and ScrollSteps may be zero (fast test runs) but not negative
	if c.ActionDelay < 0 {
		return ErrInvalidActionDelay
	}
	if c.ScrollSteps < 0 {
		return ErrInvalidScrollSteps
	}

	// BatchSize must be positive; zero would mean no audits run
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// ForTarget returns a copy of the configuration with the site-specific
// overrides for the target's host applied. The original Config is not
// modified, so batch runs can derive per-target configs from one base.
func (c *Config) ForTarget(target string) *Config {
	out := *c
	if c.SiteConfigs == nil {
		return &out
	}

	host := hostOfTarget(target)
	site := c.SiteConfigs.SiteFor(host)

	if site.MaxPages > 0 {
		out.MaxPages = site.MaxPages
	}
	if site.MaxJourneys > 0 {
		out.MaxJourneys = site.MaxJourneys
	}
	if site.Jurisdiction != "" {
		out.Jurisdiction = site.Jurisdiction
	}
	if len(site.OptOutPatterns) > 0 {
		merged := make([]string, 0, len(c.ExtraOptOutPatterns)+len(site.OptOutPatterns))
		merged = append(merged, c.ExtraOptOutPatterns...)
		merged = append(merged, site.OptOutPatterns...)
		out.ExtraOptOutPatterns = merged
	}

	return &out
}

// hostOfTarget extracts the lowercase host (without port) from a target URL.
// Bare hosts without a scheme are accepted as-is.
func hostOfTarget(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		host := strings.ToLower(strings.TrimSpace(target))
		if h, _, ok := strings.Cut(host, ":"); ok {
			host = h
		}
		return host
	}
	return strings.ToLower(u.Hostname())
}
