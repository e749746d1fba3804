package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no target URL or list file is specified.
	// This error occurs when neither --batch nor a positional argument
	// provides a target.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --batch")

	// ErrInvalidJurisdiction is returned when the jurisdiction is not one
	// of the rule sets the rule table ships (us_ca, eu). An unknown value
	// would load zero rules and make every detector a silent no-op.
	ErrInvalidJurisdiction = errors.New("invalid jurisdiction: must be us_ca or eu")

	// ErrInvalidTimeout is returned when the page load timeout is not positive.
	// A timeout of zero or negative would fail every navigation immediately.
	ErrInvalidTimeout = errors.New("invalid page load timeout: must be positive")

	// ErrInvalidMaxPages is returned when the crawl page budget is not positive.
	// Zero pages would produce an empty graph and an empty session plan.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxJourneys is returned when the session plan cap is not positive.
	ErrInvalidMaxJourneys = errors.New("invalid max journeys: must be positive")

	// ErrInvalidLeakWindow is returned when the temporal leak window is not
	// positive. The inclusive-boundary semantics require a real window.
	ErrInvalidLeakWindow = errors.New("invalid leak window: must be positive")

	// ErrInvalidActionDelay is returned when the action delay is negative.
	// Zero is allowed for fast test runs.
	ErrInvalidActionDelay = errors.New("invalid action delay: must be non-negative")

	// ErrInvalidScrollSteps is returned when the scroll step count is negative.
	// Zero is allowed to disable scrolling.
	ErrInvalidScrollSteps = errors.New("invalid scroll steps: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent audits, effectively
	// stopping the batch run.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
