package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/config"
	"github.com/gpcscan/gpcscan/internal/crawler"
	"github.com/gpcscan/gpcscan/internal/detector"
	"github.com/gpcscan/gpcscan/internal/model"
	"github.com/gpcscan/gpcscan/internal/oracle"
	"github.com/gpcscan/gpcscan/internal/report"
	"github.com/gpcscan/gpcscan/internal/rules"
	"github.com/gpcscan/gpcscan/internal/session"
)

// CrawlStep discovers the target's interaction graph and derives the
// journey plan both sessions will replay.
//
// Design decision: Crawl and plan share a step because:
// 1. The plan is a pure function of the graph; nothing runs between them
// 2. A graph without a plan leaves the run in a state no later step accepts
// 3. It keeps the step list aligned with what the audit actually does
type CrawlStep struct {
	// launcher opens the browser session the crawl drives.
	launcher browser.Launcher

	// oracle prioritizes discovered pages for privacy relevance.
	oracle oracle.Oracle

	// maxPages limits total pages to crawl.
	maxPages int

	// maxJourneys limits how many plan entries the graph yields.
	maxJourneys int

	// actionDelay is the pause after navigation and between scrolls.
	actionDelay time.Duration

	// scrollSteps is how far each crawled page is scrolled.
	scrollSteps int

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxPages sets the maximum pages to crawl.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlMaxJourneys sets the maximum journey plan length.
func WithCrawlMaxJourneys(maxJourneys int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxJourneys = maxJourneys
	}
}

// WithCrawlActionDelay sets the pause between page actions.
func WithCrawlActionDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.actionDelay = d
	}
}

// WithCrawlScrollSteps sets how far each crawled page is scrolled.
func WithCrawlScrollSteps(n int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.scrollSteps = n
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawl step.
func NewCrawlStep(launcher browser.Launcher, o oracle.Oracle, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		launcher:    launcher,
		oracle:      o,
		maxPages:    config.DefaultMaxPages,
		maxJourneys: config.DefaultMaxJourneys,
		actionDelay: config.DefaultActionDelay,
		scrollSteps: config.DefaultScrollSteps,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	engine := crawler.NewEngine(s.launcher, s.oracle,
		crawler.WithMaxPages(s.maxPages),
		crawler.WithActionDelay(s.actionDelay),
		crawler.WithScrollSteps(s.scrollSteps),
	)

	graph, err := engine.Discover(ctx, run.ID, run.Target)
	if err != nil {
		return fmt.Errorf("failed to crawl %s: %w", run.Target, err)
	}

	run.Graph = graph
	run.Plan = session.Plan(graph, s.maxJourneys)

	s.logger.Info("crawl completed",
		"pages_discovered", len(graph.Nodes),
		"planned_journeys", len(run.Plan),
	)

	return nil
}

// SessionStep replays the journey plan through the paired baseline and
// signal-on browser sessions and stores both evidence sets on the run.
type SessionStep struct {
	// launcher opens the two isolated browser sessions.
	launcher browser.Launcher

	// actionDelay is the pause after navigation and between scrolls.
	actionDelay time.Duration

	// scrollSteps is how far each visited page is scrolled.
	scrollSteps int

	// leakWindow bounds the temporal-leak detection window.
	leakWindow time.Duration

	// optOutPatterns extends the built-in opt-out link wording list.
	optOutPatterns []string

	// logger for structured logging.
	logger *slog.Logger
}

// SessionStepOption configures a SessionStep.
type SessionStepOption func(*SessionStep)

// WithSessionActionDelay sets the pause between page actions.
func WithSessionActionDelay(d time.Duration) SessionStepOption {
	return func(s *SessionStep) {
		s.actionDelay = d
	}
}

// WithSessionScrollSteps sets how far each visited page is scrolled.
func WithSessionScrollSteps(n int) SessionStepOption {
	return func(s *SessionStep) {
		s.scrollSteps = n
	}
}

// WithSessionLeakWindow sets the temporal-leak detection window.
func WithSessionLeakWindow(d time.Duration) SessionStepOption {
	return func(s *SessionStep) {
		s.leakWindow = d
	}
}

// WithSessionOptOutPatterns adds site-specific opt-out link wording.
func WithSessionOptOutPatterns(patterns []string) SessionStepOption {
	return func(s *SessionStep) {
		s.optOutPatterns = patterns
	}
}

// WithSessionLogger sets a custom logger for the session step.
func WithSessionLogger(logger *slog.Logger) SessionStepOption {
	return func(s *SessionStep) {
		s.logger = logger
	}
}

// NewSessionStep creates a new paired-session step.
func NewSessionStep(launcher browser.Launcher, opts ...SessionStepOption) *SessionStep {
	s := &SessionStep{
		launcher:    launcher,
		actionDelay: config.DefaultActionDelay,
		scrollSteps: config.DefaultScrollSteps,
		leakWindow:  config.DefaultLeakWindow,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SessionStep) Name() string {
	return "paired_sessions"
}

// Do executes the paired-session step.
func (s *SessionStep) Do(ctx context.Context, run *model.Run) error {
	plan := run.Plan
	if len(plan) == 0 {
		// A crawl that produced nothing still leaves the root page
		// auditable; signal evidence from one page beats no audit.
		s.logger.Warn("no journey plan from crawl, auditing the root page only",
			"target", run.Target,
		)
		plan = []model.CrawlPlanEntry{{
			URL:    run.Target,
			Action: model.ActionNavigate,
			Reason: "audit root",
		}}
		run.Plan = plan
	}

	orchestrator := session.NewOrchestrator(s.launcher,
		session.WithActionDelay(s.actionDelay),
		session.WithScrollSteps(s.scrollSteps),
		session.WithLeakWindow(s.leakWindow),
		session.WithExtraOptOutPatterns(s.optOutPatterns),
	)

	paired, err := orchestrator.RunPaired(ctx, plan)
	if err != nil {
		return fmt.Errorf("failed to run paired sessions: %w", err)
	}

	run.Baseline = paired.Baseline
	run.Compliance = paired.Compliance

	s.logger.Info("paired sessions completed",
		"pages_visited", paired.Baseline.PagesVisited,
		"baseline_trackers", paired.Baseline.TrackerRequestCount(),
		"compliance_trackers", paired.Compliance.TrackerRequestCount(),
	)

	return nil
}

// DetectStep judges the collected session evidence against the
// jurisdiction rule table and records the violations on the run.
//
// Design decision: The rule store is opened per run rather than held on
// the step because:
// 1. The store is an in-memory database seeded in milliseconds
// 2. Batch runs share one step instance across goroutines
// 3. A fresh store per run cannot leak state between audits
type DetectStep struct {
	// rulesFile optionally replaces the embedded rule seed.
	rulesFile string

	// leakWindow is echoed into leak evidence for the reviewer.
	leakWindow time.Duration

	// logger for structured logging.
	logger *slog.Logger
}

// DetectStepOption configures a DetectStep.
type DetectStepOption func(*DetectStep)

// WithDetectRulesFile points the step at a user-supplied rule seed file
// instead of the embedded one.
func WithDetectRulesFile(path string) DetectStepOption {
	return func(s *DetectStep) {
		s.rulesFile = path
	}
}

// WithDetectLeakWindow sets the temporal-leak window echoed into evidence.
func WithDetectLeakWindow(d time.Duration) DetectStepOption {
	return func(s *DetectStep) {
		s.leakWindow = d
	}
}

// WithDetectLogger sets a custom logger for the detect step.
func WithDetectLogger(logger *slog.Logger) DetectStepOption {
	return func(s *DetectStep) {
		s.logger = logger
	}
}

// NewDetectStep creates a new violation detection step.
func NewDetectStep(opts ...DetectStepOption) *DetectStep {
	s := &DetectStep{
		leakWindow: config.DefaultLeakWindow,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DetectStep) Name() string {
	return "detect"
}

// Do executes the detection step.
func (s *DetectStep) Do(ctx context.Context, run *model.Run) error {
	store, err := s.openRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rule table: %w", err)
	}
	defer func() { _ = store.Close() }()

	ruleSet, err := store.LoadJurisdiction(ctx, run.Jurisdiction)
	if err != nil {
		return fmt.Errorf("failed to load %s rules: %w", run.Jurisdiction, err)
	}
	if len(ruleSet) == 0 {
		s.logger.Warn("no rules for jurisdiction, detectors cannot cite violations",
			"jurisdiction", run.Jurisdiction,
		)
	}

	violations, err := detector.NewEngine().Detect(ctx, &detector.Input{
		Baseline:     run.Baseline,
		Compliance:   run.Compliance,
		Rules:        ruleSet,
		Jurisdiction: run.Jurisdiction,
		LeakWindowMs: s.leakWindow.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("failed to detect violations: %w", err)
	}

	run.Violations = violations

	s.logger.Info("detection completed",
		"rules_loaded", len(ruleSet),
		"violations", len(violations),
	)

	return nil
}

// openRules opens the embedded rule seed, or the user-supplied file when
// one is configured.
func (s *DetectStep) openRules(ctx context.Context) (*rules.Store, error) {
	if s.rulesFile != "" {
		return rules.OpenFile(ctx, s.rulesFile)
	}
	return rules.Open(ctx)
}

// ReportStep assembles the final evidence report from the accumulated run.
type ReportStep struct {
	// version is stamped into the report metadata.
	version string

	// logger for structured logging.
	logger *slog.Logger
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithReportLogger sets a custom logger for the report step.
func WithReportLogger(logger *slog.Logger) ReportStepOption {
	return func(s *ReportStep) {
		s.logger = logger
	}
}

// NewReportStep creates a new report assembly step.
func NewReportStep(version string, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{
		version: version,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do executes the report step.
func (s *ReportStep) Do(_ context.Context, run *model.Run) error {
	rep, err := report.Build(run, s.version)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	run.Report = rep

	s.logger.Info("report assembled",
		"verdict", rep.Verdict.Verdict,
		"violations", rep.ViolationSummary.Total,
	)

	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// MaxPages is the crawl page budget.
	MaxPages int

	// MaxJourneys is the journey plan length limit.
	MaxJourneys int

	// ActionDelay is the pause between page actions in every stage.
	ActionDelay time.Duration

	// ScrollSteps is how far each page is scrolled.
	ScrollSteps int

	// LeakWindow is the temporal-leak detection window.
	LeakWindow time.Duration

	// ExtraOptOutPatterns adds site-specific opt-out link wording.
	ExtraOptOutPatterns []string

	// RulesFile optionally replaces the embedded rule seed.
	RulesFile string

	// Version is stamped into the report metadata.
	Version string
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineMaxPages sets the crawl page budget.
func WithPipelineMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxPages = maxPages
	}
}

// WithPipelineMaxJourneys sets the journey plan length limit.
func WithPipelineMaxJourneys(maxJourneys int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxJourneys = maxJourneys
	}
}

// WithPipelineActionDelay sets the pause between page actions.
func WithPipelineActionDelay(d time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ActionDelay = d
	}
}

// WithPipelineScrollSteps sets how far each page is scrolled.
func WithPipelineScrollSteps(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ScrollSteps = n
	}
}

// WithPipelineLeakWindow sets the temporal-leak detection window.
func WithPipelineLeakWindow(d time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.LeakWindow = d
	}
}

// WithPipelineOptOutPatterns adds site-specific opt-out link wording.
func WithPipelineOptOutPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ExtraOptOutPatterns = patterns
	}
}

// WithPipelineRulesFile points the audit at a user-supplied rule seed.
func WithPipelineRulesFile(path string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.RulesFile = path
	}
}

// WithPipelineVersion sets the version stamped into report metadata.
func WithPipelineVersion(version string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Version = version
	}
}

// DefaultPipeline creates a pipeline with all four audit stages configured.
// This is the standard pipeline for a full compliance audit.
//
// Design decision: We provide a default pipeline because:
// 1. Most users want the full crawl-session-detect-report sequence
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineMaxPages, etc).
func DefaultPipeline(launcher browser.Launcher, o oracle.Oracle, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		MaxPages:    config.DefaultMaxPages,
		MaxJourneys: config.DefaultMaxJourneys,
		ActionDelay: config.DefaultActionDelay,
		ScrollSteps: config.DefaultScrollSteps,
		LeakWindow:  config.DefaultLeakWindow,
		Version:     "dev",
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	sessionOpts := []SessionStepOption{
		WithSessionActionDelay(cfg.ActionDelay),
		WithSessionScrollSteps(cfg.ScrollSteps),
		WithSessionLeakWindow(cfg.LeakWindow),
	}
	if len(cfg.ExtraOptOutPatterns) > 0 {
		sessionOpts = append(sessionOpts, WithSessionOptOutPatterns(cfg.ExtraOptOutPatterns))
	}

	detectOpts := []DetectStepOption{
		WithDetectLeakWindow(cfg.LeakWindow),
	}
	if cfg.RulesFile != "" {
		detectOpts = append(detectOpts, WithDetectRulesFile(cfg.RulesFile))
	}

	// Add steps in audit order
	p.AddSteps(
		NewCrawlStep(launcher, o,
			WithCrawlMaxPages(cfg.MaxPages),
			WithCrawlMaxJourneys(cfg.MaxJourneys),
			WithCrawlActionDelay(cfg.ActionDelay),
			WithCrawlScrollSteps(cfg.ScrollSteps),
		),
		NewSessionStep(launcher, sessionOpts...),
		NewDetectStep(detectOpts...),
		NewReportStep(cfg.Version),
	)

	return p
}
