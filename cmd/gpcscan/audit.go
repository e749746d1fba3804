package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/config"
	"github.com/gpcscan/gpcscan/internal/database"
	"github.com/gpcscan/gpcscan/internal/log"
	"github.com/gpcscan/gpcscan/internal/model"
	"github.com/gpcscan/gpcscan/internal/oracle"
	"github.com/gpcscan/gpcscan/internal/pipeline"
	"github.com/gpcscan/gpcscan/internal/probe"
	"github.com/gpcscan/gpcscan/internal/report"
	"github.com/spf13/cobra"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [url...]",
		Short: "Audit a website for opt-out signal compliance",
		Long: `Audit performs a privacy-compliance audit of a public website.

It crawls the target to build a prioritized interaction graph, then replays
the same high-risk pages in two isolated browser sessions: a baseline and
one asserting the Global Privacy Control signal (Sec-GPC: 1 plus the
navigator.globalPrivacyControl property). Tracker requests observed in both
sessions mean the opt-out was ignored. Every page is also checked for a
consent banner and a "Do Not Sell or Share" link, and trackers firing
before an opt-out could have been processed are flagged separately.

An OpenAI-compatible API key in GPCSCAN_ORACLE_API_KEY (or OPENAI_API_KEY)
enables oracle-assisted page analysis; without one, a deterministic
heuristic ranks pages.

Examples:
  # Audit a single site
  gpcscan audit https://shop.example.com

  # Audit several sites concurrently
  gpcscan audit --concurrency 2 site1.com site2.com site3.com

  # Audit every URL listed in a file (one per line, # comments allowed)
  gpcscan audit --batch targets.txt

  # Audit an EU site against the GDPR rule set
  gpcscan audit --jurisdiction eu https://shop.example.eu

  # Write a Markdown report to a file
  gpcscan audit --markdown --output report.md https://shop.example.com

Configuration file (.gpcscan) example:
  defaults:
    maxPages: 10
  sites:
    shop.example.com:
      maxPages: 25
      optOutPatterns:
        - "your privacy choices"`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	// Audit behavior flags
	cmd.Flags().StringP("jurisdiction", "J", config.DefaultJurisdiction,
		"Regulation rule set to audit against (us_ca or eu)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per site")
	cmd.Flags().IntP("max-journeys", "n", config.DefaultMaxJourneys,
		"Maximum number of journey plan entries replayed by both sessions")
	cmd.Flags().DurationP("timeout", "t", config.DefaultPageLoadTimeout,
		"Page load timeout for each navigation")
	cmd.Flags().Duration("action-delay", config.DefaultActionDelay,
		"Pause after navigations and between scroll steps")
	cmd.Flags().DurationP("leak-window", "w", config.DefaultLeakWindow,
		"Post-load window in which tracker requests count as temporal leaks")
	cmd.Flags().Int("scroll-steps", config.DefaultScrollSteps,
		"Viewport-heights each page is scrolled to trigger lazy trackers")

	// Browser flags
	cmd.Flags().Bool("no-headless", false,
		"Run Chrome with a visible window (for debugging)")

	// Batch audit flags
	cmd.Flags().StringP("batch", "b", "",
		"File with one target URL per line, audited in addition to arguments")
	cmd.Flags().Int("concurrency", config.DefaultBatchSize,
		"Number of concurrent audits (each costs two browser instances)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .gpcscan in current or home directory)")
	cmd.Flags().String("rules", "",
		"SQL rule seed file replacing the embedded jurisdiction rule table")

	// Oracle flags
	cmd.Flags().String("oracle-model", config.DefaultOracleModel,
		"Model name sent with oracle page-analysis requests")
	cmd.Flags().String("oracle-endpoint", config.DefaultOracleEndpoint,
		"OpenAI-compatible chat-completions endpoint for the oracle")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildAuditConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAudit(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildAuditConfig creates a Config from cobra command flags.
func buildAuditConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Jurisdiction, err = cmd.Flags().GetString("jurisdiction")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.MaxJourneys, err = cmd.Flags().GetInt("max-journeys")
	if err != nil {
		return nil, err
	}

	cfg.PageLoadTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.ActionDelay, err = cmd.Flags().GetDuration("action-delay")
	if err != nil {
		return nil, err
	}

	cfg.LeakWindow, err = cmd.Flags().GetDuration("leak-window")
	if err != nil {
		return nil, err
	}

	cfg.ScrollSteps, err = cmd.Flags().GetInt("scroll-steps")
	if err != nil {
		return nil, err
	}

	noHeadless, err := cmd.Flags().GetBool("no-headless")
	if err != nil {
		return nil, err
	}
	cfg.Headless = !noHeadless

	cfg.BatchSize, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.RulesFile, err = cmd.Flags().GetString("rules")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.OracleModel, err = cmd.Flags().GetString("oracle-model")
	if err != nil {
		return nil, err
	}

	cfg.OracleEndpoint, err = cmd.Flags().GetString("oracle-endpoint")
	if err != nil {
		return nil, err
	}

	// The oracle key only ever comes from the environment so it cannot
	// leak via shell history or process listings.
	cfg.OracleAPIKey = oracleAPIKeyFromEnv()

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Targets: positional arguments plus the optional batch file
	targets := make([]string, 0, len(args))
	for _, arg := range args {
		targets = append(targets, normalizeTarget(arg))
	}

	batchFile, err := cmd.Flags().GetString("batch")
	if err != nil {
		return nil, err
	}
	if batchFile != "" {
		fromFile, err := readTargetsFile(batchFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}
	cfg.Targets = targets

	return cfg, nil
}

// oracleAPIKeyFromEnv reads the oracle API key from the environment,
// preferring the gpcscan-specific variable over the generic one.
func oracleAPIKeyFromEnv() string {
	if key := os.Getenv(config.OracleAPIKeyEnv); key != "" {
		return key
	}
	return os.Getenv(config.OracleAPIKeyFallbackEnv)
}

// normalizeTarget brings a target URL into the canonical form used both for
// auditing and as the audit-history key: https unless a scheme is given, no
// trailing slash.
func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return target
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}
	return strings.TrimSuffix(target, "/")
}

// readTargetsFile reads one target URL per line from a batch file.
// Blank lines and lines starting with # are skipped.
func readTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided batch file path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, normalizeTarget(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("batch file %s contains no targets", path)
	}

	return targets, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// The secure handler masks oracle API keys and auth headers that would
// otherwise end up in debug output.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// runAudit executes the audit.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more site URLs as arguments or use --batch)")
	}

	logger.Info("starting audit",
		"targets", cfg.Targets,
		"jurisdiction", cfg.Jurisdiction,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.AuditDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Preflight: drop targets that do not answer HTTP at all before paying
	// for browser startup.
	prober := probe.New()
	reachable := make([]string, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		result, err := prober.Probe(ctx, target)
		if err != nil {
			logger.Error("preflight probe failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", target, err)
			continue
		}
		logger.Debug("target reachable",
			"target", target,
			"status", result.StatusCode,
			"tls", result.TLS,
			"elapsed_ms", result.ElapsedMs,
		)
		reachable = append(reachable, target)
	}
	if len(reachable) == 0 {
		return errors.New("none of the targets are reachable")
	}
	cfg.Targets = reachable

	// One launcher serves every audit; each session gets an isolated
	// browser context of its own.
	launcher := browser.NewChrome(
		browser.WithHeadless(cfg.Headless),
		browser.WithNavigationTimeout(cfg.PageLoadTimeout),
	)

	auditOracle := buildOracle(cfg, logger)

	// Use batch processor for parallel audits if multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchAudit(ctx, cfg, launcher, auditOracle, db, logger)
	}

	// Single target or sequential auditing
	return runSequentialAudit(ctx, cfg, launcher, auditOracle, db, logger)
}

// buildOracle composes the page-analysis oracle. The deterministic heuristic
// always participates; a live oracle is preferred when an API key is set.
func buildOracle(cfg *config.Config, logger *slog.Logger) oracle.Oracle {
	heuristic := oracle.NewHeuristic()

	if cfg.OracleAPIKey == "" {
		logger.Debug("no oracle API key in environment, using heuristic analysis only")
		return heuristic
	}

	live, err := oracle.NewLive(cfg.OracleAPIKey,
		oracle.WithEndpoint(cfg.OracleEndpoint),
		oracle.WithModel(cfg.OracleModel),
		oracle.WithTimeout(cfg.OracleTimeout),
	)
	if err != nil {
		logger.Warn("live oracle unavailable, falling back to heuristic", "error", err)
		return heuristic
	}

	logger.Info("live oracle enabled", "model", cfg.OracleModel)
	return oracle.NewFailover(live, heuristic)
}

// runSequentialAudit audits targets one at a time.
func runSequentialAudit(ctx context.Context, cfg *config.Config, launcher browser.Launcher, auditOracle oracle.Oracle, db *database.AuditDB, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if db != nil {
			if recent, err := db.HasRecentAudit(ctx, target, 24*time.Hour); err == nil && recent {
				fmt.Printf("Note: %s was audited within the last 24 hours. Run 'gpcscan compare %s' afterwards to see what changed.\n", target, target)
			}
		}

		// Apply site-specific configuration overrides
		targetCfg := cfg.ForTarget(target)

		// Create pipeline with per-target options
		p := createPipelineForTarget(launcher, auditOracle, logger, targetCfg)

		run := model.NewRun(target, targetCfg.Jurisdiction)

		fmt.Printf("Auditing %s...\n", target)
		startTime := time.Now()

		// Execute the pipeline
		if err := p.Execute(ctx, run); err != nil {
			run.Fail(err)
			logger.Error("audit failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Audit error for %s: %v\n", target, err)
			continue
		}
		run.Complete()

		elapsed := time.Since(startTime)
		fmt.Printf("Audit completed in %s\n\n", elapsed.Round(time.Millisecond))

		// The pipeline continues past stage errors; surface them here
		if run.Error != nil {
			logger.Warn("audit finished with errors", "target", target, "error", run.Error)
		}
		if run.Report == nil {
			fmt.Fprintf(os.Stderr, "No report produced for %s: %v\n", target, run.Error)
			continue
		}

		// Generate and output report
		if err := outputReport(cfg, run.Report); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}

		// Save to database if enabled
		if err := saveAuditRun(ctx, db, run, logger); err != nil {
			logger.Error("failed to save audit", "target", target, "error", err)
		}
	}

	return nil
}

// runBatchAudit audits multiple targets concurrently using BatchProcessor.
func runBatchAudit(ctx context.Context, cfg *config.Config, launcher browser.Launcher, auditOracle oracle.Oracle, db *database.AuditDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch audit of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Warn user about batch processing limitation
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch processing applies config file defaults only; site-specific overrides are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Audit targets one at a time to apply per-site settings.\n\n")
	}

	// The pipeline factory cannot know which target it will serve, so only
	// the config file defaults apply; ForTarget with no host merges exactly
	// those.
	batchCfg := cfg.ForTarget("")

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return createPipelineForTarget(launcher, auditOracle, logger, batchCfg)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchJurisdiction(batchCfg.Jurisdiction),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	runs := make([]*model.Run, 0, len(cfg.Targets))
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		runs = append(runs, run)
		fmt.Printf("[%d/%d] Audit completed: %s\n", index+1, len(cfg.Targets), run.Target)

		if run.Report == nil {
			fmt.Fprintf(os.Stderr, "  no report produced for %s: %v\n", run.Target, run.Error)
			return
		}

		// Generate and output report
		if err := outputReport(cfg, run.Report); err != nil {
			logger.Error("report failed", "target", run.Target, "error", err)
		}

		// Save to database if enabled
		if err := saveAuditRun(ctx, db, run, logger); err != nil {
			logger.Error("failed to save audit", "target", run.Target, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch audit completed in %s\n", elapsed.Round(time.Millisecond))

	printBatchSummary(runs)

	return err
}

// printBatchSummary prints a one-line-per-target verdict table.
func printBatchSummary(runs []*model.Run) {
	if len(runs) == 0 {
		return
	}

	fmt.Println("\nBatch summary:")
	fmt.Printf("  %-40s  %-14s  %-10s  %s\n", "Target", "Verdict", "Violations", "Elapsed")
	fmt.Println("  " + strings.Repeat("-", 78))

	for _, run := range runs {
		verdict := "ERROR"
		violations := "-"
		if run.Report != nil {
			verdict = run.Report.Verdict.Verdict
			violations = strconv.Itoa(run.Report.ViolationSummary.Total)
		}
		fmt.Printf("  %-40s  %-14s  %-10s  %s\n",
			run.Target,
			verdict,
			violations,
			run.Elapsed().Round(time.Millisecond),
		)
	}
}

// createPipelineForTarget creates a pipeline from the given configuration.
// Site-specific overrides are expected to be already applied via ForTarget.
func createPipelineForTarget(launcher browser.Launcher, auditOracle oracle.Oracle, logger *slog.Logger, cfg *config.Config) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineMaxPages(cfg.MaxPages),
		pipeline.WithPipelineMaxJourneys(cfg.MaxJourneys),
		pipeline.WithPipelineActionDelay(cfg.ActionDelay),
		pipeline.WithPipelineScrollSteps(cfg.ScrollSteps),
		pipeline.WithPipelineLeakWindow(cfg.LeakWindow),
		pipeline.WithPipelineVersion(getVersion()),
	}

	// Add site-specific opt-out wording if configured
	if len(cfg.ExtraOptOutPatterns) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineOptOutPatterns(cfg.ExtraOptOutPatterns))
	}

	// Add user-supplied rule seed if configured
	if cfg.RulesFile != "" {
		configOpts = append(configOpts, pipeline.WithPipelineRulesFile(cfg.RulesFile))
	}

	return pipeline.DefaultPipeline(launcher, auditOracle, pipelineOpts, configOpts...)
}

// outputReport outputs the audit report in the requested format.
// When the report goes to a file, a console summary is still written to
// stdout so the terminal shows the verdict.
func outputReport(cfg *config.Config, auditReport *model.AuditReport) error {
	// Determine output destination
	var output *os.File
	toFile := cfg.ReportFile != ""
	if toFile {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions;
		// captured request URLs may embed session tokens.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output)
	}

	if toFile {
		w = report.NewMultiWriter(w, report.NewSimpleWriter(os.Stdout))
	}

	_, err := w.Write(auditReport)
	return err
}

// saveAuditRun saves the completed run to the database if enabled.
// If db is nil, this function is a no-op.
func saveAuditRun(ctx context.Context, db *database.AuditDB, run *model.Run, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	logger.Info("audit report saved to database", "target", run.Target, "audit_id", run.ID)
	return nil
}
