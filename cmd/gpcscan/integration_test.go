package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/config"
	"github.com/gpcscan/gpcscan/internal/database"
	"github.com/gpcscan/gpcscan/internal/model"
	"github.com/gpcscan/gpcscan/internal/oracle"
)

// skipIfShort skips the test if -short flag is set.
// Integration tests drive real browser sessions and are slow.
func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode (requires Chrome, takes minutes)")
	}
}

// skipIfNoChrome skips the test if no Chrome or Chromium binary is available.
// This allows tests to pass on CI environments without a browser installed.
func skipIfNoChrome(t *testing.T) {
	t.Helper()
	candidates := []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"chrome",
		"headless-shell",
	}
	for _, name := range candidates {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("skipping integration test: no Chrome binary found (install chromium to run integration tests)")
}

// startTestSite starts an HTTP server with a small shop-like site: a home
// page with a consent banner, a product listing, and a privacy policy. Every
// asset is same-origin, so the site produces no tracker traffic and honors
// the opt-out signal trivially.
func startTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Test Shop</title></head>
<body>
<div id="consent-banner">We use cookies to improve your experience.
<button>Accept</button> <button>Reject All</button></div>
<h1>Welcome to Test Shop</h1>
<p>Quality goods for integration testing.</p>
<a href="/products">Products</a>
<a href="/privacy">Privacy Policy</a>
<footer><a href="/privacy">Do Not Sell or Share My Personal Information</a></footer>
</body>
</html>`))
	})
	mux.HandleFunc("/products", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Products - Test Shop</title></head>
<body>
<h1>Products</h1>
<ul>
<li><a href="/products">Widget</a> - $9.99</li>
<li><a href="/products">Gadget</a> - $19.99</li>
</ul>
<a href="/">Home</a>
<footer><a href="/privacy">Do Not Sell or Share My Personal Information</a></footer>
</body>
</html>`))
	})
	mux.HandleFunc("/privacy", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Privacy Policy - Test Shop</title></head>
<body>
<h1>Privacy Policy</h1>
<p>We honor the Global Privacy Control signal.</p>
<p>To opt out of the sale or sharing of your personal information, use the
link below or enable GPC in your browser.</p>
<a href="/privacy">Do Not Sell or Share My Personal Information</a>
<a href="/">Home</a>
</body>
</html>`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// fastAuditConfig returns a config tuned for auditing the local test site:
// small crawl budget, short delays, results stored under dbDir.
func fastAuditConfig(target, dbDir string) *config.Config {
	cfg := config.NewConfig()
	cfg.Targets = []string{target}
	cfg.MaxPages = 3
	cfg.MaxJourneys = 5
	cfg.ActionDelay = 100 * time.Millisecond
	cfg.ScrollSteps = 1
	cfg.BatchSize = 1
	cfg.DBDir = dbDir
	cfg.SaveToDB = true
	return cfg
}

// TestIntegrationAuditWithChrome performs an integration test with a real
// headless Chrome. This test:
// 1. Starts a local HTTP server with a small test site
// 2. Audits the site end to end (crawl, dual sessions, detectors, report)
// 3. Verifies the audit report was stored
//
// Note: This test takes a minute or two due to browser startup and the
// per-page settle delays.
func TestIntegrationAuditWithChrome(t *testing.T) {
	skipIfShort(t)
	skipIfNoChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	server := startTestSite(t)
	t.Logf("Testing with site: %s", server.URL)

	dbDir := filepath.Join(t.TempDir(), "db")
	cfg := fastAuditConfig(server.URL, dbDir)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Log("Running audit...")
	if err := runAudit(ctx, cfg, logger); err != nil {
		t.Fatalf("runAudit() error = %v", err)
	}

	// Verify database was created and has data
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		t.Fatalf("failed to open database after audit: %v", err)
	}
	defer db.Close()

	reports, err := db.GetAuditHistory(ctx, server.URL)
	if err != nil {
		t.Fatalf("failed to get audit history: %v", err)
	}
	if len(reports) == 0 {
		t.Fatal("expected at least one audit report in database")
	}

	report := reports[0]
	if report.Metadata.Target != server.URL {
		t.Errorf("expected target %q, got %q", server.URL, report.Metadata.Target)
	}
	if report.Verdict.Verdict == "" {
		t.Error("expected a verdict in the stored report")
	}

	t.Logf("Audit completed. Verdict=%s, Violations=%d (H:%d M:%d L:%d)",
		report.Verdict.Verdict,
		report.ViolationSummary.Total,
		report.ViolationSummary.SeverityBreakdown[model.SeverityHigh.String()],
		report.ViolationSummary.SeverityBreakdown[model.SeverityMedium.String()],
		report.ViolationSummary.SeverityBreakdown[model.SeverityLow.String()],
	)
}

// TestIntegrationAuditAndCompare tests the full workflow: audit twice, then compare.
func TestIntegrationAuditAndCompare(t *testing.T) {
	skipIfShort(t)
	skipIfNoChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	server := startTestSite(t)
	t.Logf("Testing with site: %s", server.URL)

	dbDir := filepath.Join(t.TempDir(), "db")
	cfg := fastAuditConfig(server.URL, dbDir)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	t.Log("Running first audit...")
	if err := runAudit(ctx, cfg, logger); err != nil {
		t.Fatalf("first runAudit() error = %v", err)
	}

	// Audit IDs have second resolution; make sure the second run gets its own
	time.Sleep(2 * time.Second)

	t.Log("Running second audit...")
	if err := runAudit(ctx, cfg, logger); err != nil {
		t.Fatalf("second runAudit() error = %v", err)
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	reports, err := db.GetAuditHistory(ctx, server.URL)
	if err != nil {
		t.Fatalf("failed to get audit history: %v", err)
	}
	if len(reports) < 2 {
		t.Fatalf("expected at least 2 audit reports, got %d", len(reports))
	}

	t.Logf("Found %d audit reports. Running comparison...", len(reports))

	if err := runComparison(ctx, db, server.URL, "", "", false, false); err != nil {
		t.Fatalf("runComparison() error = %v", err)
	}

	// Test with JSON output
	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err = runComparison(ctx, db, server.URL, "", "", true, false)

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("runComparison() with JSON error = %v", err)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, `"target"`) {
		t.Errorf("expected JSON output to contain 'target', got: %s", output)
	}
	var result ComparisonResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("expected parseable comparison JSON, got error: %v", err)
	}
	if result.Target != server.URL {
		t.Errorf("expected comparison target %q, got %q", server.URL, result.Target)
	}

	t.Log("Comparison completed successfully")
}

// TestIntegrationBatchAudit tests batch auditing with multiple targets.
func TestIntegrationBatchAudit(t *testing.T) {
	skipIfShort(t)
	skipIfNoChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	// Two separate sites so the batch stores two distinct audit rows
	serverA := startTestSite(t)
	serverB := startTestSite(t)
	t.Logf("Testing with sites: %s, %s", serverA.URL, serverB.URL)

	dbDir := filepath.Join(t.TempDir(), "db")
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := fastAuditConfig(serverA.URL, dbDir)
	cfg.Targets = []string{serverA.URL, serverB.URL}
	cfg.BatchSize = 2 // Enable concurrent auditing

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	launcher := browser.NewChrome(
		browser.WithHeadless(cfg.Headless),
		browser.WithNavigationTimeout(cfg.PageLoadTimeout),
	)

	t.Log("Running batch audit...")
	if err := runBatchAudit(ctx, cfg, launcher, oracle.NewHeuristic(), db, logger); err != nil {
		t.Fatalf("runBatchAudit() error = %v", err)
	}

	for _, target := range cfg.Targets {
		reports, err := db.GetAuditHistory(ctx, target)
		if err != nil {
			t.Fatalf("failed to get audit history for %s: %v", target, err)
		}
		if len(reports) == 0 {
			t.Errorf("expected an audit report for %s", target)
		}
	}

	t.Log("Batch audit completed")
}

// TestIntegrationSequentialAudit tests sequential auditing.
func TestIntegrationSequentialAudit(t *testing.T) {
	skipIfShort(t)
	skipIfNoChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	server := startTestSite(t)
	t.Logf("Testing with site: %s", server.URL)

	dbDir := filepath.Join(t.TempDir(), "db")
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := fastAuditConfig(server.URL, dbDir)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	launcher := browser.NewChrome(
		browser.WithHeadless(cfg.Headless),
		browser.WithNavigationTimeout(cfg.PageLoadTimeout),
	)

	t.Log("Running sequential audit...")
	if err := runSequentialAudit(ctx, cfg, launcher, oracle.NewHeuristic(), db, logger); err != nil {
		t.Fatalf("runSequentialAudit() error = %v", err)
	}

	reports, err := db.GetAuditHistory(ctx, server.URL)
	if err != nil {
		t.Fatalf("failed to get audit history: %v", err)
	}
	if len(reports) == 0 {
		t.Error("expected at least 1 audit report from sequential audit")
	}

	t.Logf("Sequential audit completed. Found %d report(s) in database.", len(reports))
}

// TestIntegrationCreatePipelineForTarget tests pipeline creation.
func TestIntegrationCreatePipelineForTarget(t *testing.T) {
	skipIfShort(t)
	skipIfNoChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	server := startTestSite(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	launcher := browser.NewChrome(
		browser.WithHeadless(true),
		browser.WithNavigationTimeout(30*time.Second),
	)
	auditOracle := oracle.NewHeuristic()

	// Create config with various site-specific settings
	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{
		Defaults: config.SiteConfig{
			MaxPages:       3,
			OptOutPatterns: []string{"your privacy choices"},
		},
		Sites: map[string]config.SiteConfig{
			"127.0.0.1": {
				MaxPages:     2,
				Jurisdiction: model.JurisdictionEU,
			},
		},
	}

	t.Run("with default site config", func(t *testing.T) {
		targetCfg := cfg.ForTarget("https://unmatched.example.com")
		p := createPipelineForTarget(launcher, auditOracle, logger, targetCfg)
		if p == nil {
			t.Error("expected non-nil pipeline")
		}
	})

	t.Run("with site override", func(t *testing.T) {
		targetCfg := cfg.ForTarget(server.URL)
		if targetCfg.MaxPages != 2 {
			t.Errorf("expected site override MaxPages 2, got %d", targetCfg.MaxPages)
		}
		if targetCfg.Jurisdiction != model.JurisdictionEU {
			t.Errorf("expected site override jurisdiction %q, got %q", model.JurisdictionEU, targetCfg.Jurisdiction)
		}
		p := createPipelineForTarget(launcher, auditOracle, logger, targetCfg)
		if p == nil {
			t.Error("expected non-nil pipeline")
		}
	})

	t.Run("pipeline execution", func(t *testing.T) {
		targetCfg := cfg.ForTarget(server.URL)
		targetCfg.MaxJourneys = 3
		targetCfg.ActionDelay = 100 * time.Millisecond
		targetCfg.ScrollSteps = 1
		p := createPipelineForTarget(launcher, auditOracle, logger, targetCfg)

		run := model.NewRun(server.URL, targetCfg.Jurisdiction)
		if err := p.Execute(ctx, run); err != nil {
			t.Fatalf("pipeline.Execute() error = %v", err)
		}

		if run.Report == nil {
			t.Fatalf("expected a report after pipeline execution, run error: %v", run.Error)
		}
		if run.Report.Metadata.Target != server.URL {
			t.Errorf("expected target %q, got %q", server.URL, run.Report.Metadata.Target)
		}
		t.Logf("Pipeline execution completed. Verdict=%s, Violations=%d",
			run.Report.Verdict.Verdict, run.Report.ViolationSummary.Total)
	})
}
