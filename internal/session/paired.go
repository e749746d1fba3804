package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/model"
)

// Orchestrator defaults. The CLI normally overrides these from
// configuration; the defaults make a bare NewOrchestrator usable in tests.
const (
	defaultActionDelay = 800 * time.Millisecond
	defaultScrollSteps = 3
)

// Orchestrator replays one URL plan through two isolated browser sessions,
// a baseline without the opt-out signal and a compliance session with it,
// and collects the traffic and page-check evidence the detectors compare.
type Orchestrator struct {
	launcher browser.Launcher

	// actionDelay is the pause after navigation and between scroll steps.
	actionDelay time.Duration

	// scrollSteps is how many viewport-heights each page is scrolled, to
	// trigger lazy-loaded trackers before the page checks run.
	scrollSteps int

	// leakWindow bounds how long after page load a tracker request still
	// counts as a temporal leak.
	leakWindow time.Duration

	// extraOptOutPatterns extends the built-in opt-out wording list with
	// site-specific phrases from configuration.
	extraOptOutPatterns []string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithActionDelay sets the pause between page actions.
func WithActionDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.actionDelay = d
		}
	}
}

// WithScrollSteps sets how many times each page is scrolled after
// navigation. Zero disables scrolling.
func WithScrollSteps(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.scrollSteps = n
		}
	}
}

// WithLeakWindow sets the temporal leak detection window.
func WithLeakWindow(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.leakWindow = d
		}
	}
}

// WithExtraOptOutPatterns appends site-specific phrases to the opt-out
// link scan. Patterns are matched case-insensitively against link and
// button text.
func WithExtraOptOutPatterns(patterns []string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.extraOptOutPatterns = append(o.extraOptOutPatterns, patterns...)
	}
}

// NewOrchestrator creates a session orchestrator.
func NewOrchestrator(launcher browser.Launcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		launcher:    launcher,
		actionDelay: defaultActionDelay,
		scrollSteps: defaultScrollSteps,
		leakWindow:  defaultLeakWindow,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// PairedResult is the joined output of one paired run. It exists only in
// memory; the pipeline copies the two session results into the audit run.
type PairedResult struct {
	// Baseline is the signal-off session result.
	Baseline *model.SessionResult

	// Compliance is the signal-on session result.
	Compliance *model.SessionResult

	// Elapsed is the wall-clock duration of the paired run.
	Elapsed time.Duration
}

// RunPaired executes the plan in both sessions concurrently and joins them.
//
// Design decision: Both sessions must succeed or RunPaired fails, because:
// 1. Every detector compares baseline evidence against compliance evidence
// 2. A verdict computed from half the evidence would read like a clean pass
// 3. errgroup cancels the surviving session instead of letting it run on
func (o *Orchestrator) RunPaired(ctx context.Context, plan []model.CrawlPlanEntry) (*PairedResult, error) {
	if len(plan) == 0 {
		return nil, ErrEmptyPlan
	}

	slog.Info("paired sessions starting", "planned_pages", len(plan))
	start := time.Now()

	var baseline, compliance *model.SessionResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := o.run(gctx, plan, false)
		if err != nil {
			return fmt.Errorf("%s session failed: %w", model.SessionBaseline, err)
		}
		baseline = result
		return nil
	})
	g.Go(func() error {
		result, err := o.run(gctx, plan, true)
		if err != nil {
			return fmt.Errorf("%s session failed: %w", model.SessionCompliance, err)
		}
		compliance = result
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	slog.Info("paired sessions complete",
		"elapsed", elapsed.Round(time.Millisecond),
		"baseline_trackers", baseline.TrackerRequestCount(),
		"compliance_trackers", compliance.TrackerRequestCount(),
		"temporal_leaks", len(compliance.TemporalLeaks))

	return &PairedResult{
		Baseline:   baseline,
		Compliance: compliance,
		Elapsed:    elapsed,
	}, nil
}
