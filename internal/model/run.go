package model

import (
	"fmt"
	"time"
)

// auditIDFormat is the timestamp layout embedded in audit IDs.
const auditIDFormat = "20060102_150405"

// Run accumulates the state of one audit as it moves through the pipeline.
// Each stage fills in its own section and never touches earlier ones.
//
// Design decision: We pass a single mutable Run through the pipeline rather
// than returning per-stage values because:
// 1. Every stage needs access to earlier stages' output
// 2. It matches how reports are persisted (one row per audit)
// 3. Partial state survives a failed stage for diagnostics
type Run struct {
	// ID is the unique audit identifier, e.g. "gpcscan_20250114_153042".
	ID string `json:"audit_id"`

	// Target is the root URL being audited.
	Target string `json:"target"`

	// Jurisdiction selects the regulation rule set to audit against
	// (JurisdictionCalifornia or JurisdictionEU).
	Jurisdiction string `json:"jurisdiction"`

	// StartedAt is when the audit began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the audit completed or failed.
	// Zero until the run finishes.
	FinishedAt time.Time `json:"finished_at"`

	// Graph is the prioritized interaction graph from the crawl stage.
	Graph *InteractionGraph `json:"graph,omitempty"`

	// Plan is the ordered journey plan derived from the graph.
	Plan []CrawlPlanEntry `json:"plan,omitempty"`

	// Baseline is the signal-off session result.
	Baseline *SessionResult `json:"baseline,omitempty"`

	// Compliance is the signal-on session result.
	Compliance *SessionResult `json:"compliance,omitempty"`

	// Violations is the detector output.
	Violations []Violation `json:"violations,omitempty"`

	// Report is the final evidence report.
	Report *AuditReport `json:"report,omitempty"`

	// Stages records each pipeline stage as it finishes, in order.
	Stages []string `json:"stages_run,omitempty"`

	// TimedOut is true if the audit was terminated by its deadline.
	TimedOut bool `json:"timed_out"`

	// Error holds the fatal error that stopped the audit, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// ActionNavigate is the only plan action the planner currently emits.
const ActionNavigate = "navigate"

// CrawlPlanEntry is one step of the journey plan executed by both sessions.
type CrawlPlanEntry struct {
	// URL is the page to visit.
	URL string `json:"url"`

	// Action is the interaction to perform. Only "navigate" is produced
	// today; the field exists so plans stay extensible.
	Action string `json:"action"`

	// Reason explains why the planner chose this step.
	Reason string `json:"reason,omitempty"`
}

// NewRun creates a Run for the given target with a timestamped audit ID.
func NewRun(target, jurisdiction string) *Run {
	now := time.Now()
	return &Run{
		ID:           fmt.Sprintf("gpcscan_%s", now.Format(auditIDFormat)),
		Target:       target,
		Jurisdiction: jurisdiction,
		StartedAt:    now,
	}
}

// Complete marks the run as finished.
func (r *Run) Complete() {
	r.FinishedAt = time.Now()
}

// Fail marks the run as finished with a fatal error.
func (r *Run) Fail(err error) {
	r.FinishedAt = time.Now()
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Elapsed returns the audit duration. If the run has not finished, it
// measures up to now.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
