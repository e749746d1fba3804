package model

// GPC verdict values. The verdict is recomputed from raw traffic rather than
// derived from the violation list, so it stays meaningful even when the rule
// table is missing an entry and no violation could be emitted.
const (
	VerdictCompliant    = "COMPLIANT"
	VerdictNonCompliant = "NON-COMPLIANT"
)

// ReportMetadata identifies the audit that produced a report.
type ReportMetadata struct {
	// Tool is the tool name.
	Tool string `json:"tool"`

	// Version is the tool version.
	Version string `json:"version"`

	// Target is the audited root URL.
	Target string `json:"target"`

	// Jurisdiction is the regulation the audit was run under.
	Jurisdiction string `json:"jurisdiction"`

	// GeneratedAt is the report generation time in RFC 3339 UTC.
	GeneratedAt string `json:"generated_at"`

	// ElapsedSeconds is the wall-clock audit duration.
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// SessionStats summarizes one session's traffic.
type SessionStats struct {
	// PagesVisited counts successful navigations.
	PagesVisited int `json:"pages_visited"`

	// TotalRequests is the length of the session's traffic log.
	TotalRequests int `json:"total_requests"`

	// TrackerRequests counts tracker-flagged requests.
	TrackerRequests int `json:"tracker_requests"`

	// UniqueTrackerDomains is the sorted set of tracker registrable domains.
	UniqueTrackerDomains []string `json:"unique_tracker_domains"`

	// TemporalLeaks counts leak records. Only the signal-on session
	// produces them.
	TemporalLeaks int `json:"temporal_leaks,omitempty"`
}

// SessionSummary pairs the two sessions' stats.
type SessionSummary struct {
	Baseline   SessionStats `json:"baseline"`
	Compliance SessionStats `json:"compliance_gpc_on"`
}

// GPCVerdict is the headline judgement: which tracker domains kept firing
// after the opt-out signal was asserted.
type GPCVerdict struct {
	// Verdict is VerdictNonCompliant if any baseline tracker domain also
	// appears in the signal-on session, VerdictCompliant otherwise.
	Verdict string `json:"verdict"`

	// DomainsIgnoringSignal is the sorted intersection of the two
	// sessions' tracker domain sets.
	DomainsIgnoringSignal []string `json:"domains_ignoring_gpc"`

	// TemporalLeakCount counts leak records from the signal-on session.
	TemporalLeakCount int `json:"temporal_leak_count"`
}

// ViolationSummary aggregates the violation list.
type ViolationSummary struct {
	// Total is the number of violations.
	Total int `json:"total"`

	// SeverityBreakdown maps severity text to count. HIGH, MEDIUM, and LOW
	// are always present, even at zero.
	SeverityBreakdown map[string]int `json:"severity_breakdown"`

	// MaxPotentialPenaltyUSD sums the statutory maximum penalty over all
	// violations. Violations whose rule carries no penalty contribute zero.
	MaxPotentialPenaltyUSD float64 `json:"max_potential_penalty_usd"`
}

// AuditReport is the final evidence report for one audit. It is assembled
// in one pass after both sessions and all detectors finish; every summary
// figure is derived from the session results at that point, so the JSON
// output is deterministic for a given capture.
type AuditReport struct {
	Metadata         ReportMetadata   `json:"report_metadata"`
	SessionSummary   SessionSummary   `json:"session_summary"`
	Verdict          GPCVerdict       `json:"gpc_verdict"`
	ViolationSummary ViolationSummary `json:"violation_summary"`
	Violations       []Violation      `json:"violations"`
}

// HasViolations returns true if the report contains any violations.
func (r *AuditReport) HasViolations() bool {
	return len(r.Violations) > 0
}

// ViolationsBySeverity returns violations matching the given severity text.
func (r *AuditReport) ViolationsBySeverity(severity string) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.SeverityText == severity {
			out = append(out, v)
		}
	}
	return out
}

// NewViolationSummary aggregates a violation list into summary form.
func NewViolationSummary(violations []Violation) ViolationSummary {
	counts := map[string]int{
		SeverityHigh.String():   0,
		SeverityMedium.String(): 0,
		SeverityLow.String():    0,
	}
	var penalty float64
	for _, v := range violations {
		counts[v.SeverityText]++
		penalty += v.PenaltyMaxUSD
	}
	return ViolationSummary{
		Total:                  len(violations),
		SeverityBreakdown:      counts,
		MaxPotentialPenaltyUSD: penalty,
	}
}
