package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gpcscan/gpcscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and indicator-coded severity levels.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no violations are shown.
	showEmpty bool

	// verbose enables recommendations and evidence detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	// Header
	w.writeHeader(&sb, report)

	// Verdict
	w.writeVerdict(&sb, report)

	// Session comparison
	w.writeSessionSummary(&sb, report)

	// Violations by severity
	w.writeViolations(&sb, report)

	// Footer
	w.writeFooter(&sb, report)

	// Write to output
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                  PRIVACY COMPLIANCE AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Target:        %s\n", report.Metadata.Target))
	sb.WriteString(fmt.Sprintf("Jurisdiction:  %s\n", jurisdictionName(report.Metadata.Jurisdiction)))
	sb.WriteString(fmt.Sprintf("Generated:     %s\n", report.Metadata.GeneratedAt))
	sb.WriteString(fmt.Sprintf("Duration:      %.1fs\n", report.Metadata.ElapsedSeconds))
	sb.WriteString("\n")
}

// writeVerdict writes the headline signal judgement.
func (w *SimpleWriter) writeVerdict(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("VERDICT: %s\n", report.Verdict.Verdict))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Verdict.DomainsIgnoringSignal) > 0 {
		sb.WriteString("  Domains ignoring the opt-out signal:\n")
		for _, domain := range report.Verdict.DomainsIgnoringSignal {
			sb.WriteString(fmt.Sprintf("    [x] %s\n", domain))
		}
	} else {
		sb.WriteString("  No tracker domain survived the opt-out signal.\n")
	}

	if report.Verdict.TemporalLeakCount > 0 {
		sb.WriteString(fmt.Sprintf("  Temporal leaks inside the post-load window: %d\n", report.Verdict.TemporalLeakCount))
	}
	sb.WriteString("\n")
}

// writeSessionSummary writes the baseline/compliance comparison.
func (w *SimpleWriter) writeSessionSummary(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SESSION SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	baseline := report.SessionSummary.Baseline
	compliance := report.SessionSummary.Compliance

	sb.WriteString(fmt.Sprintf("  %-24s %10s %14s\n", "", "baseline", "gpc asserted"))
	sb.WriteString(fmt.Sprintf("  %-24s %10d %14d\n", "Pages visited", baseline.PagesVisited, compliance.PagesVisited))
	sb.WriteString(fmt.Sprintf("  %-24s %10d %14d\n", "Total requests", baseline.TotalRequests, compliance.TotalRequests))
	sb.WriteString(fmt.Sprintf("  %-24s %10d %14d\n", "Tracker requests", baseline.TrackerRequests, compliance.TrackerRequests))
	sb.WriteString(fmt.Sprintf("  %-24s %10d %14d\n", "Unique tracker domains", len(baseline.UniqueTrackerDomains), len(compliance.UniqueTrackerDomains)))
	sb.WriteString(fmt.Sprintf("  %-24s %10d %14d\n", "Temporal leaks", baseline.TemporalLeaks, compliance.TemporalLeaks))
	sb.WriteString("\n")
}

// writeViolations writes all violations grouped by severity.
func (w *SimpleWriter) writeViolations(sb *strings.Builder, report *model.AuditReport) {
	if !report.HasViolations() && !w.showEmpty {
		w.writeViolationTotals(sb, report)
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VIOLATIONS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	// Write violations in order of severity (most severe first)
	severities := []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
	}

	for _, severity := range severities {
		violations := report.ViolationsBySeverity(severity.String())
		if len(violations) == 0 && !w.showEmpty {
			continue
		}

		w.writeViolationsForSeverity(sb, severity, violations)
	}

	w.writeViolationTotals(sb, report)
}

// writeViolationsForSeverity writes violations of a specific severity level.
func (w *SimpleWriter) writeViolationsForSeverity(sb *strings.Builder, severity model.Severity, violations []model.Violation) {
	// Severity header with visual indicator
	indicator := w.getSeverityIndicator(severity)
	sb.WriteString(fmt.Sprintf("[%s] %s\n", indicator, severity.String()))

	if len(violations) == 0 {
		sb.WriteString("  No violations\n\n")
		return
	}

	for _, v := range violations {
		sb.WriteString(fmt.Sprintf("  * %s: %s\n", v.RuleID, v.RuleTitle))
		sb.WriteString(fmt.Sprintf("    Citation: %s\n", v.Section))
		sb.WriteString(fmt.Sprintf("    Penalty:  %s - %s per violation\n", formatUSD(v.PenaltyMinUSD), formatUSD(v.PenaltyMaxUSD)))
		if w.verbose && v.Recommendation != "" {
			sb.WriteString(fmt.Sprintf("    Fix:      %s\n", v.Recommendation))
		}
	}
	sb.WriteString("\n")
}

// writeViolationTotals writes the violation count and penalty summary.
func (w *SimpleWriter) writeViolationTotals(sb *strings.Builder, report *model.AuditReport) {
	summary := report.ViolationSummary
	sb.WriteString(fmt.Sprintf("  TOTAL: %d violation(s)", summary.Total))
	if summary.Total > 0 {
		sb.WriteString(fmt.Sprintf(", maximum potential penalty %s", formatUSD(summary.MaxPotentialPenaltyUSD)))
	}
	sb.WriteString("\n\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Report generated by %s %s\n", report.Metadata.Tool, report.Metadata.Version))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
