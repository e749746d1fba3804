package report

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gpcscan/gpcscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Signal verdict
	w.writeVerdict(md, report)

	// Session comparison
	w.writeSessionSummary(md, report)

	// Violation summary with severity chart
	w.writeViolationSummary(md, report)

	// Per-violation evidence
	w.writeViolations(md, report)

	// Footer
	w.writeFooter(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Privacy Compliance Audit Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Metadata.Target + "`"},
			{"Jurisdiction", jurisdictionName(report.Metadata.Jurisdiction)},
			{"Generated", report.Metadata.GeneratedAt},
			{"Audit Duration", strconv.FormatFloat(report.Metadata.ElapsedSeconds, 'f', 1, 64) + "s"},
			{"Verdict", verdictBadge(report.Verdict.Verdict)},
		},
	})
	md.PlainText("")
}

// writeVerdict writes the headline signal judgement.
func (w *MarkdownWriter) writeVerdict(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Opt-Out Signal Verdict")
	md.PlainText("")

	if report.Verdict.Verdict == model.VerdictNonCompliant {
		md.Cautionf(
			"%d tracker domain(s) kept firing after the opt-out signal was asserted.",
			len(report.Verdict.DomainsIgnoringSignal),
		)
		md.PlainText("")
		md.BulletList(report.Verdict.DomainsIgnoringSignal...)
	} else {
		md.Tip("Every baseline tracker domain went silent once the opt-out signal was asserted.")
	}
	md.PlainText("")

	if report.Verdict.TemporalLeakCount > 0 {
		md.PlainTextf(
			"%d tracker request(s) fired inside the post-load window, before the signal could have been honored.",
			report.Verdict.TemporalLeakCount,
		)
		md.PlainText("")
	}
}

// writeSessionSummary writes the baseline/compliance comparison table.
func (w *MarkdownWriter) writeSessionSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Session Summary")
	md.PlainText("")

	baseline := report.SessionSummary.Baseline
	compliance := report.SessionSummary.Compliance

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Baseline", "GPC Asserted"},
		Rows: [][]string{
			{"Pages Visited", strconv.Itoa(baseline.PagesVisited), strconv.Itoa(compliance.PagesVisited)},
			{"Total Requests", strconv.Itoa(baseline.TotalRequests), strconv.Itoa(compliance.TotalRequests)},
			{"Tracker Requests", strconv.Itoa(baseline.TrackerRequests), strconv.Itoa(compliance.TrackerRequests)},
			{"Unique Tracker Domains", strconv.Itoa(len(baseline.UniqueTrackerDomains)), strconv.Itoa(len(compliance.UniqueTrackerDomains))},
			{"Temporal Leaks", strconv.Itoa(baseline.TemporalLeaks), strconv.Itoa(compliance.TemporalLeaks)},
		},
	})
	md.PlainText("")
}

// writeViolationSummary writes the severity summary section.
func (w *MarkdownWriter) writeViolationSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Violation Summary")
	md.PlainText("")

	summary := report.ViolationSummary

	// Summary table
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 High", strconv.Itoa(summary.SeverityBreakdown[model.SeverityHigh.String()])},
			{"🟡 Medium", strconv.Itoa(summary.SeverityBreakdown[model.SeverityMedium.String()])},
			{"🔵 Low", strconv.Itoa(summary.SeverityBreakdown[model.SeverityLow.String()])},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	md.PlainTextf("**Maximum potential penalty:** %s", formatUSD(summary.MaxPotentialPenaltyUSD))
	md.PlainText("")

	// Add pie chart if there are violations
	if report.HasViolations() {
		w.writePieChart(md, summary)
	}

	// Add alert based on severity
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.ViolationSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Violation Severity Distribution"),
		piechart.WithShowData(true),
	)

	if n := summary.SeverityBreakdown[model.SeverityHigh.String()]; n > 0 {
		chart.LabelAndIntValue("High", uint64(n))
	}
	if n := summary.SeverityBreakdown[model.SeverityMedium.String()]; n > 0 {
		chart.LabelAndIntValue("Medium", uint64(n))
	}
	if n := summary.SeverityBreakdown[model.SeverityLow.String()]; n > 0 {
		chart.LabelAndIntValue("Low", uint64(n))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary model.ViolationSummary) {
	switch {
	case summary.SeverityBreakdown[model.SeverityHigh.String()] > 0:
		md.Cautionf(
			"%d high severity violation(s) carry direct per-consumer penalty exposure and require immediate remediation.",
			summary.SeverityBreakdown[model.SeverityHigh.String()],
		)
	case summary.SeverityBreakdown[model.SeverityMedium.String()] > 0:
		md.Warningf(
			"%d medium severity violation(s) found. Regulators treat these as notice defects.",
			summary.SeverityBreakdown[model.SeverityMedium.String()],
		)
	case summary.Total > 0:
		md.Note("Only low severity violations detected.")
	default:
		md.Tip("No violations detected.")
	}
	md.PlainText("")
}

// writeViolations writes each violation with its citation and evidence.
func (w *MarkdownWriter) writeViolations(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Violations")
	md.PlainText("")

	if !report.HasViolations() {
		md.PlainText("No violations detected.")
		md.PlainText("")
		return
	}

	for _, v := range report.Violations {
		md.PlainTextf("### %s %s: %s", severityIndicator(v.Severity), v.RuleID, v.RuleTitle)
		md.PlainText("")

		md.Table(markdown.TableSet{
			Header: []string{"Field", "Value"},
			Rows: [][]string{
				{"Citation", v.Section},
				{"Type", violationTypeName(v.Type)},
				{"Severity", v.SeverityText},
				{"Penalty Range", formatUSD(v.PenaltyMinUSD) + " – " + formatUSD(v.PenaltyMaxUSD) + " per violation"},
			},
		})
		md.PlainText("")

		md.PlainTextf("**Recommendation:** %s", v.Recommendation)
		md.PlainText("")

		w.writeEvidence(md, v.Evidence)
	}
}

// writeEvidence renders the typed evidence payload as a JSON block. The
// payload shape differs per violation type, so JSON keeps the markdown
// rendering uniform while preserving every field for review.
func (w *MarkdownWriter) writeEvidence(md *markdown.Markdown, evidence model.Evidence) {
	data, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return
	}
	md.CodeBlocks(markdown.SyntaxHighlightJSON, string(data))
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, report *model.AuditReport) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by %s %s*", report.Metadata.Tool, report.Metadata.Version)
}

// jurisdictionName returns the human-readable jurisdiction name.
func jurisdictionName(jurisdiction string) string {
	switch jurisdiction {
	case model.JurisdictionCalifornia:
		return "California (CCPA/CPRA)"
	case model.JurisdictionEU:
		return "European Union (GDPR/ePrivacy)"
	default:
		return cases.Title(language.English).String(jurisdiction)
	}
}

// violationTypeName renders a violation type tag as readable text,
// e.g. "gpc_not_honored" becomes "Gpc Not Honored".
func violationTypeName(violationType string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(violationType, "_", " "))
}

// verdictBadge decorates the verdict for the header table.
func verdictBadge(verdict string) string {
	if verdict == model.VerdictNonCompliant {
		return "❌ " + verdict
	}
	return "✅ " + verdict
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "🚨"
	case model.SeverityHigh:
		return "🔴"
	case model.SeverityMedium:
		return "🟡"
	case model.SeverityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

// formatUSD renders a dollar amount with thousands separators.
func formatUSD(amount float64) string {
	return "$" + message.NewPrinter(language.English).Sprintf("%.0f", amount)
}
