package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gpcscan/gpcscan/internal/config"
	"github.com/gpcscan/gpcscan/internal/database"
	"github.com/gpcscan/gpcscan/internal/model"
	"github.com/spf13/cobra"
)

// Risk direction values reported by the comparison.
const (
	riskWorsened  = "WORSENED"
	riskImproved  = "IMPROVED"
	riskUnchanged = "UNCHANGED"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare stored audits of a target",
		Long: `Compare diffs the stored audit history of a target and reports which
violations are new, which were resolved, and how the potential statutory
exposure moved between runs.

By default the two most recent audits are compared. A specific baseline
can be selected with --with-audit-id or --since.

Examples:
  # Compare the two most recent audits
  gpcscan compare https://shop.example.com

  # List targets with stored audit history
  gpcscan compare --list-targets

  # List the stored audits of a target
  gpcscan compare --list shop.example.com

  # Compare the latest audit against a specific earlier one
  gpcscan compare --with-audit-id gpcscan_20260801_090000 shop.example.com

  # Compare against the first audit on or after a date
  gpcscan compare --since 2026-08-01 shop.example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored audits for the target")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all targets with stored audit history")
	cmd.Flags().StringP("with-audit-id", "i", "",
		"Compare the latest audit against the given audit ID")
	cmd.Flags().StringP("since", "s", "",
		"Compare against the first audit on or after DATE (YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison as Markdown")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listAudits, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	listTargets, err := cmd.Flags().GetBool("list-targets")
	if err != nil {
		return err
	}
	withAuditID, err := cmd.Flags().GetString("with-audit-id")
	if err != nil {
		return err
	}
	since, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	if jsonOutput && markdownOutput {
		return errors.New("conflicting output formats: --json and --markdown cannot be used together")
	}

	ctx := context.Background()

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Listing targets needs no positional argument
	if listTargets {
		return listAuditedTargets(ctx, db)
	}

	if len(args) == 0 {
		return errors.New("target URL required (or use --list-targets to see stored targets)")
	}
	target := normalizeTarget(args[0])

	if listAudits {
		return listAuditHistory(ctx, db, target)
	}

	return runComparison(ctx, db, target, withAuditID, since, jsonOutput, markdownOutput)
}

// listAuditedTargets prints every target with stored audit history.
func listAuditedTargets(ctx context.Context, db *database.AuditDB) error {
	targets, err := db.ListAuditedTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Println("No audits stored yet. Run 'gpcscan audit <url>' first.")
		return nil
	}

	fmt.Printf("Audited targets (%d):\n\n", len(targets))
	for _, t := range targets {
		fmt.Printf("  %s\n", t)
	}
	fmt.Println("\nUse 'gpcscan compare --list <url>' to see a target's audit history.")

	return nil
}

// listAuditHistory prints the stored audits of a target, newest first.
func listAuditHistory(ctx context.Context, db *database.AuditDB, target string) error {
	records, err := db.GetAuditHistoryWithMetadata(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No audits stored for %s. Run 'gpcscan audit %s' first.\n", target, target)
		return nil
	}

	fmt.Printf("Audit history for %s (%d audits, newest first):\n\n", target, len(records))
	fmt.Printf("  %-26s  %-19s  %-14s  %s\n", "Audit ID", "Date", "Verdict", "Violations")
	fmt.Println("  " + strings.Repeat("-", 76))

	for _, rec := range records {
		verdict := rec.Verdict
		if verdict == "" {
			verdict = "-"
		}
		fmt.Printf("  %-26s  %-19s  %-14s  %s\n",
			rec.AuditID,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			verdict,
			formatSeveritySummary(rec.ViolationCount, rec.SeverityCounts),
		)
	}

	fmt.Println("\nUse 'gpcscan compare --with-audit-id <id> <url>' to compare against a specific audit.")

	return nil
}

// formatSeveritySummary renders a violation count with its severity split,
// e.g. "3 (H:1 M:1 L:1)".
func formatSeveritySummary(total int, counts map[string]int) string {
	if total == 0 {
		return "none"
	}
	return fmt.Sprintf("%d (H:%d M:%d L:%d)", total,
		counts[model.SeverityHigh.String()],
		counts[model.SeverityMedium.String()],
		counts[model.SeverityLow.String()],
	)
}

// runComparison selects the baseline audit and prints the diff against the
// most recent one.
func runComparison(ctx context.Context, db *database.AuditDB, target, withAuditID, since string, jsonOutput, markdownOutput bool) error {
	reports, err := db.GetAuditHistory(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("no audit history found for %s", target)
	}

	current := reports[0]

	var previous *model.AuditReport
	switch {
	case withAuditID != "":
		previous, err = db.GetReportByAuditID(ctx, withAuditID)
		if err != nil {
			return fmt.Errorf("failed to get audit %s: %w", withAuditID, err)
		}
		if previous == nil {
			return fmt.Errorf("audit %s not found", withAuditID)
		}
		if previous.Metadata.Target != target {
			return fmt.Errorf("audit %s is for %s, not %s", withAuditID, previous.Metadata.Target, target)
		}
	case since != "":
		sinceTime, err := time.Parse("2006-01-02", since)
		if err != nil {
			return fmt.Errorf("invalid --since date %q (expected YYYY-MM-DD): %w", since, err)
		}
		// Reports are newest first; walk from the oldest towards the
		// current one and take the first audit on or after the date.
		for i := len(reports) - 1; i >= 1; i-- {
			generatedAt, err := time.Parse(time.RFC3339, reports[i].Metadata.GeneratedAt)
			if err != nil {
				continue
			}
			if !generatedAt.Before(sinceTime) {
				previous = reports[i]
				break
			}
		}
		if previous == nil {
			return fmt.Errorf("no earlier audit of %s found on or after %s", target, since)
		}
	default:
		if len(reports) < 2 {
			return fmt.Errorf("only one audit stored for %s; run 'gpcscan audit %s' again to have something to compare", target, target)
		}
		previous = reports[1]
	}

	result := compareAudits(target, previous, current)

	switch {
	case jsonOutput:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case markdownOutput:
		return outputComparisonMarkdown(os.Stdout, result)
	default:
		return outputComparisonText(os.Stdout, result)
	}
}

// ComparisonResult describes how a target's compliance posture changed
// between two stored audits.
type ComparisonResult struct {
	// Target is the audited root URL.
	Target string `json:"target"`

	// PreviousAudit summarizes the baseline audit.
	PreviousAudit AuditSummary `json:"previous_audit"`

	// CurrentAudit summarizes the most recent audit.
	CurrentAudit AuditSummary `json:"current_audit"`

	// VerdictChanged is true when the opt-out verdict flipped.
	VerdictChanged bool `json:"verdict_changed"`

	// NewViolations appear in the current audit but not the previous one.
	NewViolations []model.Violation `json:"new_violations"`

	// ResolvedViolations appear in the previous audit but not the current one.
	ResolvedViolations []model.Violation `json:"resolved_violations"`

	// UnchangedCount counts violations present in both audits.
	UnchangedCount int `json:"unchanged_count"`

	// RiskChange aggregates severity and penalty movement.
	RiskChange RiskChange `json:"risk_change"`
}

// AuditSummary condenses one audit for comparison output.
type AuditSummary struct {
	GeneratedAt     string  `json:"generated_at"`
	Verdict         string  `json:"verdict"`
	TotalViolations int     `json:"total_violations"`
	HighCount       int     `json:"high_count"`
	MediumCount     int     `json:"medium_count"`
	LowCount        int     `json:"low_count"`
	MaxPenaltyUSD   float64 `json:"max_penalty_usd"`
}

// RiskChange aggregates how exposure moved between two audits.
type RiskChange struct {
	// Direction is WORSENED, IMPROVED, or UNCHANGED.
	Direction string `json:"direction"`

	HighDelta   int `json:"high_delta"`
	MediumDelta int `json:"medium_delta"`
	LowDelta    int `json:"low_delta"`

	// PenaltyDeltaUSD is the change in summed statutory maximum penalty.
	PenaltyDeltaUSD float64 `json:"penalty_delta_usd"`
}

// compareAudits diffs two audit reports of the same target.
func compareAudits(target string, previous, current *model.AuditReport) *ComparisonResult {
	result := &ComparisonResult{
		Target:         target,
		PreviousAudit:  summarizeAudit(previous),
		CurrentAudit:   summarizeAudit(current),
		VerdictChanged: previous.Verdict.Verdict != current.Verdict.Verdict,
	}

	prevKeys := make(map[string]model.Violation, len(previous.Violations))
	for _, v := range previous.Violations {
		prevKeys[violationKey(v)] = v
	}
	currKeys := make(map[string]model.Violation, len(current.Violations))
	for _, v := range current.Violations {
		currKeys[violationKey(v)] = v
	}

	for key, v := range currKeys {
		if _, ok := prevKeys[key]; ok {
			result.UnchangedCount++
		} else {
			result.NewViolations = append(result.NewViolations, v)
		}
	}
	for key, v := range prevKeys {
		if _, ok := currKeys[key]; !ok {
			result.ResolvedViolations = append(result.ResolvedViolations, v)
		}
	}

	// Map iteration order is random; sort for reproducible output.
	sort.Slice(result.NewViolations, func(i, j int) bool {
		return violationKey(result.NewViolations[i]) < violationKey(result.NewViolations[j])
	})
	sort.Slice(result.ResolvedViolations, func(i, j int) bool {
		return violationKey(result.ResolvedViolations[i]) < violationKey(result.ResolvedViolations[j])
	})

	result.RiskChange = calculateRiskChange(result.PreviousAudit, result.CurrentAudit)

	return result
}

// violationKey identifies a violation across audits. Evidence strings move
// between runs (timestamps, request URLs), so only the detector type and
// rule make up the key.
func violationKey(v model.Violation) string {
	return v.Type + "|" + v.RuleID
}

// summarizeAudit condenses a report for comparison output.
func summarizeAudit(report *model.AuditReport) AuditSummary {
	breakdown := report.ViolationSummary.SeverityBreakdown
	return AuditSummary{
		GeneratedAt:     report.Metadata.GeneratedAt,
		Verdict:         report.Verdict.Verdict,
		TotalViolations: report.ViolationSummary.Total,
		HighCount:       breakdown[model.SeverityHigh.String()],
		MediumCount:     breakdown[model.SeverityMedium.String()],
		LowCount:        breakdown[model.SeverityLow.String()],
		MaxPenaltyUSD:   report.ViolationSummary.MaxPotentialPenaltyUSD,
	}
}

// calculateRiskChange computes severity deltas and an overall direction.
// Severities are weighted so one new HIGH outweighs several resolved LOWs.
func calculateRiskChange(previous, current AuditSummary) RiskChange {
	change := RiskChange{
		HighDelta:       current.HighCount - previous.HighCount,
		MediumDelta:     current.MediumCount - previous.MediumCount,
		LowDelta:        current.LowCount - previous.LowCount,
		PenaltyDeltaUSD: current.MaxPenaltyUSD - previous.MaxPenaltyUSD,
	}

	score := change.HighDelta*50 + change.MediumDelta*10 + change.LowDelta*5
	switch {
	case score > 0:
		change.Direction = riskWorsened
	case score < 0:
		change.Direction = riskImproved
	default:
		change.Direction = riskUnchanged
	}

	return change
}

// outputComparisonText prints the comparison as a human-readable summary.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	header := fmt.Sprintf("Audit Comparison: %s", result.Target)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("=", len(header)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Previous: %s\n", formatGeneratedAt(result.PreviousAudit.GeneratedAt))
	fmt.Fprintf(w, "Current:  %s\n\n", formatGeneratedAt(result.CurrentAudit.GeneratedAt))

	if result.VerdictChanged {
		fmt.Fprintf(w, "Verdict: %s -> %s\n\n", result.PreviousAudit.Verdict, result.CurrentAudit.Verdict)
	} else {
		fmt.Fprintf(w, "Verdict: %s (unchanged)\n\n", result.CurrentAudit.Verdict)
	}

	fmt.Fprintf(w, "Risk: %s\n", formatRiskDirection(result.RiskChange.Direction))
	fmt.Fprintf(w, "  High:   %s\n", formatDelta(result.RiskChange.HighDelta))
	fmt.Fprintf(w, "  Medium: %s\n", formatDelta(result.RiskChange.MediumDelta))
	fmt.Fprintf(w, "  Low:    %s\n", formatDelta(result.RiskChange.LowDelta))
	if result.RiskChange.PenaltyDeltaUSD != 0 {
		fmt.Fprintf(w, "  Potential penalty: %+.0f USD\n", result.RiskChange.PenaltyDeltaUSD)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "New violations (%d):\n", len(result.NewViolations))
	if len(result.NewViolations) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, v := range result.NewViolations {
		fmt.Fprintf(w, "  [+] [%s] %s: %s (%s)\n", v.SeverityText, v.Type, v.RuleTitle, v.Section)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Resolved violations (%d):\n", len(result.ResolvedViolations))
	if len(result.ResolvedViolations) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, v := range result.ResolvedViolations {
		fmt.Fprintf(w, "  [-] [%s] %s: %s (%s)\n", v.SeverityText, v.Type, v.RuleTitle, v.Section)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Unchanged violations: %d\n", result.UnchangedCount)

	return nil
}

// outputComparisonMarkdown prints the comparison as Markdown.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(w, "# Audit Comparison: %s\n\n", result.Target)

	fmt.Fprintln(w, "| | Previous | Current |")
	fmt.Fprintln(w, "|---|---|---|")
	fmt.Fprintf(w, "| Date | %s | %s |\n",
		formatGeneratedAt(result.PreviousAudit.GeneratedAt),
		formatGeneratedAt(result.CurrentAudit.GeneratedAt))
	fmt.Fprintf(w, "| Verdict | %s | %s |\n", result.PreviousAudit.Verdict, result.CurrentAudit.Verdict)
	fmt.Fprintf(w, "| Violations | %d | %d |\n", result.PreviousAudit.TotalViolations, result.CurrentAudit.TotalViolations)
	fmt.Fprintf(w, "| High | %d | %d |\n", result.PreviousAudit.HighCount, result.CurrentAudit.HighCount)
	fmt.Fprintf(w, "| Medium | %d | %d |\n", result.PreviousAudit.MediumCount, result.CurrentAudit.MediumCount)
	fmt.Fprintf(w, "| Low | %d | %d |\n", result.PreviousAudit.LowCount, result.CurrentAudit.LowCount)
	fmt.Fprintf(w, "| Max penalty (USD) | %.0f | %.0f |\n\n",
		result.PreviousAudit.MaxPenaltyUSD, result.CurrentAudit.MaxPenaltyUSD)

	fmt.Fprintf(w, "**Risk: %s**\n\n", formatRiskDirection(result.RiskChange.Direction))

	fmt.Fprintf(w, "## New violations (%d)\n\n", len(result.NewViolations))
	if len(result.NewViolations) == 0 {
		fmt.Fprintln(w, "None.")
	}
	for _, v := range result.NewViolations {
		fmt.Fprintf(w, "- **[%s]** %s: %s (%s)\n", v.SeverityText, v.Type, v.RuleTitle, v.Section)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "## Resolved violations (%d)\n\n", len(result.ResolvedViolations))
	if len(result.ResolvedViolations) == 0 {
		fmt.Fprintln(w, "None.")
	}
	for _, v := range result.ResolvedViolations {
		fmt.Fprintf(w, "- **[%s]** %s: %s (%s)\n", v.SeverityText, v.Type, v.RuleTitle, v.Section)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Unchanged violations: %d\n", result.UnchangedCount)

	return nil
}

// formatGeneratedAt renders an RFC 3339 report timestamp for display.
func formatGeneratedAt(generatedAt string) string {
	t, err := time.Parse(time.RFC3339, generatedAt)
	if err != nil {
		return generatedAt
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatDelta renders a signed count: "+2", "-1", or "0".
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return strconv.Itoa(delta)
}

// formatRiskDirection renders the direction with a short qualifier.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskWorsened:
		return riskWorsened + " (exposure increased)"
	case riskImproved:
		return riskImproved + " (exposure decreased)"
	default:
		return riskUnchanged
	}
}
