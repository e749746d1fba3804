package report

import (
	"math"
	"sort"
	"time"

	"github.com/gpcscan/gpcscan/internal/model"
)

// toolName is the tool identifier stamped into report metadata.
const toolName = "gpcscan"

// Build assembles the final evidence report from a completed run.
//
// The verdict is recomputed here from the raw tracker-domain intersection,
// not derived from the violation list: a rule-table gap can suppress the
// GPC violation, and the headline judgement must not silently flip to
// compliant because a citation was missing. Both session results are
// required; a report built from half an audit would read like a pass, so
// an incomplete run is refused outright.
func Build(run *model.Run, version string) (*model.AuditReport, error) {
	if run == nil || run.Baseline == nil || run.Compliance == nil {
		return nil, ErrIncompleteRun
	}

	ignoring := domainsIgnoringSignal(run.Baseline, run.Compliance)
	verdict := model.VerdictCompliant
	if len(ignoring) > 0 {
		verdict = model.VerdictNonCompliant
	}

	violations := run.Violations
	if violations == nil {
		violations = []model.Violation{}
	}

	return &model.AuditReport{
		Metadata: model.ReportMetadata{
			Tool:           toolName,
			Version:        version,
			Target:         run.Target,
			Jurisdiction:   run.Jurisdiction,
			GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
			ElapsedSeconds: math.Round(run.Elapsed().Seconds()*10) / 10,
		},
		SessionSummary: model.SessionSummary{
			Baseline:   sessionStats(run.Baseline),
			Compliance: sessionStats(run.Compliance),
		},
		Verdict: model.GPCVerdict{
			Verdict:               verdict,
			DomainsIgnoringSignal: ignoring,
			TemporalLeakCount:     len(run.Compliance.TemporalLeaks),
		},
		ViolationSummary: model.NewViolationSummary(violations),
		Violations:       violations,
	}, nil
}

// sessionStats summarizes one session's traffic for the report.
func sessionStats(s *model.SessionResult) model.SessionStats {
	domains := make([]string, 0)
	for domain := range s.TrackerDomains() {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	return model.SessionStats{
		PagesVisited:         s.PagesVisited,
		TotalRequests:        len(s.Traffic),
		TrackerRequests:      s.TrackerRequestCount(),
		UniqueTrackerDomains: domains,
		TemporalLeaks:        len(s.TemporalLeaks),
	}
}

// domainsIgnoringSignal returns the sorted intersection of the two
// sessions' tracker-domain sets. The slice is non-nil even when empty so
// the verdict serializes as an empty list rather than null.
func domainsIgnoringSignal(baseline, compliance *model.SessionResult) []string {
	complianceDomains := compliance.TrackerDomains()
	ignoring := make([]string, 0)
	for domain := range baseline.TrackerDomains() {
		if _, ok := complianceDomains[domain]; ok {
			ignoring = append(ignoring, domain)
		}
	}
	sort.Strings(ignoring)
	return ignoring
}
