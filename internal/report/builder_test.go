package report

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gpcscan/gpcscan/internal/model"
)

// testRun builds a run fixture whose baseline saw trackers on a.com and
// b.com while the signal-on session still saw a.com.
func testRun() *model.Run {
	run := model.NewRun("https://shop.example", model.JurisdictionCalifornia)
	run.StartedAt = time.Now().Add(-3 * time.Second)

	run.Baseline = &model.SessionResult{
		Label:        model.SessionBaseline,
		PagesVisited: 2,
		Traffic: []model.TrafficRecord{
			{Session: model.SessionBaseline, URL: "https://shop.example/", Domain: "shop.example"},
			{Session: model.SessionBaseline, URL: "https://a.com/collect", Domain: "a.com", IsTracker: true},
			{Session: model.SessionBaseline, URL: "https://a.com/beacon", Domain: "a.com", IsTracker: true},
			{Session: model.SessionBaseline, URL: "https://b.com/pixel", Domain: "b.com", IsTracker: true},
		},
	}
	run.Compliance = &model.SessionResult{
		Label:        model.SessionCompliance,
		GPCOn:        true,
		PagesVisited: 2,
		Traffic: []model.TrafficRecord{
			{Session: model.SessionCompliance, URL: "https://shop.example/", Domain: "shop.example"},
			{Session: model.SessionCompliance, URL: "https://a.com/collect", Domain: "a.com", IsTracker: true},
		},
		TemporalLeaks: []model.TemporalLeakRecord{
			{Domain: "a.com", URL: "https://a.com/collect", FiredMsAfterLoad: 120, Page: "https://shop.example/"},
		},
	}
	run.Violations = []model.Violation{
		{
			RuleID:        "CCPA-1798.135b",
			Type:          model.ViolationGPCNotHonored,
			Severity:      model.SeverityHigh,
			SeverityText:  "HIGH",
			PenaltyMinUSD: 2500,
			PenaltyMaxUSD: 7500,
		},
		{
			RuleID:       "GDPR-ePD-Art5.3",
			Type:         model.ViolationMissingConsentBanner,
			Severity:     model.SeverityMedium,
			SeverityText: "MEDIUM",
		},
	}
	run.Complete()
	return run
}

// TestBuild tests report assembly from a completed run.
func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("assembles verdict, summaries, and totals", func(t *testing.T) {
		t.Parallel()

		run := testRun()
		report, err := Build(run, "v1.0.0")
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}

		if report.Metadata.Tool != "gpcscan" || report.Metadata.Version != "v1.0.0" {
			t.Errorf("metadata tool/version = %q/%q", report.Metadata.Tool, report.Metadata.Version)
		}
		if report.Metadata.Target != "https://shop.example" {
			t.Errorf("Target = %q", report.Metadata.Target)
		}
		if _, err := time.Parse(time.RFC3339, report.Metadata.GeneratedAt); err != nil {
			t.Errorf("GeneratedAt %q is not RFC 3339: %v", report.Metadata.GeneratedAt, err)
		}
		if report.Metadata.ElapsedSeconds < 2.5 {
			t.Errorf("ElapsedSeconds = %v, want at least 2.5", report.Metadata.ElapsedSeconds)
		}

		if report.Verdict.Verdict != model.VerdictNonCompliant {
			t.Errorf("Verdict = %q, want NON-COMPLIANT", report.Verdict.Verdict)
		}
		if want := []string{"a.com"}; !reflect.DeepEqual(report.Verdict.DomainsIgnoringSignal, want) {
			t.Errorf("DomainsIgnoringSignal = %v, want %v", report.Verdict.DomainsIgnoringSignal, want)
		}
		if report.Verdict.TemporalLeakCount != 1 {
			t.Errorf("TemporalLeakCount = %d, want 1", report.Verdict.TemporalLeakCount)
		}

		baseline := report.SessionSummary.Baseline
		if baseline.PagesVisited != 2 || baseline.TotalRequests != 4 || baseline.TrackerRequests != 3 {
			t.Errorf("baseline stats = %+v", baseline)
		}
		if want := []string{"a.com", "b.com"}; !reflect.DeepEqual(baseline.UniqueTrackerDomains, want) {
			t.Errorf("baseline domains = %v, want %v", baseline.UniqueTrackerDomains, want)
		}
		compliance := report.SessionSummary.Compliance
		if compliance.TrackerRequests != 1 || compliance.TemporalLeaks != 1 {
			t.Errorf("compliance stats = %+v", compliance)
		}

		summary := report.ViolationSummary
		if summary.Total != 2 {
			t.Errorf("Total = %d, want 2", summary.Total)
		}
		if summary.SeverityBreakdown["HIGH"] != 1 || summary.SeverityBreakdown["MEDIUM"] != 1 || summary.SeverityBreakdown["LOW"] != 0 {
			t.Errorf("SeverityBreakdown = %v", summary.SeverityBreakdown)
		}
		if summary.MaxPotentialPenaltyUSD != 7500 {
			t.Errorf("MaxPotentialPenaltyUSD = %v, want 7500 (missing maxima count as zero)", summary.MaxPotentialPenaltyUSD)
		}
	})

	t.Run("compliant when tracker sets are disjoint", func(t *testing.T) {
		t.Parallel()

		run := testRun()
		run.Compliance.Traffic = []model.TrafficRecord{
			{Session: model.SessionCompliance, URL: "https://c.com/x", Domain: "c.com", IsTracker: true},
		}

		report, err := Build(run, "v1.0.0")
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if report.Verdict.Verdict != model.VerdictCompliant {
			t.Errorf("Verdict = %q, want COMPLIANT", report.Verdict.Verdict)
		}
		if report.Verdict.DomainsIgnoringSignal == nil {
			t.Error("DomainsIgnoringSignal is nil, want empty slice")
		}
		if len(report.Verdict.DomainsIgnoringSignal) != 0 {
			t.Errorf("DomainsIgnoringSignal = %v, want empty", report.Verdict.DomainsIgnoringSignal)
		}
	})

	t.Run("verdict is independent of the violation list", func(t *testing.T) {
		t.Parallel()

		run := testRun()
		run.Violations = nil

		report, err := Build(run, "v1.0.0")
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if report.Verdict.Verdict != model.VerdictNonCompliant {
			t.Error("verdict flipped to compliant when the violation list was dropped")
		}
		if report.Violations == nil {
			t.Error("Violations is nil, want empty slice")
		}
		if report.ViolationSummary.Total != 0 || report.ViolationSummary.MaxPotentialPenaltyUSD != 0 {
			t.Errorf("summary = %+v, want zero totals", report.ViolationSummary)
		}
	})

	t.Run("incomplete runs are refused", func(t *testing.T) {
		t.Parallel()

		run := testRun()
		run.Compliance = nil
		if _, err := Build(run, "v1.0.0"); !errors.Is(err, ErrIncompleteRun) {
			t.Errorf("Build() error = %v, want ErrIncompleteRun", err)
		}
		if _, err := Build(nil, "v1.0.0"); !errors.Is(err, ErrIncompleteRun) {
			t.Errorf("Build(nil) error = %v, want ErrIncompleteRun", err)
		}
	})
}
