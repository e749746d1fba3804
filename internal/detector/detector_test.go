package detector

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gpcscan/gpcscan/internal/model"
)

// californiaRules returns a rule fixture matching the embedded seed's
// California rows.
func californiaRules() []model.Rule {
	return []model.Rule{
		{
			RuleID:          "CCPA-1798.100",
			SectionCitation: "Cal. Civ. Code 1798.100",
			RuleTitle:       "General duties and notice at collection",
			PenaltyMinUSD:   2500,
			PenaltyMaxUSD:   7500,
		},
		{
			RuleID:          "CCPA-1798.130a5A",
			SectionCitation: "Cal. Civ. Code 1798.130(a)(5)(A)",
			RuleTitle:       "Online notice of consumer privacy rights",
			PenaltyMinUSD:   2500,
			PenaltyMaxUSD:   7500,
		},
		{
			RuleID:          "CCPA-1798.135a",
			SectionCitation: "Cal. Civ. Code 1798.135(a)",
			RuleTitle:       "Do Not Sell or Share link required",
			PenaltyMinUSD:   2500,
			PenaltyMaxUSD:   7500,
		},
		{
			RuleID:          "CCPA-1798.135b",
			SectionCitation: "Cal. Civ. Code 1798.135(b)(1)",
			RuleTitle:       "Opt-out preference signals must be honored",
			PenaltyMinUSD:   2500,
			PenaltyMaxUSD:   7500,
		},
	}
}

func euRules() []model.Rule {
	return []model.Rule{
		{
			RuleID:          "GDPR-ePD-Art5.3",
			SectionCitation: "Directive 2002/58/EC Art. 5(3)",
			RuleTitle:       "Prior consent for device storage or access",
			PenaltyMaxUSD:   10000000,
		},
	}
}

// trackerSession builds a session whose traffic has one tracker request per
// listed domain. Repeating a domain adds more requests for it.
func trackerSession(label string, domains ...string) *model.SessionResult {
	s := &model.SessionResult{
		Label:         label,
		GPCOn:         label == model.SessionCompliance,
		BannerResults: map[string]model.BannerCheck{},
		OptOutResults: map[string]model.OptOutCheck{},
	}
	for _, domain := range domains {
		s.Traffic = append(s.Traffic, model.TrafficRecord{
			Session:   label,
			URL:       "https://" + domain + "/collect",
			Method:    "GET",
			Domain:    domain,
			IsTracker: true,
		})
	}
	return s
}

// TestGPCDetector tests tracker-domain intersection judgment.
func TestGPCDetector(t *testing.T) {
	t.Parallel()

	t.Run("shared tracker domains fire a violation", func(t *testing.T) {
		t.Parallel()

		d := NewGPCDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline, "a.com", "b.com"),
			Compliance: trackerSession(model.SessionCompliance, "a.com"),
			Rules:      californiaRules(),
		})
		if v == nil {
			t.Fatal("expected a violation, got nil")
		}

		if v.Type != model.ViolationGPCNotHonored {
			t.Errorf("Type = %q, want %q", v.Type, model.ViolationGPCNotHonored)
		}
		if v.RuleID != "CCPA-1798.135b" {
			t.Errorf("RuleID = %q, want CCPA-1798.135b", v.RuleID)
		}
		if v.Severity != model.SeverityHigh || v.SeverityText != "HIGH" {
			t.Errorf("severity = %v/%q, want high", v.Severity, v.SeverityText)
		}
		if v.PenaltyMinUSD != 2500 || v.PenaltyMaxUSD != 7500 {
			t.Errorf("penalties = (%v, %v), want (2500, 7500)", v.PenaltyMinUSD, v.PenaltyMaxUSD)
		}
		if v.Recommendation == "" {
			t.Error("Recommendation is empty")
		}

		want := model.GPCEvidence{
			BaselineDomains:       []string{"a.com", "b.com"},
			ComplianceDomains:     []string{"a.com"},
			DomainsIgnoringSignal: []string{"a.com"},
			BaselineRequests:      2,
			ComplianceRequests:    1,
			ReductionPercent:      50.0,
		}
		got, ok := v.Evidence.(model.GPCEvidence)
		if !ok {
			t.Fatalf("Evidence has type %T, want model.GPCEvidence", v.Evidence)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Evidence = %+v, want %+v", got, want)
		}
	})

	t.Run("disjoint tracker domains pass", func(t *testing.T) {
		t.Parallel()

		d := NewGPCDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline, "a.com", "b.com"),
			Compliance: trackerSession(model.SessionCompliance, "c.com"),
			Rules:      californiaRules(),
		})
		if v != nil {
			t.Errorf("expected nil, got %+v", v)
		}
	})

	t.Run("missing rule skips silently", func(t *testing.T) {
		t.Parallel()

		d := NewGPCDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline, "a.com"),
			Compliance: trackerSession(model.SessionCompliance, "a.com"),
			Rules:      euRules(),
		})
		if v != nil {
			t.Errorf("expected nil without a citeable rule, got %+v", v)
		}
	})
}

// TestReductionPercent tests the request-volume reduction formula.
func TestReductionPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		baseline   int
		compliance int
		want       float64
	}{
		{"half the requests", 2, 1, 50.0},
		{"equal counts", 3, 3, 0.0},
		{"fully silenced", 5, 0, 100.0},
		{"zero baseline floored", 0, 0, 100.0},
		{"one decimal rounding", 3, 1, 66.7},
		{"more requests with signal", 3, 4, -33.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := reductionPercent(tt.baseline, tt.compliance); got != tt.want {
				t.Errorf("reductionPercent(%d, %d) = %v, want %v", tt.baseline, tt.compliance, got, tt.want)
			}
		})
	}
}

// TestTemporalLeakDetector tests leak-record aggregation.
func TestTemporalLeakDetector(t *testing.T) {
	t.Parallel()

	t.Run("aggregates leaks with capped samples", func(t *testing.T) {
		t.Parallel()

		compliance := trackerSession(model.SessionCompliance)
		compliance.TemporalLeaks = []model.TemporalLeakRecord{
			{Domain: "hotjar.com", URL: "https://hotjar.com/1", FiredMsAfterLoad: 120, Page: "https://shop.example/"},
			{Domain: "google-analytics.com", URL: "https://google-analytics.com/2", FiredMsAfterLoad: -30, Page: "https://shop.example/"},
			{Domain: "hotjar.com", URL: "https://hotjar.com/3", FiredMsAfterLoad: 400, Page: "https://shop.example/cart"},
			{Domain: "hotjar.com", URL: "https://hotjar.com/4", FiredMsAfterLoad: 499, Page: "https://shop.example/cart"},
		}

		d := NewTemporalLeakDetector()
		v := d.Detect(&Input{
			Baseline:     trackerSession(model.SessionBaseline),
			Compliance:   compliance,
			Rules:        californiaRules(),
			LeakWindowMs: 500,
		})
		if v == nil {
			t.Fatal("expected a violation, got nil")
		}

		if v.Type != model.ViolationTemporalLeak || v.RuleID != "CCPA-1798.135b" {
			t.Errorf("Type/RuleID = %q/%q", v.Type, v.RuleID)
		}

		got, ok := v.Evidence.(model.TemporalLeakEvidence)
		if !ok {
			t.Fatalf("Evidence has type %T, want model.TemporalLeakEvidence", v.Evidence)
		}
		if got.LeakCount != 4 {
			t.Errorf("LeakCount = %d, want 4", got.LeakCount)
		}
		if wantDomains := []string{"google-analytics.com", "hotjar.com"}; !reflect.DeepEqual(got.Domains, wantDomains) {
			t.Errorf("Domains = %v, want %v", got.Domains, wantDomains)
		}
		if len(got.Samples) != model.MaxLeakSamples {
			t.Fatalf("len(Samples) = %d, want %d", len(got.Samples), model.MaxLeakSamples)
		}
		if !reflect.DeepEqual(got.Samples, compliance.TemporalLeaks[:3]) {
			t.Errorf("Samples = %+v, want first three leaks in order", got.Samples)
		}
		if got.WindowMs != 500 {
			t.Errorf("WindowMs = %d, want 500", got.WindowMs)
		}
	})

	t.Run("no leaks pass", func(t *testing.T) {
		t.Parallel()

		d := NewTemporalLeakDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline),
			Compliance: trackerSession(model.SessionCompliance),
			Rules:      californiaRules(),
		})
		if v != nil {
			t.Errorf("expected nil, got %+v", v)
		}
	})

	t.Run("missing rule skips silently", func(t *testing.T) {
		t.Parallel()

		compliance := trackerSession(model.SessionCompliance)
		compliance.TemporalLeaks = []model.TemporalLeakRecord{{Domain: "hotjar.com"}}

		d := NewTemporalLeakDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline),
			Compliance: compliance,
			Rules:      euRules(),
		})
		if v != nil {
			t.Errorf("expected nil without a citeable rule, got %+v", v)
		}
	})
}

// TestOptOutLinkDetector tests missing-link aggregation.
func TestOptOutLinkDetector(t *testing.T) {
	t.Parallel()

	t.Run("missing links fire a violation", func(t *testing.T) {
		t.Parallel()

		compliance := trackerSession(model.SessionCompliance)
		compliance.OptOutResults = map[string]model.OptOutCheck{
			"https://shop.example/":         {LinkFound: true, LinkTexts: []string{"do not sell"}},
			"https://shop.example/cart":     {LinkFound: false},
			"https://shop.example/checkout": {LinkFound: false},
		}

		d := NewOptOutLinkDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline),
			Compliance: compliance,
			Rules:      californiaRules(),
		})
		if v == nil {
			t.Fatal("expected a violation, got nil")
		}
		if v.Type != model.ViolationMissingOptOutLink || v.RuleID != "CCPA-1798.135a" {
			t.Errorf("Type/RuleID = %q/%q", v.Type, v.RuleID)
		}

		got, ok := v.Evidence.(model.OptOutLinkEvidence)
		if !ok {
			t.Fatalf("Evidence has type %T, want model.OptOutLinkEvidence", v.Evidence)
		}
		wantMissing := []string{"https://shop.example/cart", "https://shop.example/checkout"}
		if !reflect.DeepEqual(got.PagesMissingLink, wantMissing) {
			t.Errorf("PagesMissingLink = %v, want %v", got.PagesMissingLink, wantMissing)
		}
		if got.PagesCompliant != 1 || got.TotalPagesChecked != 3 {
			t.Errorf("counts = (%d, %d), want (1, 3)", got.PagesCompliant, got.TotalPagesChecked)
		}
		if got.PagesCompliant+len(got.PagesMissingLink) != got.TotalPagesChecked {
			t.Error("compliant + missing does not equal total")
		}
	})

	t.Run("all pages compliant pass", func(t *testing.T) {
		t.Parallel()

		compliance := trackerSession(model.SessionCompliance)
		compliance.OptOutResults = map[string]model.OptOutCheck{
			"https://shop.example/": {LinkFound: true},
		}

		d := NewOptOutLinkDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline),
			Compliance: compliance,
			Rules:      californiaRules(),
		})
		if v != nil {
			t.Errorf("expected nil, got %+v", v)
		}
	})

	t.Run("no checked pages pass", func(t *testing.T) {
		t.Parallel()

		d := NewOptOutLinkDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline),
			Compliance: trackerSession(model.SessionCompliance),
			Rules:      californiaRules(),
		})
		if v != nil {
			t.Errorf("expected nil, got %+v", v)
		}
	})
}

// TestBannerDetector tests jurisdiction-driven rule selection.
func TestBannerDetector(t *testing.T) {
	t.Parallel()

	missingBannerSession := func() *model.SessionResult {
		s := trackerSession(model.SessionCompliance)
		s.BannerResults = map[string]model.BannerCheck{
			"https://shop.example/":     {Detected: true, MatchedSelectors: []string{"[class*='cookie']"}},
			"https://shop.example/cart": {Detected: false},
		}
		return s
	}

	t.Run("california citation", func(t *testing.T) {
		t.Parallel()

		d := NewBannerDetector()
		v := d.Detect(&Input{
			Baseline:     trackerSession(model.SessionBaseline),
			Compliance:   missingBannerSession(),
			Rules:        californiaRules(),
			Jurisdiction: model.JurisdictionCalifornia,
		})
		if v == nil {
			t.Fatal("expected a violation, got nil")
		}
		if v.RuleID != "CCPA-1798.130a5A" {
			t.Errorf("RuleID = %q, want CCPA-1798.130a5A", v.RuleID)
		}
		if v.Severity != model.SeverityMedium {
			t.Errorf("Severity = %v, want medium", v.Severity)
		}

		got, ok := v.Evidence.(model.BannerEvidence)
		if !ok {
			t.Fatalf("Evidence has type %T, want model.BannerEvidence", v.Evidence)
		}
		if !reflect.DeepEqual(got.PagesMissingBanner, []string{"https://shop.example/cart"}) {
			t.Errorf("PagesMissingBanner = %v", got.PagesMissingBanner)
		}
		if got.TotalPagesChecked != 2 {
			t.Errorf("TotalPagesChecked = %d, want 2", got.TotalPagesChecked)
		}
	})

	t.Run("eu citation", func(t *testing.T) {
		t.Parallel()

		d := NewBannerDetector()
		v := d.Detect(&Input{
			Baseline:     trackerSession(model.SessionBaseline),
			Compliance:   missingBannerSession(),
			Rules:        euRules(),
			Jurisdiction: model.JurisdictionEU,
		})
		if v == nil {
			t.Fatal("expected a violation, got nil")
		}
		if v.RuleID != "GDPR-ePD-Art5.3" {
			t.Errorf("RuleID = %q, want GDPR-ePD-Art5.3", v.RuleID)
		}
	})

	t.Run("banner everywhere passes", func(t *testing.T) {
		t.Parallel()

		s := trackerSession(model.SessionCompliance)
		s.BannerResults = map[string]model.BannerCheck{
			"https://shop.example/": {Detected: true},
		}

		d := NewBannerDetector()
		v := d.Detect(&Input{
			Baseline:     trackerSession(model.SessionBaseline),
			Compliance:   s,
			Rules:        californiaRules(),
			Jurisdiction: model.JurisdictionCalifornia,
		})
		if v != nil {
			t.Errorf("expected nil, got %+v", v)
		}
	})

	t.Run("jurisdiction rule absent skips silently", func(t *testing.T) {
		t.Parallel()

		d := NewBannerDetector()
		v := d.Detect(&Input{
			Baseline:     trackerSession(model.SessionBaseline),
			Compliance:   missingBannerSession(),
			Rules:        californiaRules(),
			Jurisdiction: model.JurisdictionEU,
		})
		if v != nil {
			t.Errorf("expected nil without the eu rule, got %+v", v)
		}
	})
}

// TestPIIDetector tests PII-annotated record aggregation.
func TestPIIDetector(t *testing.T) {
	t.Parallel()

	t.Run("pii records fire a violation with capped samples", func(t *testing.T) {
		t.Parallel()

		longURL := "https://tracker.example/collect?email=user%40example.com&pad=" + strings.Repeat("x", 200)

		compliance := trackerSession(model.SessionCompliance)
		for i := 0; i < 7; i++ {
			record := model.TrafficRecord{
				Session:   model.SessionCompliance,
				URL:       longURL,
				Domain:    "tracker.example",
				IsTracker: true,
				PII:       []string{"email"},
			}
			compliance.Traffic = append(compliance.Traffic, record)
		}

		d := NewPIIDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline),
			Compliance: compliance,
			Rules:      californiaRules(),
		})
		if v == nil {
			t.Fatal("expected a violation, got nil")
		}
		if v.Type != model.ViolationPIIInTracking || v.RuleID != "CCPA-1798.100" {
			t.Errorf("Type/RuleID = %q/%q", v.Type, v.RuleID)
		}

		got, ok := v.Evidence.(model.PIIEvidence)
		if !ok {
			t.Fatalf("Evidence has type %T, want model.PIIEvidence", v.Evidence)
		}
		if got.HitCount != 7 {
			t.Errorf("HitCount = %d, want 7", got.HitCount)
		}
		if len(got.Samples) != model.MaxPIISamples {
			t.Fatalf("len(Samples) = %d, want %d", len(got.Samples), model.MaxPIISamples)
		}
		if len(got.Samples[0].URL) != model.MaxPIISampleURLLen {
			t.Errorf("sample URL length = %d, want %d", len(got.Samples[0].URL), model.MaxPIISampleURLLen)
		}
		if !reflect.DeepEqual(got.Samples[0].PIITypes, []string{"email"}) {
			t.Errorf("PIITypes = %v, want [email]", got.Samples[0].PIITypes)
		}
	})

	t.Run("clean traffic passes", func(t *testing.T) {
		t.Parallel()

		d := NewPIIDetector()
		v := d.Detect(&Input{
			Baseline:   trackerSession(model.SessionBaseline),
			Compliance: trackerSession(model.SessionCompliance, "a.com"),
			Rules:      californiaRules(),
		})
		if v != nil {
			t.Errorf("expected nil, got %+v", v)
		}
	})
}

// TestEngineDetect tests the coordinator over a full scenario.
func TestEngineDetect(t *testing.T) {
	t.Parallel()

	fullScenarioInput := func() *Input {
		baseline := trackerSession(model.SessionBaseline, "a.com", "b.com")
		compliance := trackerSession(model.SessionCompliance, "a.com")
		compliance.Traffic = append(compliance.Traffic, model.TrafficRecord{
			Session: model.SessionCompliance,
			URL:     "https://a.com/collect?uid=12345678",
			Domain:  "a.com",
			PII:     []string{"uid"},
		})
		compliance.TemporalLeaks = []model.TemporalLeakRecord{
			{Domain: "a.com", URL: "https://a.com/early", FiredMsAfterLoad: 42},
		}
		compliance.BannerResults = map[string]model.BannerCheck{
			"https://shop.example/": {Detected: false},
		}
		compliance.OptOutResults = map[string]model.OptOutCheck{
			"https://shop.example/": {LinkFound: false},
		}
		return &Input{
			Baseline:     baseline,
			Compliance:   compliance,
			Rules:        californiaRules(),
			Jurisdiction: model.JurisdictionCalifornia,
			LeakWindowMs: 500,
		}
	}

	t.Run("violations arrive in registration order", func(t *testing.T) {
		t.Parallel()

		violations, err := NewEngine().Detect(context.Background(), fullScenarioInput())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}

		wantTypes := []string{
			model.ViolationGPCNotHonored,
			model.ViolationTemporalLeak,
			model.ViolationMissingOptOutLink,
			model.ViolationMissingConsentBanner,
			model.ViolationPIIInTracking,
		}
		if len(violations) != len(wantTypes) {
			t.Fatalf("got %d violations, want %d", len(violations), len(wantTypes))
		}
		for i, v := range violations {
			if v.Type != wantTypes[i] {
				t.Errorf("violations[%d].Type = %q, want %q", i, v.Type, wantTypes[i])
			}
		}
	})

	t.Run("clean audit yields empty non-nil slice", func(t *testing.T) {
		t.Parallel()

		baseline := trackerSession(model.SessionBaseline, "a.com")
		compliance := trackerSession(model.SessionCompliance)
		compliance.BannerResults = map[string]model.BannerCheck{
			"https://shop.example/": {Detected: true},
		}
		compliance.OptOutResults = map[string]model.OptOutCheck{
			"https://shop.example/": {LinkFound: true},
		}

		violations, err := NewEngine().Detect(context.Background(), &Input{
			Baseline:     baseline,
			Compliance:   compliance,
			Rules:        californiaRules(),
			Jurisdiction: model.JurisdictionCalifornia,
		})
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if violations == nil {
			t.Fatal("violations slice is nil, want empty")
		}
		if len(violations) != 0 {
			t.Errorf("got %d violations, want 0", len(violations))
		}
	})

	t.Run("incomplete input is refused", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine()
		if _, err := engine.Detect(context.Background(), &Input{
			Baseline: trackerSession(model.SessionBaseline),
		}); !errors.Is(err, ErrIncompleteInput) {
			t.Errorf("Detect() error = %v, want ErrIncompleteInput", err)
		}
		if _, err := engine.Detect(context.Background(), nil); !errors.Is(err, ErrIncompleteInput) {
			t.Errorf("Detect(nil) error = %v, want ErrIncompleteInput", err)
		}
	})

	t.Run("cancelled context stops detection", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := NewEngine().Detect(ctx, fullScenarioInput()); !errors.Is(err, context.Canceled) {
			t.Errorf("Detect() error = %v, want context.Canceled", err)
		}
	})
}
