package oracle

import (
	"context"
	"strings"
	"testing"

	"github.com/gpcscan/gpcscan/internal/model"
)

// TestFallbackScore tests the rule-based risk scoring.
func TestFallbackScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		trackers  int
		forms     int
		hasOptOut bool
		want      int
	}{
		{"bare page without opt-out scores three", 0, 0, false, 3},
		{"bare page with opt-out floors at one", 0, 0, true, 1},
		{"single tracker with opt-out", 1, 0, true, 2},
		{"trackers and forms accumulate", 2, 1, false, 9},
		{"score caps at ten", 5, 3, false, 10},
		{"forms only without opt-out", 0, 2, false, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			summary := &model.PageSummary{
				URL:           "https://shop.example.com/about",
				HasOptOutText: tt.hasOptOut,
			}
			for i := 0; i < tt.trackers; i++ {
				summary.TrackerScripts = append(summary.TrackerScripts, "https://cdn.tracker.example/t.js")
			}
			for i := 0; i < tt.forms; i++ {
				summary.Forms = append(summary.Forms, model.FormSummary{Method: "post", Action: "/submit"})
			}

			got := Fallback(summary)
			if got.RiskScore != tt.want {
				t.Errorf("Fallback risk score = %d, want %d", got.RiskScore, tt.want)
			}
		})
	}
}

// TestFallbackCandidates tests candidate generation from discovered links.
func TestFallbackCandidates(t *testing.T) {
	t.Parallel()

	t.Run("one medium candidate per link", func(t *testing.T) {
		t.Parallel()

		summary := &model.PageSummary{
			URL: "https://example.com",
			Links: []model.Link{
				{Href: "https://example.com/privacy", Text: "Privacy"},
				{Href: "https://example.com/contact", Text: "Contact"},
				{Href: "https://example.com/shop", Text: "Shop"},
			},
		}

		got := Fallback(summary)
		if len(got.Candidates) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(got.Candidates))
		}
		for i, cand := range got.Candidates {
			if cand.URL != summary.Links[i].Href {
				t.Errorf("candidate %d URL = %q, want %q", i, cand.URL, summary.Links[i].Href)
			}
			if cand.Priority != PriorityMedium {
				t.Errorf("candidate %d priority = %q, want %q", i, cand.Priority, PriorityMedium)
			}
			if cand.Reason != "rule-based" {
				t.Errorf("candidate %d reason = %q, want %q", i, cand.Reason, "rule-based")
			}
		}
	})

	t.Run("no links means no candidates", func(t *testing.T) {
		t.Parallel()

		got := Fallback(&model.PageSummary{URL: "https://example.com/dead-end"})
		if len(got.Candidates) != 0 {
			t.Errorf("expected 0 candidates, got %d", len(got.Candidates))
		}
	})
}

// TestFallbackReasons tests that the score explanation matches the inputs.
func TestFallbackReasons(t *testing.T) {
	t.Parallel()

	t.Run("explains trackers, forms, and missing opt-out", func(t *testing.T) {
		t.Parallel()

		summary := &model.PageSummary{
			URL:            "https://example.com/signup",
			TrackerScripts: []string{"https://cdn.tracker.example/a.js", "https://cdn.tracker.example/b.js"},
			Forms:          []model.FormSummary{{Method: "post", Action: "/signup"}},
		}

		got := Fallback(summary)
		joined := strings.Join(got.Reasons, "; ")
		if !strings.Contains(joined, "2 tracker script(s)") {
			t.Errorf("expected tracker reason, got %v", got.Reasons)
		}
		if !strings.Contains(joined, "1 form(s)") {
			t.Errorf("expected form reason, got %v", got.Reasons)
		}
		if !strings.Contains(joined, "no opt-out wording") {
			t.Errorf("expected missing opt-out reason, got %v", got.Reasons)
		}
	})

	t.Run("notes present opt-out wording", func(t *testing.T) {
		t.Parallel()

		got := Fallback(&model.PageSummary{URL: "https://example.com", HasOptOutText: true})
		joined := strings.Join(got.Reasons, "; ")
		if !strings.Contains(joined, "opt-out wording present") {
			t.Errorf("expected opt-out present reason, got %v", got.Reasons)
		}
	})
}

// TestClassifyPurpose tests the URL/title keyword rules.
func TestClassifyPurpose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		title   string
		forms   int
		want    string
	}{
		{"checkout path", "https://shop.example.com/checkout", "Checkout", 0, "checkout"},
		{"cart path", "https://shop.example.com/cart", "Your Cart", 0, "checkout"},
		{"login page", "https://example.com/login", "Sign in", 0, "account"},
		{"signup in title", "https://example.com/join", "Sign-up today", 0, "account"},
		{"search query", "https://example.com/results?q=shoes", "Results", 0, "search"},
		{"blog article", "https://example.com/blog/gpc-rollout", "GPC rollout", 0, "article"},
		{"site root is landing", "https://example.com/", "Welcome", 0, "landing"},
		{"bare host is landing", "https://example.com", "Welcome", 0, "landing"},
		{"page with form", "https://example.com/feedback", "Feedback", 1, "form page"},
		{"plain page is browse", "https://example.com/widgets", "Widgets", 0, "browse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			summary := &model.PageSummary{URL: tt.url, Title: tt.title}
			for i := 0; i < tt.forms; i++ {
				summary.Forms = append(summary.Forms, model.FormSummary{Method: "post"})
			}

			got := classifyPurpose(summary)
			if got != tt.want {
				t.Errorf("classifyPurpose(%q, %q) = %q, want %q", tt.url, tt.title, got, tt.want)
			}
		})
	}
}

// TestHeuristicAnalyze tests the Oracle implementation wrapper.
func TestHeuristicAnalyze(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	if h.Name() != "heuristic" {
		t.Errorf("expected name 'heuristic', got %q", h.Name())
	}

	summary := &model.PageSummary{
		URL:   "https://example.com/privacy",
		Links: []model.Link{{Href: "https://example.com/contact"}},
	}
	analysis, err := h.Analyze(context.Background(), summary, &CrawlContext{RootURL: "https://example.com"})
	if err != nil {
		t.Fatalf("heuristic must not fail: %v", err)
	}
	if analysis.RiskScore < 1 || analysis.RiskScore > 10 {
		t.Errorf("risk score %d out of range", analysis.RiskScore)
	}
	if analysis.Purpose == "" {
		t.Error("expected a purpose label")
	}
}
