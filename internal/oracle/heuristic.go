package oracle

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gpcscan/gpcscan/internal/model"
)

// Heuristic is the deterministic rule-based oracle. It never fails and
// needs no network, which makes it both the offline default and the
// terminal fallback behind a live oracle.
type Heuristic struct{}

// NewHeuristic creates the rule-based oracle.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name implements Oracle.
func (*Heuristic) Name() string {
	return "heuristic"
}

// Analyze implements Oracle. It always succeeds.
func (*Heuristic) Analyze(_ context.Context, summary *model.PageSummary, _ *CrawlContext) (*Analysis, error) {
	return Fallback(summary), nil
}

// Fallback computes the rule-based analysis for a page summary.
//
// It is exported, not just wrapped by Heuristic, because the crawl engine
// uses it directly as the safety net when a composed oracle errors: the
// crawl must produce a scored node for every visited page no matter what
// the oracle did.
//
// Scoring: 2 points per tracker script, 2 per form, plus 3 when the page
// has no opt-out wording; capped at 10, floored at 1. Every discovered
// link becomes one medium-priority candidate.
func Fallback(summary *model.PageSummary) *Analysis {
	trackers := len(summary.TrackerScripts)
	forms := len(summary.Forms)

	score := 2*trackers + 2*forms
	if !summary.HasOptOutText {
		score += 3
	}
	if score > maxRiskScore {
		score = maxRiskScore
	}
	if score < minRiskScore {
		score = minRiskScore
	}

	reasons := make([]string, 0, 3)
	if trackers > 0 {
		reasons = append(reasons, fmt.Sprintf("%d tracker script(s) on page", trackers))
	}
	if forms > 0 {
		reasons = append(reasons, fmt.Sprintf("%d form(s) collecting input", forms))
	}
	if summary.HasOptOutText {
		reasons = append(reasons, "opt-out wording present")
	} else {
		reasons = append(reasons, "no opt-out wording on page")
	}

	candidates := make([]Candidate, 0, len(summary.Links))
	for _, link := range summary.Links {
		candidates = append(candidates, Candidate{
			URL:      link.Href,
			Priority: PriorityMedium,
			Reason:   "rule-based",
		})
	}

	return &Analysis{
		RiskScore:  score,
		Purpose:    classifyPurpose(summary),
		Reasons:    reasons,
		Candidates: candidates,
	}
}

// classifyPurpose labels a page from URL and title keywords. The first
// matching rule wins; pages that match nothing are "browse".
func classifyPurpose(summary *model.PageSummary) string {
	subject := strings.ToLower(summary.URL + " " + summary.Title)

	switch {
	case containsAny(subject, "checkout", "cart", "basket", "payment", "billing"):
		return "checkout"
	case containsAny(subject, "login", "log-in", "signin", "sign-in", "signup", "sign-up", "register", "account"):
		return "account"
	case containsAny(subject, "search", "?q=", "?s="):
		return "search"
	case containsAny(subject, "/blog", "/news", "/article", "/post", "/press"):
		return "article"
	case isRootPath(summary.URL):
		return "landing"
	case len(summary.Forms) > 0:
		return "form page"
	default:
		return "browse"
	}
}

// isRootPath reports whether the URL points at the site root.
func isRootPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Path == "" || u.Path == "/") && u.RawQuery == ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
