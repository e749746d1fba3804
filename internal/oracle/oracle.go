// Package oracle ranks crawled pages for privacy risk and proposes the next
// crawl candidates. See doc.go for the package overview.
package oracle

import (
	"context"

	"github.com/gpcscan/gpcscan/internal/model"
)

// Risk score bounds. Scores outside this range coming back from a live
// oracle are clamped, never rejected.
const (
	minRiskScore     = 1
	maxRiskScore     = 10
	defaultRiskScore = 5
)

// Candidate priority tiers. The crawl frontier pops "high" before "medium"
// before "low"; anything else is treated as "low".
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Oracle scores one page summary and proposes crawl candidates.
// Implementations must be safe for sequential reuse across pages; the crawl
// engine calls Analyze synchronously inside its loop.
type Oracle interface {
	// Name identifies the implementation in logs ("live", "heuristic", ...).
	Name() string

	// Analyze scores the page and proposes the next URLs to crawl.
	// It returns ErrNoAnswer when the oracle ran but declined to answer;
	// transport and decoding problems are ordinary errors. Callers recover
	// from both the same way, via Fallback.
	Analyze(ctx context.Context, summary *model.PageSummary, crawl *CrawlContext) (*Analysis, error)
}

// CrawlContext is the loop state handed to the oracle alongside each page,
// so a reasoning oracle can budget its candidate list.
type CrawlContext struct {
	// RootURL is the canonical crawl entry point.
	RootURL string `json:"root_url"`

	// PagesVisited counts pages visited so far, including this one.
	PagesVisited int `json:"pages_visited"`

	// QueueSize is the frontier length at analysis time.
	QueueSize int `json:"queue_size"`
}

// Candidate is one URL the oracle wants crawled next.
type Candidate struct {
	// URL is the proposed target. The crawl engine canonicalizes it and
	// applies the visited and same-domain gates; the oracle does not.
	URL string `json:"url"`

	// Priority is the proposed tier: "high", "medium", or "low".
	Priority string `json:"priority"`

	// Reason is a short justification, stored on the graph edge.
	Reason string `json:"reason"`
}

// Analysis is the oracle's structured verdict for one page. The JSON tags
// are the wire schema the live oracle replies with.
type Analysis struct {
	// RiskScore is the privacy risk score, 1 (benign) to 10 (hostile).
	RiskScore int `json:"privacy_risk_score"`

	// Purpose is a short label for what the page does.
	Purpose string `json:"page_purpose"`

	// Reasons explains the score.
	Reasons []string `json:"risk_reasons,omitempty"`

	// Trackers are tracker domains the oracle recognized on the page.
	// When empty the crawl engine keeps the summary's parsed script list.
	Trackers []string `json:"trackers_loaded,omitempty"`

	// Candidates are the proposed next URLs in priority order.
	Candidates []Candidate `json:"priority_urls,omitempty"`
}

// normalize clamps and defaults fields a live oracle may return loosely.
// A missing score becomes the neutral middle, out-of-range scores are
// clamped, and a missing purpose becomes "unknown".
func (a *Analysis) normalize() {
	if a.RiskScore == 0 {
		a.RiskScore = defaultRiskScore
	}
	if a.RiskScore < minRiskScore {
		a.RiskScore = minRiskScore
	}
	if a.RiskScore > maxRiskScore {
		a.RiskScore = maxRiskScore
	}
	if a.Purpose == "" {
		a.Purpose = "unknown"
	}
}
