package detector

import (
	"sort"

	"github.com/gpcscan/gpcscan/internal/model"
)

// OptOutLinkDetector flags pages that lack a "Do Not Sell or Share" style
// opt-out link. The per-page checks run during the session; this detector
// aggregates the misses from the signal-on session's check map.
type OptOutLinkDetector struct{}

// NewOptOutLinkDetector creates an OptOutLinkDetector.
func NewOptOutLinkDetector() *OptOutLinkDetector { return &OptOutLinkDetector{} }

// Name returns the detector's name.
func (d *OptOutLinkDetector) Name() string { return "missing-optout-link" }

// Detect collects the URLs whose link check came back negative. The
// compliant count is derived from the full miss count, not the capped
// sample list, so compliant + missing always equals the total checked.
func (d *OptOutLinkDetector) Detect(input *Input) *model.Violation {
	results := input.Compliance.OptOutResults
	if len(results) == 0 {
		return nil
	}

	var missing []string
	for url, check := range results {
		if !check.LinkFound {
			missing = append(missing, url)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	rule := findRule(d.Name(), input.Rules, "135a", "1798.135a")
	if rule == nil {
		return nil
	}

	total := len(results)
	return newViolation(rule, model.ViolationMissingOptOutLink, model.OptOutLinkEvidence{
		PagesMissingLink:  capPages(missing),
		PagesCompliant:    total - len(missing),
		TotalPagesChecked: total,
	})
}

// capPages bounds a page-URL list to the evidence sample cap.
func capPages(pages []string) []string {
	if len(pages) > model.MaxPageSamples {
		return pages[:model.MaxPageSamples]
	}
	return pages
}
