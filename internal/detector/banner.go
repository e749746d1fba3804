package detector

import (
	"sort"

	"github.com/gpcscan/gpcscan/internal/model"
)

// BannerDetector flags pages without a detectable consent notice. Two
// regulation styles cover the concern with different citations, so the
// rule is selected by the configured jurisdiction, never by any runtime
// signal from the page itself.
type BannerDetector struct{}

// NewBannerDetector creates a BannerDetector.
func NewBannerDetector() *BannerDetector { return &BannerDetector{} }

// Name returns the detector's name.
func (d *BannerDetector) Name() string { return "missing-consent-banner" }

// Detect collects the URLs whose banner check came back negative from the
// signal-on session's check map.
func (d *BannerDetector) Detect(input *Input) *model.Violation {
	results := input.Compliance.BannerResults
	if len(results) == 0 {
		return nil
	}

	var missing []string
	for url, check := range results {
		if !check.Detected {
			missing = append(missing, url)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	fragment := "CCPA-1798.130a5A"
	if input.Jurisdiction == model.JurisdictionEU {
		fragment = "GDPR-ePD-Art5.3"
	}
	rule := findRule(d.Name(), input.Rules, fragment)
	if rule == nil {
		return nil
	}

	return newViolation(rule, model.ViolationMissingConsentBanner, model.BannerEvidence{
		PagesMissingBanner: capPages(missing),
		TotalPagesChecked:  len(results),
	})
}
