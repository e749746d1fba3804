package detector

import (
	"math"
	"sort"

	"github.com/gpcscan/gpcscan/internal/model"
)

// GPCDetector flags tracker domains that kept firing after the opt-out
// signal was asserted. The judgment is a pure set intersection: any tracker
// domain present in both sessions' traffic ignored the signal.
type GPCDetector struct{}

// NewGPCDetector creates a GPCDetector.
func NewGPCDetector() *GPCDetector { return &GPCDetector{} }

// Name returns the detector's name.
func (d *GPCDetector) Name() string { return "gpc-not-honored" }

// Detect intersects the two sessions' tracker-domain sets. A non-empty
// intersection is the violation; the evidence carries both full sets, both
// request counts, and the request-volume reduction the signal achieved.
func (d *GPCDetector) Detect(input *Input) *model.Violation {
	baselineDomains := input.Baseline.TrackerDomains()
	complianceDomains := input.Compliance.TrackerDomains()

	ignoring := sortedIntersection(baselineDomains, complianceDomains)
	if len(ignoring) == 0 {
		return nil
	}

	rule := findRule(d.Name(), input.Rules, "135b", "1798.135b")
	if rule == nil {
		return nil
	}

	baselineCount := input.Baseline.TrackerRequestCount()
	complianceCount := input.Compliance.TrackerRequestCount()

	return newViolation(rule, model.ViolationGPCNotHonored, model.GPCEvidence{
		BaselineDomains:       sortedKeys(baselineDomains),
		ComplianceDomains:     sortedKeys(complianceDomains),
		DomainsIgnoringSignal: ignoring,
		BaselineRequests:      baselineCount,
		ComplianceRequests:    complianceCount,
		ReductionPercent:      reductionPercent(baselineCount, complianceCount),
	})
}

// reductionPercent computes how much the signal reduced tracker request
// volume, as (1 - compliance/baseline) * 100 rounded to one decimal. The
// baseline count is floored at 1 to avoid division by zero; equal counts
// yield 0 and a silenced session yields 100.
func reductionPercent(baseline, compliance int) float64 {
	if baseline < 1 {
		baseline = 1
	}
	ratio := 1 - float64(compliance)/float64(baseline)
	return math.Round(ratio*1000) / 10
}

// sortedKeys returns the set's members in sorted order.
func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sortedIntersection returns the members present in both sets, sorted.
func sortedIntersection(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
