package detector

import (
	"github.com/gpcscan/gpcscan/internal/model"
)

// TemporalLeakDetector flags tracker requests that fired inside the
// post-load window in the signal-on session, before any opt-out handling
// could have taken effect. The leak records themselves are produced during
// the session; this detector only aggregates them into a citeable violation.
type TemporalLeakDetector struct{}

// NewTemporalLeakDetector creates a TemporalLeakDetector.
func NewTemporalLeakDetector() *TemporalLeakDetector { return &TemporalLeakDetector{} }

// Name returns the detector's name.
func (d *TemporalLeakDetector) Name() string { return "temporal-leak" }

// Detect aggregates the compliance session's leak records into one
// violation: total count, the unique leaked-to domains, and a few sample
// records with their firing offsets.
func (d *TemporalLeakDetector) Detect(input *Input) *model.Violation {
	leaks := input.Compliance.TemporalLeaks
	if len(leaks) == 0 {
		return nil
	}

	rule := findRule(d.Name(), input.Rules, "135b", "1798.135b")
	if rule == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(leaks))
	for _, leak := range leaks {
		seen[leak.Domain] = struct{}{}
	}

	sampleCount := len(leaks)
	if sampleCount > model.MaxLeakSamples {
		sampleCount = model.MaxLeakSamples
	}
	samples := make([]model.TemporalLeakRecord, sampleCount)
	copy(samples, leaks[:sampleCount])

	return newViolation(rule, model.ViolationTemporalLeak, model.TemporalLeakEvidence{
		LeakCount: len(leaks),
		Domains:   sortedKeys(seen),
		Samples:   samples,
		WindowMs:  input.LeakWindowMs,
	})
}

