package detector

import (
	"github.com/gpcscan/gpcscan/internal/model"
)

// PIIDetector flags captured requests whose URLs carried recognizable
// personal information (emails, user IDs, hashed identifiers) while the
// opt-out signal was asserted. PII matching happens at capture time; this
// detector aggregates the annotated records from the signal-on session.
type PIIDetector struct{}

// NewPIIDetector creates a PIIDetector.
func NewPIIDetector() *PIIDetector { return &PIIDetector{} }

// Name returns the detector's name.
func (d *PIIDetector) Name() string { return "pii-in-tracking" }

// Detect counts compliance-session records with a non-empty PII list and
// keeps a few samples. Sample URLs are truncated: the query strings
// carrying the PII run long and only the head is needed to identify the
// request.
func (d *PIIDetector) Detect(input *Input) *model.Violation {
	hits := 0
	var samples []model.PIISample
	for _, record := range input.Compliance.Traffic {
		if len(record.PII) == 0 {
			continue
		}
		hits++
		if len(samples) < model.MaxPIISamples {
			samples = append(samples, model.PIISample{
				URL:      truncateURL(record.URL),
				PIITypes: append([]string(nil), record.PII...),
			})
		}
	}
	if hits == 0 {
		return nil
	}

	rule := findRule(d.Name(), input.Rules, "1798.100")
	if rule == nil {
		return nil
	}

	return newViolation(rule, model.ViolationPIIInTracking, model.PIIEvidence{
		HitCount: hits,
		Samples:  samples,
	})
}

func truncateURL(rawURL string) string {
	if len(rawURL) > model.MaxPIISampleURLLen {
		return rawURL[:model.MaxPIISampleURLLen]
	}
	return rawURL
}
