package detector

import (
	"context"
	"log/slog"

	"github.com/gpcscan/gpcscan/internal/model"
	"github.com/gpcscan/gpcscan/internal/rules"
)

// Detector is the interface for individual violation detectors.
// Each detector judges one compliance concern and emits at most one
// aggregate violation; samples inside the evidence keep report size
// bounded when a concern fires on many pages or requests.
//
// Design decision: Detect returns a violation pointer and no error because:
//  1. Detectors are pure functions over already-collected inputs
//  2. The only failure mode is a rule-table miss, which is a soft skip
//  3. Returning nil keeps "nothing to report" and "cannot cite" uniform
type Detector interface {
	// Name returns the detector's name for logging.
	Name() string

	// Detect judges the input and returns one violation or nil.
	Detect(input *Input) *model.Violation
}

// Input contains everything the detectors judge. Both session results must
// be present: verdicts from half an audit read like a pass, so the engine
// refuses incomplete input outright.
//
// Design decision: We pass all data in a single struct rather than
// per-detector parameters because:
//  1. Not every detector needs every field
//  2. Adding a field doesn't change detector signatures
//  3. Easier to build fixtures in tests
type Input struct {
	// Baseline is the signal-off session result.
	Baseline *model.SessionResult

	// Compliance is the signal-on session result.
	Compliance *model.SessionResult

	// Rules is the jurisdiction rule set loaded for this audit.
	Rules []model.Rule

	// Jurisdiction selects between rule citations where two regulation
	// styles cover the same concern (consent banner).
	Jurisdiction string

	// LeakWindowMs is the temporal-leak detection window, echoed into
	// leak evidence so a reviewer knows what the samples were judged
	// against.
	LeakWindowMs int64
}

// Engine coordinates the violation detectors in a fixed order.
type Engine struct {
	detectors []Detector
}

// NewEngine creates an Engine with all built-in detectors registered.
// The registration order is the order violations appear in the report.
func NewEngine() *Engine {
	e := &Engine{detectors: make([]Detector, 0, 5)}
	e.Register(NewGPCDetector())
	e.Register(NewTemporalLeakDetector())
	e.Register(NewOptOutLinkDetector())
	e.Register(NewBannerDetector())
	e.Register(NewPIIDetector())
	return e
}

// Register adds a detector to the engine.
func (e *Engine) Register(d Detector) {
	e.detectors = append(e.detectors, d)
}

// Detect runs every registered detector over the input and collects the
// violations in registration order. The returned slice is non-nil even
// when empty so an all-clear audit serializes as an empty list rather
// than null.
func (e *Engine) Detect(ctx context.Context, input *Input) ([]model.Violation, error) {
	if input == nil || input.Baseline == nil || input.Compliance == nil {
		return nil, ErrIncompleteInput
	}

	violations := make([]model.Violation, 0, len(e.detectors))
	for _, d := range e.detectors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		v := d.Detect(input)
		if v == nil {
			continue
		}
		slog.Info("Violation detected",
			"detector", d.Name(),
			"rule", v.RuleID,
			"severity", v.SeverityText)
		violations = append(violations, *v)
	}
	return violations, nil
}

// newViolation assembles the common violation fields from the cited rule
// and the centralized severity/recommendation mapping.
func newViolation(rule *model.Rule, violationType string, evidence model.Evidence) *model.Violation {
	info := model.GetViolationInfo(violationType)
	return &model.Violation{
		RuleID:         rule.RuleID,
		Section:        rule.SectionCitation,
		RuleTitle:      rule.RuleTitle,
		Type:           violationType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Evidence:       evidence,
		PenaltyMinUSD:  rule.PenaltyMinUSD,
		PenaltyMaxUSD:  rule.PenaltyMaxUSD,
		Recommendation: info.Recommendation,
	}
}

// findRule resolves a detector's rule by citation fragment. A miss is the
// soft-failure mode: the detector contributes nothing and the audit
// continues, logged at Debug so --verbose surfaces it.
func findRule(detectorName string, loaded []model.Rule, fragments ...string) *model.Rule {
	rule := rules.Find(loaded, fragments...)
	if rule == nil {
		slog.Debug("Rule lookup missed; detector skipped",
			"detector", detectorName,
			"fragments", fragments)
	}
	return rule
}
