// Package detector turns raw audit evidence into structured, citeable
// violations.
//
// # Architecture
//
// Five detectors run in a fixed order behind a coordinating Engine:
//
//  1. GPC-not-honored: tracker domains seen in both sessions.
//  2. Temporal leak: trackers that fired inside the post-load window.
//  3. Missing opt-out link: pages without a "Do Not Sell or Share" link.
//  4. Missing consent banner: pages without a detectable consent notice.
//  5. PII in tracking: request URLs carrying personal information.
//
// Each detector is a pure function over the Input and emits at most one
// aggregate violation with a typed evidence payload. Detectors cite rules
// from the loaded jurisdiction table by citation fragment; a lookup miss
// makes the detector contribute nothing rather than fail the audit.
//
// # Components
//
//   - Engine: runs the detectors, collects violations in order.
//   - Detector: the per-concern interface, open for registration so tests
//     and future concerns can extend the set.
//   - Input: both session results plus the rule table and jurisdiction.
//
// # Usage
//
//	engine := detector.NewEngine()
//	violations, err := engine.Detect(ctx, &detector.Input{
//		Baseline:     run.Baseline,
//		Compliance:   run.Compliance,
//		Rules:        loaded,
//		Jurisdiction: run.Jurisdiction,
//		LeakWindowMs: 500,
//	})
package detector
