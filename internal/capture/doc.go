// Package capture classifies and records network traffic during audit
// sessions.
//
// It provides three things:
//   - The static known-tracker domain set and the host matching rules
//     (exact host or dot-suffix match)
//   - PII detection patterns applied to request URLs
//   - Recorder, the append-only per-session traffic log fed by the
//     browser's request observer
//
// Design decision: Classification happens at capture time, not at analysis
// time, because:
//  1. The detectors and the report builder can then treat records as
//     immutable facts
//  2. A record's tracker/PII flags never change retroactively when the
//     pattern set evolves mid-run
//  3. Capture is the only place that still has the raw host string before
//     it is reduced to a registrable domain
package capture
