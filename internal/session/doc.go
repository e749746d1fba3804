// Package session replays the audit's URL plan through two isolated
// browser sessions and collects the evidence the violation detectors
// compare.
//
// # Architecture
//
// The package is designed around the Orchestrator type. RunPaired spawns
// two goroutines via errgroup: a baseline session that browses normally
// and a compliance session that asserts Global Privacy Control through a
// request header and an init script. Both replay the same plan in the same
// order over separate browser contexts, so any difference between their
// traffic logs is attributable to the signal alone.
//
// Design decision: The two sessions share nothing mutable because:
//  1. A shared cookie jar or cache would let one session's state bleed
//     into the other's traffic
//  2. Each session appends to its own recorder, read only after the
//     page's requests have settled
//  3. Joined results are the only output; there is no partial-result path
//
// # Components
//
//   - Orchestrator: paired-session coordinator and single-session runner
//   - Leaks: pure temporal-leak detector over captured traffic
//   - Plan: journey-plan derivation from the interaction graph
//   - Page checks: in-page scripts for consent-banner and opt-out-link
//     detection
//
// # Session guarantees
//
//   - The plan is visited strictly in order and never reordered
//   - A failed navigation is skipped, never fatal; every entry is
//     attempted exactly once
//   - Requests are attributed to a page by recorder position: everything
//     captured between one navigation and the next belongs to the page
//
// # Usage
//
//	orch := session.NewOrchestrator(launcher,
//		session.WithLeakWindow(500*time.Millisecond))
//	paired, err := orch.RunPaired(ctx, session.Plan(graph, 20))
package session
