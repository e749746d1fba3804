// Package oracle scores crawled pages for privacy risk and proposes the
// next crawl candidates.
//
// # Architecture
//
// The package is designed around the Oracle interface: given a compact page
// summary and the crawl loop's context, an oracle returns a risk score, a
// purpose label, and a prioritized list of candidate URLs. The crawl engine
// depends only on this interface and never on which variant answered.
//
// # Variants
//
//   - Heuristic: deterministic rule-based scoring. Pure, offline, never fails.
//   - Live: an OpenAI-compatible chat-completions client that asks a
//     reasoning service for the same structured shape.
//   - Failover: composes variants in preference order, typically
//     Live → Heuristic, so the crawl keeps working when the service is
//     down, slow, or answers garbage.
//
// Design decision: The fallback scorer is exported as Fallback rather than
// hidden inside Heuristic because:
//  1. The crawl engine must score every visited page even when a composed
//     oracle errors out entirely
//  2. Tests exercise the scoring rules without constructing an oracle
//  3. The rule is part of the audit's documented behavior, not an
//     implementation detail
//
// # Usage
//
//	live, err := oracle.NewLive(apiKey, oracle.WithModel("gpt-4o"))
//	if err != nil {
//		// no key: run fully offline
//		o = oracle.NewHeuristic()
//	} else {
//		o = oracle.NewFailover(live, oracle.NewHeuristic())
//	}
//	analysis, err := o.Analyze(ctx, summary, crawlCtx)
//
// # Security Considerations
//
// The live oracle's API key is held only by the HTTP client's auth header.
// It is never stored on an inspectable struct field, never interpolated
// into errors, and never logged.
package oracle
