// Package crawler discovers a website's privacy-relevant surface and
// assembles the interaction graph the audit sessions replay.
//
// # Architecture
//
// The package is designed around the Engine type, which coordinates the
// discovery loop: pop the most promising URL from a priority frontier,
// render it in a browser session, summarize the DOM, let the oracle score
// it and propose next pages, and append a node plus candidate edges to the
// graph.
//
// Design decision: Discovery is strictly sequential (one browser session,
// one page at a time) because:
//  1. The oracle's candidate choices depend on what was already visited
//  2. One rendering session keeps resource usage predictable
//  3. The page budget is small; parallelism would buy little and cost
//     ordering determinism
//
// # Components
//
//   - Engine: the discovery loop coordinator
//   - Frontier: min-priority queue of candidates, (tier, FIFO) ordered
//   - Parser: DOM-snapshot parser producing compact page summaries
//
// # Crawl boundaries
//
// The engine is conservative about where it goes:
//   - A canonical URL is never visited twice
//   - Candidates outside the root's registrable domain are dropped, no
//     matter how the oracle ranks them
//   - The page budget counts failed navigations, so a wall of dead links
//     cannot extend a crawl
//
// # Usage
//
//	engine := crawler.NewEngine(launcher, oracle.NewHeuristic(),
//		crawler.WithMaxPages(10))
//	graph, err := engine.Discover(ctx, auditID, "https://example.com")
package crawler
