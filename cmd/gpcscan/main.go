// Package main provides the entry point for the gpcscan CLI.
//
// gpcscan audits websites for privacy-law compliance. It crawls the target,
// replays two matched browsing sessions (one asserting the Global Privacy
// Control opt-out signal, one without), diffs their tracker traffic, and
// reports violations with legal citations.
//
// Usage:
//
//	gpcscan audit <url>
//	gpcscan crawl <url>
//
// See --help for all available options.
package main

// main is the entry point for gpcscan.
func main() {
	Execute()
}
