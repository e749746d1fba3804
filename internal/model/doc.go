// Package model defines the core data structures used throughout gpcscan.
//
// This package contains the following main types:
//   - InteractionGraph: The crawl output (pages as nodes, navigations as edges)
//   - PageSummary: A compact structured summary of one loaded page
//   - TrafficRecord / SessionResult: Captured network traffic per browsing session
//   - Violation: A rule breach with typed evidence and penalty bounds
//   - AuditReport: The final evidence document
//   - Run: The per-audit context passed through pipeline stages
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, session, detector, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
