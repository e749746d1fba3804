// Package report assembles the final evidence report and writes it in
// multiple output formats.
//
// Build turns a completed run into a model.AuditReport: session traffic
// summaries, the headline opt-out verdict, the severity breakdown, and the
// summed penalty exposure. The verdict is recomputed from raw traffic
// rather than from the violation list so it survives rule-table gaps.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown with severity charts for documentation
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output via MultiWriter.
package report
