// Package pipeline provides a framework for executing audit stages in sequence.
//
// The pipeline pattern is used to move a target through the four audit
// stages: interaction-graph crawling, paired session replay, violation
// detection, and report assembly. Each stage is implemented as a Step that
// receives the accumulated run and fills in its own section.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running audits
// 4. It keeps partial evidence on the run when a later stage fails
//
// The pipeline supports both individual audits and batch processing with
// concurrency control using errgroup.
package pipeline
