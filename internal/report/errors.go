package report

import "errors"

var (
	// ErrIncompleteRun is returned when a report is requested for a run
	// missing one or both session results. Verdicts and summaries are only
	// meaningful over a completed pair; partial evidence reads like a pass.
	ErrIncompleteRun = errors.New("report requires both completed session results")
)
