package database

import "errors"

// ErrNoReport is returned by SaveRun when the run carries no report.
// Persisting a report-less run would store an empty row that later reads
// back as a successful audit, so the caller must finish the pipeline first.
var ErrNoReport = errors.New("run has no report to save")
