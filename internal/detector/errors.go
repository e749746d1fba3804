package detector

import "errors"

var (
	// ErrIncompleteInput is returned when detection is attempted without
	// both session results. A verdict derived from half an audit would
	// read like a pass, so the engine refuses rather than degrading.
	ErrIncompleteInput = errors.New("detection requires both baseline and compliance session results")
)
