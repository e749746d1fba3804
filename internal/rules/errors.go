package rules

import "errors"

var (
	// ErrEmptySeed is returned when a rule seed contains no executable
	// statements. A store with no table at all would make every
	// detector skip silently, which reads like a clean audit, so an
	// empty seed is an error rather than an empty rule set.
	ErrEmptySeed = errors.New("rule seed contains no executable statements")
)
