package session

import "errors"

// Session orchestrator errors.
var (
	// ErrEmptyPlan is returned when RunPaired is given no URLs to visit.
	// An empty plan would "succeed" with zero evidence and let a verdict
	// be computed from nothing.
	ErrEmptyPlan = errors.New("session plan is empty")
)
