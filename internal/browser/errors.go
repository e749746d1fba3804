package browser

import "errors"

// Sentinel errors for browser operations.
var (
	// ErrSessionClosed is returned when a method is called on a session
	// after Close.
	ErrSessionClosed = errors.New("browser session is closed")

	// ErrEmptyURL is returned when Navigate is called without a URL.
	ErrEmptyURL = errors.New("navigation URL is empty")
)
