package crawler

import "errors"

// Crawl engine errors.
var (
	// ErrInvalidRootURL is returned when the crawl entry point cannot be
	// parsed or has no host. The same-site gate needs a registrable domain
	// to compare candidates against.
	ErrInvalidRootURL = errors.New("invalid root URL")

	// ErrUnsupportedScheme is returned for non-HTTP(S) root URLs. The
	// browser contract only navigates web origins.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme: must be http or https")
)
