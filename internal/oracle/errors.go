package oracle

import "errors"

// Oracle errors.
//
// Design decision: ErrNoAnswer is a sentinel distinct from transport and
// decoding errors because it carries meaning: the oracle was reachable and
// ran, but produced nothing usable. Callers recover from both identically
// (rule-based fallback), but logs should tell the two apart.
var (
	// ErrNoAnswer is returned when the oracle ran but declined to answer:
	// an empty reply, a refusal, or a response with no choices.
	ErrNoAnswer = errors.New("oracle gave no answer")

	// ErrMissingAPIKey is returned by NewLive when no API key is available.
	// The live oracle never sends an unauthenticated request.
	ErrMissingAPIKey = errors.New("missing oracle API key")

	// ErrNoOracles is returned by a Failover composed of zero variants.
	ErrNoOracles = errors.New("no oracles configured")
)
