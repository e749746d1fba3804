package model

// Session labels. The baseline session runs without the opt-out signal, the
// compliance session runs with it; everything else about the two runs is
// identical.
const (
	SessionBaseline   = "baseline"
	SessionCompliance = "compliance"
)

// TrafficRecord is one captured outbound request. Records are append-only
// per session; nothing mutates them after the capture callback returns.
type TrafficRecord struct {
	// Session is the label of the session that captured the request.
	Session string `json:"session"`

	// URL is the full request URL.
	URL string `json:"url"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// Domain is the registrable domain of the request host.
	Domain string `json:"domain"`

	// TimestampMs is the wall-clock capture time in Unix milliseconds.
	TimestampMs int64 `json:"timestamp_ms"`

	// IsTracker is true if the request host matched the known tracker set
	// (exact host or dot-suffix match).
	IsTracker bool `json:"is_tracker"`

	// PII lists the names of PII patterns matched against the URL.
	PII []string `json:"pii_detected,omitempty"`

	// ResourceType is the browser's resource classification
	// (document, script, xhr, image, ...).
	ResourceType string `json:"resource_type"`
}

// TemporalLeakRecord is a tracker request that fired inside the detection
// window after its page's load timestamp, observed in the signal-on session.
type TemporalLeakRecord struct {
	// Domain is the tracker's registrable domain.
	Domain string `json:"domain"`

	// URL is the full request URL.
	URL string `json:"url"`

	// FiredMsAfterLoad is the request timestamp minus the page load
	// timestamp. Negative values are valid: the request was already in
	// flight when the navigation settled, i.e. the tracker fired
	// essentially immediately.
	FiredMsAfterLoad int64 `json:"fired_ms_after_load"`

	// Page is the URL of the page the leak is attributed to.
	Page string `json:"page,omitempty"`
}

// BannerCheck is the consent-banner detection result for one page.
type BannerCheck struct {
	// Detected is true if a visible banner-like element was found.
	Detected bool `json:"banner_detected"`

	// MatchedSelectors lists the DOM selectors that matched.
	MatchedSelectors []string `json:"matched_selectors,omitempty"`
}

// OptOutCheck is the opt-out-link detection result for one page.
type OptOutCheck struct {
	// LinkFound is true if any link/button text matched an opt-out pattern.
	LinkFound bool `json:"link_found"`

	// LinkTexts holds the unique matched texts, each capped at 80 chars.
	LinkTexts []string `json:"link_texts,omitempty"`
}

// PageObservation summarizes one successfully visited page in a session.
type PageObservation struct {
	// URL is the planned URL that was visited.
	URL string `json:"url"`

	// Title is the page title after navigation.
	Title string `json:"title,omitempty"`

	// LoadTimestampMs is the page load timestamp attributed requests are
	// measured against.
	LoadTimestampMs int64 `json:"load_timestamp_ms"`

	// RequestCount is the number of requests attributed to this page.
	RequestCount int `json:"request_count"`

	// TrackersFired lists registrable tracker domains seen on this page.
	TrackersFired []string `json:"trackers_fired,omitempty"`
}

// SessionResult is one session's complete output. It is created once when
// the session ends and never mutated afterwards.
type SessionResult struct {
	// Label is SessionBaseline or SessionCompliance.
	Label string `json:"label"`

	// GPCOn is true if the opt-out signal was asserted for this session.
	GPCOn bool `json:"gpc_on"`

	// Traffic is the ordered capture log for the whole session.
	Traffic []TrafficRecord `json:"traffic_log"`

	// BannerResults maps visited URL to its banner check.
	BannerResults map[string]BannerCheck `json:"banner_results"`

	// OptOutResults maps visited URL to its opt-out-link check.
	OptOutResults map[string]OptOutCheck `json:"optout_link_results"`

	// TemporalLeaks accumulates leak records (signal-on session only).
	TemporalLeaks []TemporalLeakRecord `json:"temporal_leaks,omitempty"`

	// Observations holds one entry per successfully visited page, in visit
	// order.
	Observations []PageObservation `json:"page_observations,omitempty"`

	// PagesVisited counts successful navigations; failed pages are skipped
	// and not counted.
	PagesVisited int `json:"pages_visited"`
}

// TrackerRecords returns the tracker-flagged subset of the traffic log.
func (s *SessionResult) TrackerRecords() []TrafficRecord {
	var out []TrafficRecord
	for _, r := range s.Traffic {
		if r.IsTracker {
			out = append(out, r)
		}
	}
	return out
}

// TrackerDomains returns the set of tracker registrable domains seen in
// this session.
func (s *SessionResult) TrackerDomains() map[string]struct{} {
	domains := make(map[string]struct{})
	for _, r := range s.Traffic {
		if r.IsTracker {
			domains[r.Domain] = struct{}{}
		}
	}
	return domains
}

// TrackerRequestCount counts tracker-flagged requests in this session.
func (s *SessionResult) TrackerRequestCount() int {
	n := 0
	for _, r := range s.Traffic {
		if r.IsTracker {
			n++
		}
	}
	return n
}
