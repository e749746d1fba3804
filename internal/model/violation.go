package model

import "encoding/json"

// Violation type identifiers. Each is produced by exactly one detector and
// carries exactly one evidence shape (see the Evidence union below).
const (
	// ViolationGPCNotHonored: tracker domains contacted in both the baseline
	// and the signal-on session, i.e. the opt-out signal was ignored.
	ViolationGPCNotHonored = "gpc_not_honored"

	// ViolationTemporalLeak: trackers fired inside the post-load window in
	// the signal-on session, before the opt-out could have taken effect.
	ViolationTemporalLeak = "temporal_leak"

	// ViolationMissingOptOutLink: pages without a "Do Not Sell/Share" link.
	ViolationMissingOptOutLink = "missing_optout_link"

	// ViolationMissingConsentBanner: pages without a detectable consent notice.
	ViolationMissingConsentBanner = "missing_consent_banner"

	// ViolationPIIInTracking: tracker request URLs carrying PII patterns.
	ViolationPIIInTracking = "pii_in_tracking"
)

// Violation is a structured record asserting that a specific, citeable rule
// was broken, with supporting evidence and an associated penalty range.
//
// Design decision: Evidence is a closed union (one Go type per violation
// type) rather than an open map. The report builder and its tests can then
// assert the exact shape each detector produces.
type Violation struct {
	// RuleID identifies the rule in the loaded rule table.
	RuleID string `json:"rule_id"`

	// Section is the legal citation (e.g. "Cal. Civ. Code §1798.135(b)").
	Section string `json:"section"`

	// RuleTitle is the rule's human-readable title from the rule table.
	RuleTitle string `json:"rule_title"`

	// Type is one of the Violation* constants above.
	Type string `json:"violation_type"`

	// Severity is the numeric severity level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Evidence is the detector-specific payload; exactly one concrete type
	// per violation type.
	Evidence Evidence `json:"evidence"`

	// PenaltyMinUSD is the statutory minimum penalty per violation.
	PenaltyMinUSD float64 `json:"penalty_min_usd"`

	// PenaltyMaxUSD is the statutory maximum penalty per violation.
	// Zero means the rule table carried no maximum.
	PenaltyMaxUSD float64 `json:"penalty_max_usd"`

	// Recommendation is remediation guidance for the operator.
	Recommendation string `json:"recommendation"`
}

// UnmarshalJSON restores the concrete evidence type from the violation type.
// Evidence is an interface, so reports loaded back from the audit database
// need this dispatch; a null payload or an unknown type leaves Evidence nil.
func (v *Violation) UnmarshalJSON(data []byte) error {
	type alias Violation
	aux := struct {
		*alias
		Evidence json.RawMessage `json:"evidence"`
	}{alias: (*alias)(v)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	v.Evidence = nil
	if len(aux.Evidence) == 0 || string(aux.Evidence) == "null" {
		return nil
	}

	switch v.Type {
	case ViolationGPCNotHonored:
		var ev GPCEvidence
		if err := json.Unmarshal(aux.Evidence, &ev); err != nil {
			return err
		}
		v.Evidence = ev
	case ViolationTemporalLeak:
		var ev TemporalLeakEvidence
		if err := json.Unmarshal(aux.Evidence, &ev); err != nil {
			return err
		}
		v.Evidence = ev
	case ViolationMissingOptOutLink:
		var ev OptOutLinkEvidence
		if err := json.Unmarshal(aux.Evidence, &ev); err != nil {
			return err
		}
		v.Evidence = ev
	case ViolationMissingConsentBanner:
		var ev BannerEvidence
		if err := json.Unmarshal(aux.Evidence, &ev); err != nil {
			return err
		}
		v.Evidence = ev
	case ViolationPIIInTracking:
		var ev PIIEvidence
		if err := json.Unmarshal(aux.Evidence, &ev); err != nil {
			return err
		}
		v.Evidence = ev
	}

	return nil
}

// Evidence is the closed union of detector evidence payloads.
// The unexported method keeps the set of implementations inside this package.
type Evidence interface {
	evidence()
}

// GPCEvidence supports a ViolationGPCNotHonored violation.
type GPCEvidence struct {
	// BaselineDomains are the tracker domains seen without the signal, sorted.
	BaselineDomains []string `json:"baseline_tracker_domains"`

	// ComplianceDomains are the tracker domains seen with the signal, sorted.
	ComplianceDomains []string `json:"compliance_tracker_domains"`

	// DomainsIgnoringSignal is the sorted intersection of the two sets.
	DomainsIgnoringSignal []string `json:"domains_ignoring_gpc"`

	// BaselineRequests counts tracker requests in the baseline session.
	BaselineRequests int `json:"baseline_tracker_requests"`

	// ComplianceRequests counts tracker requests in the signal-on session.
	ComplianceRequests int `json:"compliance_tracker_requests"`

	// ReductionPercent is (1 - compliance/max(baseline,1)) * 100, rounded
	// to one decimal. 0 means the signal changed nothing.
	ReductionPercent float64 `json:"reduction_percent"`
}

func (GPCEvidence) evidence() {}

// TemporalLeakEvidence supports a ViolationTemporalLeak violation.
type TemporalLeakEvidence struct {
	// LeakCount is the total number of in-window tracker requests.
	LeakCount int `json:"leak_count"`

	// Domains are the unique leaked-to domains, sorted.
	Domains []string `json:"leaked_domains"`

	// Samples holds up to MaxLeakSamples example leak records.
	Samples []TemporalLeakRecord `json:"sample_leaks"`

	// WindowMs is the detection window the samples were judged against.
	WindowMs int64 `json:"window_ms"`
}

func (TemporalLeakEvidence) evidence() {}

// OptOutLinkEvidence supports a ViolationMissingOptOutLink violation.
type OptOutLinkEvidence struct {
	// PagesMissingLink lists up to MaxPageSamples URLs without the link.
	PagesMissingLink []string `json:"pages_missing_link"`

	// PagesCompliant counts pages where the link was found.
	PagesCompliant int `json:"pages_compliant"`

	// TotalPagesChecked is the number of pages the check ran on.
	// Invariant: PagesCompliant + missing count == TotalPagesChecked.
	TotalPagesChecked int `json:"total_pages_checked"`
}

func (OptOutLinkEvidence) evidence() {}

// BannerEvidence supports a ViolationMissingConsentBanner violation.
type BannerEvidence struct {
	// PagesMissingBanner lists up to MaxPageSamples URLs without a banner.
	PagesMissingBanner []string `json:"pages_without_banner"`

	// TotalPagesChecked is the number of pages the check ran on.
	TotalPagesChecked int `json:"total_pages_checked"`
}

func (BannerEvidence) evidence() {}

// PIISample is one request URL and the PII pattern names it matched.
// The URL is truncated to MaxPIISampleURLLen characters by the detector.
type PIISample struct {
	URL      string   `json:"url"`
	PIITypes []string `json:"pii_types"`
}

// PIIEvidence supports a ViolationPIIInTracking violation.
type PIIEvidence struct {
	// HitCount is the total number of requests carrying PII.
	HitCount int `json:"total_pii_hits"`

	// Samples holds up to MaxPIISamples example requests.
	Samples []PIISample `json:"sample_hits"`
}

func (PIIEvidence) evidence() {}

// Evidence sample caps. Detectors aggregate rather than emit one violation
// per offending item, so samples keep report size bounded while still giving
// a reviewer concrete request-level proof.
const (
	// MaxLeakSamples caps temporal-leak sample records.
	MaxLeakSamples = 3

	// MaxPageSamples caps per-page URL lists in link/banner evidence.
	MaxPageSamples = 10

	// MaxPIISamples caps PII sample pairs.
	MaxPIISamples = 5

	// MaxPIISampleURLLen caps sample URL length; query strings carrying the
	// PII are long and only the head is needed to identify the request.
	MaxPIISampleURLLen = 150
)
