package model

// Jurisdiction identifiers. Each selects one regulation set in the rule
// table; the identifiers double as the regulation_id column values.
const (
	// JurisdictionCalifornia selects the CCPA-style rule set.
	JurisdictionCalifornia = "us_ca"

	// JurisdictionEU selects the GDPR/ePrivacy-style rule set.
	JurisdictionEU = "eu"
)

// Rule is one row of the compliance rule table loaded for a jurisdiction.
type Rule struct {
	// RuleID is the unique rule key, e.g. "CCPA-1798.135b".
	RuleID string `json:"rule_id"`

	// SectionCitation is the statute section the rule cites.
	SectionCitation string `json:"section_citation"`

	// RuleTitle is the short human-readable title.
	RuleTitle string `json:"rule_title"`

	// RuleText is the full rule text, when loaded.
	RuleText string `json:"rule_text,omitempty"`

	// PenaltyMinUSD is the statutory minimum penalty per violation.
	PenaltyMinUSD float64 `json:"violation_penalty_min"`

	// PenaltyMaxUSD is the statutory maximum penalty per violation.
	PenaltyMaxUSD float64 `json:"violation_penalty_max"`
}
