package model

// Severity represents the risk level of a compliance violation.
// This allows categorizing violations by their legal and privacy impact.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational results with no direct compliance impact.
	// Examples: pages where every check passed, crawl statistics.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues with limited regulatory exposure.
	// Examples: ambiguous opt-out link wording, banner rendered below the fold.
	SeverityLow

	// SeverityMedium indicates issues regulators treat as notice defects.
	// Examples: missing consent banner, incomplete privacy notice.
	SeverityMedium

	// SeverityHigh indicates violations with direct per-consumer penalty exposure.
	// Examples: tracking that ignores the opt-out signal, PII sent to trackers.
	SeverityHigh

	// SeverityCritical is reserved for systematic, willful-looking patterns,
	// such as ignoring the signal on every audited page while PII flows out.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ViolationInfo contains metadata about a violation type: the severity it is
// reported at and the remediation recommendation included in the report.
type ViolationInfo struct {
	Severity       Severity
	Recommendation string
}

// violationInfoMapping maps violation types to their metadata.
// This centralized mapping ensures consistent risk assessment across the application.
//
// Design decision: We use a map rather than embedding severity in each detector
// because:
//  1. It allows updating risk assessments without modifying detector logic
//  2. It provides a single source of truth for severity levels
//  3. It makes it easy to generate severity documentation
var violationInfoMapping = map[string]ViolationInfo{
	ViolationGPCNotHonored: {
		Severity: SeverityHigh,
		Recommendation: "Stop all third-party tracker beacons when the Sec-GPC: 1 header is received. " +
			"Treat the signal as a valid opt-out request and process it within 15 business days (§1798.185(a)(14)).",
	},
	ViolationTemporalLeak: {
		Severity: SeverityHigh,
		Recommendation: "Gate tracker initialization on consent state. Trackers must not fire in the " +
			"window between page load and opt-out evaluation; load them only after the signal has been honored.",
	},
	ViolationMissingOptOutLink: {
		Severity: SeverityHigh,
		Recommendation: "Add a clearly visible \"Do Not Sell or Share My Personal Information\" (or " +
			"\"Your Privacy Choices\") link to every page footer, as required by §1798.135(a).",
	},
	ViolationMissingConsentBanner: {
		Severity: SeverityMedium,
		Recommendation: "Present a consent notice before storing or reading identifiers on the visitor's " +
			"device. The notice must describe the categories collected and link to the full policy.",
	},
	ViolationPIIInTracking: {
		Severity: SeverityHigh,
		Recommendation: "Strip user identifiers (email, user IDs, hashed emails, phone numbers) from " +
			"tracker request URLs. Identifiers in beacon query strings are sales/shares under §1798.100.",
	},
}

// GetViolationInfo returns the metadata for a violation type.
// Returns a conservative default if the type is not in the mapping.
func GetViolationInfo(violationType string) ViolationInfo {
	if info, ok := violationInfoMapping[violationType]; ok {
		return info
	}
	return ViolationInfo{
		Severity:       SeverityInfo,
		Recommendation: "Review the evidence manually and assess regulatory exposure.",
	}
}
