package capture

import "regexp"

// piiPattern is one named PII detection rule applied to request URLs.
type piiPattern struct {
	name    string
	pattern *regexp.Regexp
}

// piiPatterns lists the URL patterns that indicate personal information
// leaving the browser inside a request. Kept as an ordered slice rather
// than a map so DetectPII output is deterministic.
var piiPatterns = []piiPattern{
	// Literal email address anywhere in the URL
	{"email", regexp.MustCompile(`(?i)[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},

	// Common identifier query parameters
	{"uid", regexp.MustCompile(`(?i)uid=[^&]+`)},
	{"user_id", regexp.MustCompile(`(?i)user_id=[^&]+`)},
	{"email_param", regexp.MustCompile(`(?i)email=[^&]+`)},

	// Hashed email passed to ad platforms for identity matching
	{"hashed_email", regexp.MustCompile(`(?i)sha256=[a-f0-9]{64}`)},

	// Dotted-quad IP address embedded in the URL
	{"ip_address", regexp.MustCompile(`(?i)\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},

	// Phone number and name parameters
	{"phone", regexp.MustCompile(`(?i)phone=[^&]+`)},
	{"name", regexp.MustCompile(`(?i)(first_name|last_name|fullname)=[^&]+`)},
}

// DetectPII returns the names of all PII patterns that match the URL, in
// pattern order. An empty result means the URL carries no recognizable PII.
func DetectPII(rawURL string) []string {
	var matched []string
	for _, p := range piiPatterns {
		if p.pattern.MatchString(rawURL) {
			matched = append(matched, p.name)
		}
	}
	return matched
}
