package config

import "path"

// SiteConfig holds site-specific configuration for a single audited host.
// This allows tuning audit behavior per site without changing global flags:
// a sprawling news site may need a bigger page budget, an EU storefront a
// different jurisdiction, a site with unusual footer wording extra opt-out
// patterns.
type SiteConfig struct {
	// MaxPages overrides the global crawl page budget for this site.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// MaxJourneys overrides the global session plan cap for this site.
	// If zero, the global MaxJourneys is used.
	MaxJourneys int `yaml:"maxJourneys,omitempty"`

	// Jurisdiction overrides the regulation rule set for this site
	// (us_ca or eu). If empty, the global jurisdiction is used.
	Jurisdiction string `yaml:"jurisdiction,omitempty"`

	// OptOutPatterns are additional link/button text patterns treated as
	// opt-out links during per-page checks, merged with the built-in set.
	// Patterns are matched case-insensitively against element text.
	OptOutPatterns []string `yaml:"optOutPatterns,omitempty"`
}

// File represents the structure of the gpcscan configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are hostnames without scheme ("example.com") and may contain
	// glob metacharacters ("*.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// SiteFor returns the configuration for a specific host.
// It merges the best-matching site entry over the file's defaults.
// An exact host key wins over glob keys; among glob keys the first match in
// map iteration order is used, so overlapping globs should be avoided in
// config files.
func (cf *File) SiteFor(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	site, ok := cf.Sites[host]
	if !ok {
		site, ok = cf.matchGlob(host)
	}
	if !ok {
		return result
	}

	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if site.MaxJourneys != 0 {
		result.MaxJourneys = site.MaxJourneys
	}
	if site.Jurisdiction != "" {
		result.Jurisdiction = site.Jurisdiction
	}
	if len(site.OptOutPatterns) > 0 {
		result.OptOutPatterns = site.OptOutPatterns
	}

	return result
}

// matchGlob finds the first Sites key whose glob pattern matches the host.
func (cf *File) matchGlob(host string) (SiteConfig, bool) {
	for pattern, site := range cf.Sites {
		if matched, err := path.Match(pattern, host); err == nil && matched {
			return site, true
		}
	}
	return SiteConfig{}, false
}
