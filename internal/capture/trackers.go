package capture

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// knownTrackers is the static set of analytics, advertising, and session
// replay hosts the audit treats as trackers. Entries are either registrable
// domains (doubleclick.net) or specific hosts (bat.bing.com) when the
// vendor's main domain also serves first-party content.
var knownTrackers = []string{
	// Analytics
	"google-analytics.com", "analytics.google.com",
	"googletagmanager.com", "segment.com",
	"mixpanel.com", "amplitude.com",

	// Session replay / heatmaps
	"hotjar.com", "fullstory.com",

	// Social pixels
	"connect.facebook.net", "facebook.com",
	"linkedin.com", "px.ads.linkedin.com",
	"twitter.com", "analytics.twitter.com",
	"tiktok.com", "analytics.tiktok.com",

	// Ad serving and exchanges
	"doubleclick.net", "googlesyndication.com",
	"adservice.google.com", "advertising.com",
	"adsystem.amazon.com", "criteo.com",
	"taboola.com", "outbrain.com",
	"rubiconproject.com", "pubmatic.com",
	"openx.net",

	// Audience measurement / data brokers
	"quantserve.com", "scorecardresearch.com",
	"bluekai.com", "krxd.net",
	"demdex.net", "rlcdn.com",

	// Search engine beacons
	"bing.com", "bat.bing.com",
	"yandex.ru", "mc.yandex.ru",
}

// IsTrackerHost reports whether the host belongs to the known tracker set.
// A host matches an entry when it equals the entry or ends with "." plus
// the entry. Plain substring matching is deliberately not used: it would
// flag hosts like "nottaboola.com.example.org".
func IsTrackerHost(host string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "."))
	for _, tracker := range knownTrackers {
		if host == tracker || strings.HasSuffix(host, "."+tracker) {
			return true
		}
	}
	return false
}

// RegistrableDomain reduces a host to its registrable domain (eTLD+1),
// e.g. "ssl.google-analytics.com" → "google-analytics.com". Hosts that have
// no registrable form (IP addresses, localhost, bare suffixes) are returned
// unchanged so the record still carries something identifying.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// hostOf extracts the hostname from a raw URL, without the port.
// Unparseable URLs yield "".
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
