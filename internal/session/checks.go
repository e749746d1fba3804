package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/model"
)

// bannerCheckScript looks for a visible consent-banner element. The
// selectors are deliberately loose substring matches: consent platforms
// name their containers inconsistently, but almost all of them put
// "cookie", "consent", or "gdpr" somewhere in the class or id.
//
// Visibility is checked the way a user would experience it: computed
// display/visibility plus a non-empty bounding box, so banners positioned
// with fixed or sticky layout still count.
const bannerCheckScript = `(() => {
	const selectors = [
		"[class*='cookie']", "[id*='cookie']",
		"[class*='consent']", "[id*='consent']",
		"[class*='gdpr']", "[id*='privacy-banner']",
		"div[aria-label*='cookie']",
	];
	const visible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') {
			return false;
		}
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};
	const matched = [];
	for (const sel of selectors) {
		try {
			const el = document.querySelector(sel);
			if (el && visible(el)) {
				matched.push(sel);
			}
		} catch (e) {
			// Malformed selector support varies per engine; skip it.
		}
	}
	return {banner_detected: matched.length > 0, matched_selectors: matched};
})()`

// defaultOptOutPatterns is the built-in opt-out wording list. CCPA-style
// sites phrase the mandated link many ways; these cover the variants
// regulators and consent platforms actually use. Site configs can append
// their own via the orchestrator's extra patterns.
var defaultOptOutPatterns = []string{
	"do not sell", "do not share", "your privacy choices",
	"california privacy", "opt-out", "opt out",
	"limit the use", "your ad choices",
}

// optOutCheckScriptTemplate scans link and button text for opt-out
// wording. The %s placeholder receives a JSON array of lowercase
// patterns. Matched texts are clipped to 80 characters and deduplicated.
const optOutCheckScriptTemplate = `(() => {
	const patterns = %s;
	const texts = [];
	const seen = new Set();
	for (const el of document.querySelectorAll("a, button, [role='link']")) {
		const text = (el.innerText || '').trim().toLowerCase();
		if (!text) {
			continue;
		}
		if (patterns.some((p) => text.includes(p))) {
			const clipped = text.slice(0, 80);
			if (!seen.has(clipped)) {
				seen.add(clipped);
				texts.push(clipped);
			}
		}
	}
	return {link_found: texts.length > 0, link_texts: texts};
})()`

// optOutCheckScript renders the opt-out scan with the built-in patterns
// plus any site-specific extras. Extras are trimmed and lowercased because
// the script compares against lowercased element text.
func optOutCheckScript(extra []string) string {
	patterns := make([]string, 0, len(defaultOptOutPatterns)+len(extra))
	patterns = append(patterns, defaultOptOutPatterns...)
	for _, p := range extra {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	encoded, _ := json.Marshal(patterns) //nolint:errcheck,errchkjson // string slice; Marshal won't fail
	return fmt.Sprintf(optOutCheckScriptTemplate, encoded)
}

// detectBanner evaluates the consent-banner heuristics in the live page.
// The script's result shape matches model.BannerCheck's JSON tags, so the
// browser decodes straight into the model type.
func detectBanner(ctx context.Context, sess browser.Session) (model.BannerCheck, error) {
	var check model.BannerCheck
	if err := sess.Evaluate(ctx, bannerCheckScript, &check); err != nil {
		return model.BannerCheck{}, err
	}
	return check, nil
}

// detectOptOutLink evaluates the opt-out-link text scan in the live page.
// extraPatterns come from per-site configuration and extend the built-in
// wording list.
func detectOptOutLink(ctx context.Context, sess browser.Session, extraPatterns []string) (model.OptOutCheck, error) {
	var check model.OptOutCheck
	if err := sess.Evaluate(ctx, optOutCheckScript(extraPatterns), &check); err != nil {
		return model.OptOutCheck{}, err
	}
	return check, nil
}
