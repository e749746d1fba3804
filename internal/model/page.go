package model

import (
	"fmt"
	"strings"
)

// PageSummary is a compact structured summary of one loaded page.
// It is what the crawl engine hands to the oracle: small enough to fit a
// prompt, rich enough to score privacy risk and pick the next pages.
//
// Design decision: We summarize instead of passing raw DOM because:
//  1. The oracle contract is token-bounded; a full DOM is not
//  2. The fallback scorer only needs counts and flags
//  3. Summaries serialize cleanly into graph nodes and reports
type PageSummary struct {
	// URL is the canonical URL the summary was extracted from.
	URL string `json:"url"`

	// Title is the page title.
	Title string `json:"title"`

	// Links are absolute same-or-cross-domain link targets, capped at
	// MaxSummaryLinks. The crawl engine applies the same-domain gate later.
	Links []Link `json:"links,omitempty"`

	// Buttons are visible button labels, capped at MaxSummaryButtons.
	Buttons []string `json:"buttons,omitempty"`

	// Forms describes forms on the page, capped at MaxSummaryForms.
	Forms []FormSummary `json:"forms,omitempty"`

	// TrackerScripts lists script src URLs that reference a known tracker
	// domain.
	TrackerScripts []string `json:"tracker_scripts,omitempty"`

	// HasOptOutText is true if the page text contains opt-out wording
	// ("do not sell", "your privacy choices", "opt-out", "california privacy").
	HasOptOutText bool `json:"has_optout_text"`
}

// Link is one anchor target with its visible text.
type Link struct {
	// Href is the absolute link target.
	Href string `json:"href"`

	// Text is the anchor text, trimmed and capped at MaxLinkTextLen.
	Text string `json:"text,omitempty"`
}

// FormSummary describes one form compactly.
type FormSummary struct {
	// Action is the form's absolute action URL ("" means self).
	Action string `json:"action"`

	// Method is the lowercase HTTP method; defaults to "get".
	Method string `json:"method"`

	// Fields lists input names (or types when unnamed), capped at
	// MaxFormFields.
	Fields []string `json:"fields,omitempty"`
}

// String renders the form as a short descriptor for graph nodes,
// e.g. "post /subscribe (email, name)".
func (f FormSummary) String() string {
	if len(f.Fields) == 0 {
		return fmt.Sprintf("%s %s", f.Method, f.Action)
	}
	return fmt.Sprintf("%s %s (%s)", f.Method, f.Action, strings.Join(f.Fields, ", "))
}

// FormStrings returns the form descriptors for storage on a graph node.
func (p *PageSummary) FormStrings() []string {
	if len(p.Forms) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.Forms))
	for _, f := range p.Forms {
		out = append(out, f.String())
	}
	return out
}

// LinkHrefs returns just the link targets, in page order.
func (p *PageSummary) LinkHrefs() []string {
	if len(p.Links) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.Links))
	for _, l := range p.Links {
		out = append(out, l.Href)
	}
	return out
}

// Summary extraction caps. Pages can be arbitrarily large; the summary is
// bounded so oracle prompts and graph nodes stay small.
const (
	// MaxSummaryLinks caps extracted links per page.
	MaxSummaryLinks = 40

	// MaxSummaryButtons caps extracted button labels per page.
	MaxSummaryButtons = 20

	// MaxSummaryForms caps extracted forms per page.
	MaxSummaryForms = 5

	// MaxFormFields caps field names recorded per form.
	MaxFormFields = 8

	// MaxLinkTextLen caps anchor/button text length.
	MaxLinkTextLen = 60
)
