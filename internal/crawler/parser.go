package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/gpcscan/gpcscan/internal/capture"
	"github.com/gpcscan/gpcscan/internal/model"
)

// optOutTextMarkers is the wording scanned for on every page. A page
// containing any of these phrases anywhere in its rendered text counts as
// carrying opt-out text for risk scoring.
var optOutTextMarkers = []string{
	"do not sell",
	"your privacy choices",
	"opt-out",
	"california privacy",
}

// Parser extracts a compact page summary from rendered HTML.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// evaluating extraction JavaScript in the browser because:
//  1. It correctly handles malformed HTML common on the web
//  2. One DOM snapshot means one browser round trip per page
//  3. Extraction logic is testable without a browser
//  4. Standard library extension, well-maintained
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative URLs.
	baseURL *url.URL
}

// NewParser creates a parser for a page at baseURL.
// The base URL is used to resolve relative links, form actions, and
// script sources.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse walks the HTML once and extracts the page summary: links, button
// labels, forms, tracker script sources, and the opt-out text flag.
// All collections respect the caps in the model package.
func (p *Parser) Parse(content io.Reader) (*model.PageSummary, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	summary := &model.PageSummary{
		URL:     p.baseURL.String(),
		Links:   make([]model.Link, 0),
		Buttons: make([]string, 0),
		Forms:   make([]model.FormSummary, 0),
	}

	// Collect rendered text for the opt-out wording scan. Script and style
	// bodies are excluded the way innerText excludes them.
	var textContent strings.Builder

	var walk func(n *html.Node, skipText bool)
	walk = func(n *html.Node, skipText bool) {
		switch n.Type {
		case html.ElementNode:
			p.processElement(n, summary)
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				skipText = true
			}
		case html.TextNode:
			if !skipText {
				textContent.WriteString(n.Data)
				textContent.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skipText)
		}
	}
	walk(doc, false)

	summary.HasOptOutText = containsOptOutText(textContent.String())
	return summary, nil
}

// processElement handles one HTML element node.
func (p *Parser) processElement(n *html.Node, summary *model.PageSummary) {
	switch n.Data {
	case "title":
		if summary.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			summary.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if len(summary.Links) >= model.MaxSummaryLinks {
			return
		}
		href := p.resolveURL(getAttr(n, "href"))
		if !strings.HasPrefix(href, "http") {
			return
		}
		summary.Links = append(summary.Links, model.Link{
			Href: href,
			Text: truncate(textOf(n), model.MaxLinkTextLen),
		})

	case "button":
		p.addButton(summary, buttonLabel(n))

	case "input":
		if strings.EqualFold(getAttr(n, "type"), "submit") {
			p.addButton(summary, buttonLabel(n))
		}

	case "form":
		if len(summary.Forms) >= model.MaxSummaryForms {
			return
		}
		summary.Forms = append(summary.Forms, p.extractForm(n))

	case "script":
		src := p.resolveURL(getAttr(n, "src"))
		if src == "" {
			return
		}
		if u, err := url.Parse(src); err == nil && capture.IsTrackerHost(u.Hostname()) {
			summary.TrackerScripts = append(summary.TrackerScripts, src)
		}

	default:
		if getAttr(n, "role") == "button" {
			p.addButton(summary, buttonLabel(n))
		}
	}
}

// addButton appends a button label, respecting the cap and skipping
// unlabeled elements.
func (p *Parser) addButton(summary *model.PageSummary, label string) {
	if label == "" || len(summary.Buttons) >= model.MaxSummaryButtons {
		return
	}
	summary.Buttons = append(summary.Buttons, truncate(label, model.MaxLinkTextLen))
}

// buttonLabel picks the visible label of a button-like element: rendered
// text, then the value attribute, then aria-label.
func buttonLabel(n *html.Node) string {
	if text := textOf(n); text != "" {
		return text
	}
	if value := strings.TrimSpace(getAttr(n, "value")); value != "" {
		return value
	}
	return strings.TrimSpace(getAttr(n, "aria-label"))
}

// extractForm summarizes one form element: resolved action, lowercase
// method defaulting to "get", and up to MaxFormFields field names.
func (p *Parser) extractForm(n *html.Node) model.FormSummary {
	form := model.FormSummary{
		Action: p.resolveURL(getAttr(n, "action")),
		Method: strings.ToLower(getAttr(n, "method")),
		Fields: make([]string, 0),
	}
	if form.Method == "" {
		form.Method = "get"
	}
	extractFormFields(n, &form)
	return form
}

// extractFormFields recursively collects field names from a form subtree.
// An unnamed input falls back to its type so the summary still shows what
// the form collects.
func extractFormFields(n *html.Node, form *model.FormSummary) {
	if len(form.Fields) >= model.MaxFormFields {
		return
	}

	if n.Type == html.ElementNode && (n.Data == "input" || n.Data == "textarea") {
		field := getAttr(n, "name")
		if field == "" {
			if n.Data == "textarea" {
				field = "textarea"
			} else if field = getAttr(n, "type"); field == "" {
				field = "text"
			}
		}
		form.Fields = append(form.Fields, field)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractFormFields(c, form)
	}
}

// resolveURL resolves a relative URL against the base URL.
// Pseudo-links (javascript:, mailto:, tel:, data:, bare fragments) resolve
// to "" so callers drop them.
func (p *Parser) resolveURL(href string) string {
	if href == "" {
		return ""
	}

	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		href == "#" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

// containsOptOutText reports whether the page text carries opt-out wording.
func containsOptOutText(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range optOutTextMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// textOf collects the rendered text of a node's subtree with whitespace
// collapsed, approximating innerText for labels and anchor text.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// truncate caps a string at max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
