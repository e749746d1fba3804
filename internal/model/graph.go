package model

import (
	"fmt"
	"sort"
	"time"
)

// GraphNode is one crawled page in the interaction graph.
// Identity is the canonical URL: the crawl engine creates at most one node
// per canonical URL, and a node is never mutated after it is appended.
type GraphNode struct {
	// ID is the discovery-ordered node identifier ("state_001", "state_002", ...).
	ID string `json:"id"`

	// URL is the canonical page URL (fragment stripped, trailing slash trimmed).
	URL string `json:"url"`

	// Title is the page title at scrape time.
	Title string `json:"title"`

	// Purpose is the page-purpose label from the oracle (or heuristic fallback).
	Purpose string `json:"page_purpose"`

	// RiskScore is the privacy risk score, 1 (benign) to 10 (hostile).
	RiskScore int `json:"privacy_risk_score"`

	// RiskReasons explains the score in free text.
	RiskReasons []string `json:"risk_reasons,omitempty"`

	// TrackerScripts lists script sources served from known tracker domains.
	TrackerScripts []string `json:"tracker_scripts,omitempty"`

	// HasOptOutText is true if opt-out wording was found anywhere on the page.
	HasOptOutText bool `json:"has_optout_text"`

	// Buttons lists visible button labels, for interaction planning.
	Buttons []string `json:"buttons,omitempty"`

	// Forms lists form descriptors ("POST /subscribe", ...).
	Forms []string `json:"forms,omitempty"`

	// ScrapedAt is when the page was visited.
	ScrapedAt time.Time `json:"scraped_at"`
}

// GraphEdge is a directed navigation suggestion from a crawled node to a
// target URL. Multiple edges may point at the same URL; the frontier prunes
// duplicates at pop time, not at edge-creation time.
type GraphEdge struct {
	// From is the source node ID.
	From string `json:"from"`

	// To is the target canonical URL.
	To string `json:"to"`

	// Type is the edge kind; currently always "navigate".
	Type string `json:"type"`

	// Priority is the tier the target was enqueued at ("high", "medium", "low").
	Priority string `json:"priority"`

	// Reason is the oracle's (or fallback's) short justification, truncated
	// to MaxEdgeReasonLen characters.
	Reason string `json:"reason"`
}

// MaxEdgeReasonLen caps edge reason text. Oracle replies can ramble; edges
// are plentiful, so the graph keeps only the head of each justification.
const MaxEdgeReasonLen = 80

// EdgeTypeNavigate is the only edge type the crawl engine currently emits.
const EdgeTypeNavigate = "navigate"

// InteractionGraph is the crawl output: pages as nodes, proposed navigations
// as edges. Nodes are kept sorted by descending risk score (stable on
// discovery order) from SortNodes onwards.
type InteractionGraph struct {
	// AuditID identifies the audit run that produced this graph.
	AuditID string `json:"audit_id"`

	// RootURL is the canonical crawl entry point.
	RootURL string `json:"root_url"`

	// Nodes are the crawled pages.
	Nodes []GraphNode `json:"nodes"`

	// Edges are the proposed navigations.
	Edges []GraphEdge `json:"edges"`
}

// NewInteractionGraph creates an empty graph for the given audit and root.
func NewInteractionGraph(auditID, rootURL string) *InteractionGraph {
	return &InteractionGraph{
		AuditID: auditID,
		RootURL: rootURL,
		Nodes:   make([]GraphNode, 0),
		Edges:   make([]GraphEdge, 0),
	}
}

// NextNodeID returns the ID the next appended node will get.
// IDs are zero-padded so they sort lexically in discovery order.
func (g *InteractionGraph) NextNodeID() string {
	return fmt.Sprintf("state_%03d", len(g.Nodes)+1)
}

// AddNode appends a node and returns its assigned ID.
func (g *InteractionGraph) AddNode(node GraphNode) string {
	node.ID = g.NextNodeID()
	g.Nodes = append(g.Nodes, node)
	return node.ID
}

// AddEdge appends a navigation edge, truncating the reason text.
func (g *InteractionGraph) AddEdge(from, to, priority, reason string) {
	if len(reason) > MaxEdgeReasonLen {
		reason = reason[:MaxEdgeReasonLen]
	}
	g.Edges = append(g.Edges, GraphEdge{
		From:     from,
		To:       to,
		Type:     EdgeTypeNavigate,
		Priority: priority,
		Reason:   reason,
	})
}

// SortNodes orders nodes by descending risk score, stable on discovery
// order, so the riskiest pages lead the URL plan.
func (g *InteractionGraph) SortNodes() {
	sort.SliceStable(g.Nodes, func(i, j int) bool {
		return g.Nodes[i].RiskScore > g.Nodes[j].RiskScore
	})
}

// TopURLs returns up to n node URLs in current node order.
// Call SortNodes first to get a risk-ranked URL plan.
func (g *InteractionGraph) TopURLs(n int) []string {
	if n > len(g.Nodes) {
		n = len(g.Nodes)
	}
	urls := make([]string, 0, n)
	for _, node := range g.Nodes[:n] {
		urls = append(urls, node.URL)
	}
	return urls
}
