package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/capture"
	"github.com/gpcscan/gpcscan/internal/model"
	"github.com/gpcscan/gpcscan/internal/oracle"
)

// Engine defaults. The CLI normally overrides these from configuration;
// the defaults make a bare NewEngine usable in tests and tooling.
const (
	defaultMaxPages    = 10
	defaultActionDelay = 800 * time.Millisecond
	defaultScrollSteps = 3
)

// Engine discovers a site's privacy-relevant surface: it walks pages from
// the root through a priority frontier, summarizes each page, has the
// oracle score it, and assembles the interaction graph the audit sessions
// replay.
//
// Design decision: The launcher and oracle are constructor arguments
// rather than created internally because:
//  1. Browser lifecycle and options belong to the browser package
//  2. Oracle selection (live, heuristic, failover) is wiring decided once
//     upstream
//  3. Tests inject fakes for both and run without Chrome or a network
type Engine struct {
	launcher browser.Launcher
	oracle   oracle.Oracle

	// maxPages limits the total number of pages visited, including pages
	// whose navigation failed.
	maxPages int

	// actionDelay paces scroll steps on each page.
	actionDelay time.Duration

	// scrollSteps is how many viewport-heights to scroll per page, to
	// trigger lazy-loaded content before the DOM snapshot.
	scrollSteps int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxPages sets the crawl page budget.
func WithMaxPages(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxPages = n
		}
	}
}

// WithActionDelay sets the pause between page actions.
func WithActionDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.actionDelay = d
		}
	}
}

// WithScrollSteps sets how many times each page is scrolled before the
// DOM snapshot. Zero disables scrolling.
func WithScrollSteps(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.scrollSteps = n
		}
	}
}

// NewEngine creates a crawl engine.
func NewEngine(launcher browser.Launcher, o oracle.Oracle, opts ...EngineOption) *Engine {
	e := &Engine{
		launcher:    launcher,
		oracle:      o,
		maxPages:    defaultMaxPages,
		actionDelay: defaultActionDelay,
		scrollSteps: defaultScrollSteps,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Discover crawls from rootURL and returns the interaction graph: one node
// per successfully visited page, sorted by descending risk score, and one
// edge per accepted crawl candidate in discovery order.
//
// The loop never visits a canonical URL twice and never leaves the root's
// registrable domain, whatever the oracle proposes. A failed navigation
// consumes page budget but produces no node.
func (e *Engine) Discover(ctx context.Context, auditID, rootURL string) (*model.InteractionGraph, error) {
	root, err := validateRootURL(rootURL)
	if err != nil {
		return nil, err
	}
	rootDomain := registrableDomainOf(root)

	session, err := e.launcher.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open crawl session: %w", err)
	}
	defer func() { _ = session.Close() }()

	graph := model.NewInteractionGraph(auditID, root)
	frontier := NewFrontier()
	frontier.Push(oracle.PriorityHigh, root)
	visited := make(map[string]struct{})

	for frontier.Len() > 0 && len(visited) < e.maxPages {
		select {
		case <-ctx.Done():
			return graph, ctx.Err()
		default:
		}

		candidate, _ := frontier.Pop()
		pageURL := CanonicalURL(candidate)
		if _, ok := visited[pageURL]; ok {
			continue
		}
		visited[pageURL] = struct{}{}

		slog.Debug("crawling page",
			"url", pageURL,
			"visited", len(visited),
			"queued", frontier.Len())

		nav, err := session.Navigate(ctx, pageURL)
		if err != nil {
			slog.Warn("page skipped: navigation failed", "url", pageURL, "error", err)
			continue
		}

		if e.scrollSteps > 0 {
			if err := session.Scroll(ctx, e.scrollSteps, e.actionDelay); err != nil {
				slog.Debug("scroll failed", "url", pageURL, "error", err)
			}
		}

		pageHTML, err := session.HTML(ctx)
		if err != nil {
			slog.Warn("page skipped: could not read DOM", "url", pageURL, "error", err)
			continue
		}

		summary, err := summarize(pageURL, nav, pageHTML)
		if err != nil {
			slog.Warn("page skipped: could not parse DOM", "url", pageURL, "error", err)
			continue
		}

		analysis := e.analyze(ctx, summary, &oracle.CrawlContext{
			RootURL:      root,
			PagesVisited: len(visited),
			QueueSize:    frontier.Len(),
		})

		nodeID := graph.AddNode(buildNode(pageURL, summary, analysis))
		slog.Debug("page scored",
			"url", pageURL,
			"node", nodeID,
			"risk", analysis.RiskScore,
			"purpose", analysis.Purpose)

		for _, cand := range analysis.Candidates {
			target := CanonicalURL(cand.URL)
			if target == "" {
				continue
			}
			if _, ok := visited[target]; ok {
				continue
			}
			if registrableDomainOf(target) != rootDomain {
				continue
			}

			label := cand.Priority
			if label == "" {
				label = oracle.PriorityLow
			}
			frontier.Push(label, target)
			graph.AddEdge(nodeID, target, label, cand.Reason)
		}
	}

	graph.SortNodes()
	slog.Info("discovery complete",
		"audit_id", auditID,
		"pages", len(graph.Nodes),
		"edges", len(graph.Edges))
	return graph, nil
}

// analyze asks the oracle about the page, falling back to the rule-based
// scorer on any error so every visited page yields a scored node.
func (e *Engine) analyze(ctx context.Context, summary *model.PageSummary, crawl *oracle.CrawlContext) *oracle.Analysis {
	analysis, err := e.oracle.Analyze(ctx, summary, crawl)
	if err != nil {
		slog.Debug("oracle failed, using rule-based fallback", "url", summary.URL, "error", err)
		return oracle.Fallback(summary)
	}
	return analysis
}

// summarize parses the DOM snapshot into a page summary, preferring the
// parsed title and falling back to the navigation title.
func summarize(pageURL string, nav *browser.NavigationResult, pageHTML string) (*model.PageSummary, error) {
	parser, err := NewParser(pageURL)
	if err != nil {
		return nil, err
	}
	summary, err := parser.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}
	summary.URL = pageURL
	if summary.Title == "" && nav != nil {
		summary.Title = nav.Title
	}
	return summary, nil
}

// buildNode merges the page summary and the oracle's analysis into a graph
// node. The oracle may override the tracker list; when it stays silent the
// parsed script sources stand.
func buildNode(pageURL string, summary *model.PageSummary, analysis *oracle.Analysis) model.GraphNode {
	trackers := summary.TrackerScripts
	if len(analysis.Trackers) > 0 {
		trackers = analysis.Trackers
	}

	return model.GraphNode{
		URL:            pageURL,
		Title:          summary.Title,
		Purpose:        analysis.Purpose,
		RiskScore:      analysis.RiskScore,
		RiskReasons:    analysis.Reasons,
		TrackerScripts: trackers,
		HasOptOutText:  summary.HasOptOutText,
		Buttons:        summary.Buttons,
		Forms:          summary.FormStrings(),
		ScrapedAt:      time.Now().UTC(),
	}
}

// CanonicalURL strips the fragment and trims trailing slashes, so
// "https://example.com/pricing/#plans" and "https://example.com/pricing"
// identify the same page in the visited set and the graph.
func CanonicalURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	return strings.TrimRight(rawURL, "/")
}

// validateRootURL canonicalizes the crawl entry point and rejects URLs the
// engine cannot gate a crawl on.
func validateRootURL(rawURL string) (string, error) {
	root := CanonicalURL(rawURL)
	u, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRootURL, rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRootURL, rawURL)
	}
	return root, nil
}

// registrableDomainOf reduces a URL to its registrable domain (eTLD+1) for
// the same-site gate. Unparseable URLs yield "" and never match anything.
func registrableDomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return capture.RegistrableDomain(u.Hostname())
}
