package session

import (
	"fmt"

	"github.com/gpcscan/gpcscan/internal/model"
)

// Plan derives the journey plan from a discovered interaction graph: the
// top maxJourneys nodes in graph order. The crawl engine returns nodes
// sorted by descending risk score, so the plan visits the riskiest pages
// first and both sessions replay exactly this order.
func Plan(graph *model.InteractionGraph, maxJourneys int) []model.CrawlPlanEntry {
	if graph == nil || maxJourneys <= 0 {
		return nil
	}

	n := maxJourneys
	if n > len(graph.Nodes) {
		n = len(graph.Nodes)
	}

	plan := make([]model.CrawlPlanEntry, 0, n)
	for _, node := range graph.Nodes[:n] {
		plan = append(plan, model.CrawlPlanEntry{
			URL:    node.URL,
			Action: model.ActionNavigate,
			Reason: fmt.Sprintf("risk score %d (%s)", node.RiskScore, node.Purpose),
		})
	}
	return plan
}
