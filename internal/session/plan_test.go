package session

import (
	"strings"
	"testing"

	"github.com/gpcscan/gpcscan/internal/model"
)

// TestPlan tests journey-plan derivation from a risk-sorted graph.
func TestPlan(t *testing.T) {
	t.Parallel()

	graph := model.NewInteractionGraph("gpcscan_20250114_153042", "https://shop.example.com")
	graph.AddNode(model.GraphNode{URL: "https://shop.example.com/checkout", Purpose: "checkout", RiskScore: 9})
	graph.AddNode(model.GraphNode{URL: "https://shop.example.com/account", Purpose: "account", RiskScore: 6})
	graph.AddNode(model.GraphNode{URL: "https://shop.example.com", Purpose: "landing", RiskScore: 2})

	t.Run("takes the top nodes in graph order", func(t *testing.T) {
		t.Parallel()

		plan := Plan(graph, 2)
		if len(plan) != 2 {
			t.Fatalf("len(plan) = %d, expected 2", len(plan))
		}
		if plan[0].URL != "https://shop.example.com/checkout" {
			t.Errorf("plan[0].URL = %q, expected the riskiest node first", plan[0].URL)
		}
		if plan[1].URL != "https://shop.example.com/account" {
			t.Errorf("plan[1].URL = %q, expected the second node", plan[1].URL)
		}
		for _, entry := range plan {
			if entry.Action != model.ActionNavigate {
				t.Errorf("Action = %q, expected %q", entry.Action, model.ActionNavigate)
			}
			if entry.Reason == "" {
				t.Error("Reason is empty, expected the planner's rationale")
			}
		}
		if !strings.Contains(plan[0].Reason, "9") || !strings.Contains(plan[0].Reason, "checkout") {
			t.Errorf("plan[0].Reason = %q, expected risk score and purpose", plan[0].Reason)
		}
	})

	t.Run("budget larger than the graph takes everything", func(t *testing.T) {
		t.Parallel()

		plan := Plan(graph, 20)
		if len(plan) != 3 {
			t.Errorf("len(plan) = %d, expected 3", len(plan))
		}
	})

	t.Run("nil graph", func(t *testing.T) {
		t.Parallel()

		if plan := Plan(nil, 5); plan != nil {
			t.Errorf("Plan(nil) = %v, expected nil", plan)
		}
	})

	t.Run("non-positive budget", func(t *testing.T) {
		t.Parallel()

		if plan := Plan(graph, 0); plan != nil {
			t.Errorf("Plan(graph, 0) = %v, expected nil", plan)
		}
	})
}
