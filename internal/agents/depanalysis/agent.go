// Package depanalysis reports transaction dependency edges and change impact
// from a static dependency graph.
package depanalysis

import (
	"context"
	"sort"

	"github.com/astc-project/astc-backend/internal/framework"
	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

// Edge is one directed dependency between transactions.
type Edge struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Relationship string `json:"relationship"`
	Strength     string `json:"strength"`
}

// ComponentAnalysis is the dependency picture for one transaction.
type ComponentAnalysis struct {
	Component    string   `json:"component"`
	DependsOn    []Edge   `json:"depends_on"`
	Dependents   []Edge   `json:"dependents"`
	RiskLevel    string   `json:"risk_level"`
	ImpactScope  []string `json:"impact_scope"`
	TestingOrder int      `json:"testing_order"`
}

// The procure-to-pay and order-to-cash chains of the supported transactions.
var dependencyEdges = []Edge{
	{From: "ME21N", To: "ME28", Relationship: "requires_release", Strength: "strong"},
	{From: "ME28", To: "MIGO", Relationship: "enables_receipt", Strength: "strong"},
	{From: "MIGO", To: "MIRO", Relationship: "enables_verification", Strength: "strong"},
	{From: "MIRO", To: "FB60", Relationship: "posts_invoice", Strength: "medium"},
	{From: "VA01", To: "VL01N", Relationship: "enables_delivery", Strength: "strong"},
	{From: "VL01N", To: "VF01", Relationship: "enables_billing", Strength: "strong"},
}

// Agent is the dependency analysis agent.
type Agent struct {
	*framework.BaseAgent
}

// New constructs the agent with its dispatch table wired.
func New() *Agent {
	a := &Agent{
		BaseAgent: framework.NewBaseAgent("dependency_analysis", "Dependency Analysis Agent", []string{
			"dependency_graph_analysis",
			"impact_assessment",
			"risk_propagation",
		}),
	}
	a.On("analyze_dependencies", a.analyzeDependencies)
	return a
}

func (a *Agent) analyzeDependencies(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Components []string `json:"components"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid analyze_dependencies payload"), nil
	}
	if len(req.Components) == 0 {
		return framework.ErrorPayload(a.ID(), "no components provided"), nil
	}

	analyses := make([]ComponentAnalysis, 0, len(req.Components))
	for i, component := range req.Components {
		analyses = append(analyses, analyzeComponent(component, i+1))
	}

	return messaging.NewPayload("dependency_analysis", map[string]any{
		"status":        "success",
		"agent_id":      a.ID(),
		"analyses":      analyses,
		"overall_risk":  overallRisk(analyses),
		"testing_order": testingOrder(req.Components),
		"total_edges":   len(dependencyEdges),
	})
}

func analyzeComponent(component string, order int) ComponentAnalysis {
	analysis := ComponentAnalysis{Component: component, TestingOrder: order}

	scope := make(map[string]struct{})
	for _, edge := range dependencyEdges {
		if edge.From == component {
			analysis.DependsOn = append(analysis.DependsOn, edge)
			scope[edge.To] = struct{}{}
		}
		if edge.To == component {
			analysis.Dependents = append(analysis.Dependents, edge)
			scope[edge.From] = struct{}{}
		}
	}
	for s := range scope {
		analysis.ImpactScope = append(analysis.ImpactScope, s)
	}
	sort.Strings(analysis.ImpactScope)

	total := len(analysis.DependsOn) + len(analysis.Dependents)
	switch {
	case total >= 3:
		analysis.RiskLevel = "high"
	case total >= 1:
		analysis.RiskLevel = "medium"
	default:
		analysis.RiskLevel = "low"
	}
	return analysis
}

func overallRisk(analyses []ComponentAnalysis) string {
	rank := map[string]int{"low": 0, "medium": 1, "high": 2}
	worst := "low"
	for _, a := range analyses {
		if rank[a.RiskLevel] > rank[worst] {
			worst = a.RiskLevel
		}
	}
	return worst
}

// testingOrder sorts components so that upstream transactions are tested
// before the transactions that depend on them.
func testingOrder(components []string) []string {
	depth := make(map[string]int, len(components))
	for _, c := range components {
		depth[c] = chainDepth(c, 0)
	}
	ordered := append([]string(nil), components...)
	sort.SliceStable(ordered, func(i, j int) bool { return depth[ordered[i]] < depth[ordered[j]] })
	return ordered
}

func chainDepth(component string, guard int) int {
	if guard > len(dependencyEdges) {
		return guard
	}
	max := 0
	for _, edge := range dependencyEdges {
		if edge.To == component {
			if d := chainDepth(edge.From, guard+1) + 1; d > max {
				max = d
			}
		}
	}
	return max
}
