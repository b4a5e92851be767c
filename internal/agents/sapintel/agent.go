// Package sapintel analyzes natural language test requirements against a
// table of known SAP transactions and business processes.
package sapintel

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/astc-project/astc-backend/internal/framework"
	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

// TransactionMatch is one transaction identified in a requirement.
type TransactionMatch struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Module     string  `json:"module"`
	FoundBy    string  `json:"found_by"`
	Confidence float64 `json:"confidence"`
}

// Intent summarizes what the requirement asks for.
type Intent struct {
	PrimaryIntent string             `json:"primary_intent"`
	Confidence    float64            `json:"confidence"`
	AllIntents    map[string]float64 `json:"all_intents"`
	Complexity    string             `json:"complexity"`
}

// Analysis is the structured result for one requirement.
type Analysis struct {
	RequirementText       string             `json:"requirement_text"`
	ExtractedTransactions []TransactionMatch `json:"extracted_transactions"`
	ModulesInvolved       []string           `json:"modules_involved"`
	BusinessProcesses     []string           `json:"business_processes"`
	Intent                Intent             `json:"intent"`
	ConfidenceScore       float64            `json:"confidence_score"`
	Recommendations       []string           `json:"recommendations"`
	AnalysisTimestamp     time.Time          `json:"analysis_timestamp"`
}

type transactionInfo struct {
	code    string
	name    string
	module  string
	process string
}

// The transaction table mirrors the simulator's supported transaction set.
var transactionTable = []transactionInfo{
	{"ME21N", "Create Purchase Order", "MM", "Procurement"},
	{"ME28", "Release Purchase Order", "MM", "Procurement"},
	{"MIGO", "Goods Receipt", "MM", "Inventory Management"},
	{"MIRO", "Enter Incoming Invoice", "MM", "Accounts Payable"},
	{"FB60", "Enter Vendor Invoice", "FI", "Accounts Payable"},
	{"VA01", "Create Sales Order", "SD", "Order to Cash"},
	{"VF01", "Create Billing Document", "SD", "Order to Cash"},
	{"VL01N", "Create Outbound Delivery", "SD", "Order to Cash"},
}

var moduleKeywords = map[string][]string{
	"MM": {"PROCUREMENT", "PURCHASE", "MATERIAL", "VENDOR", "GOODS"},
	"FI": {"FINANCIAL", "ACCOUNTING", "INVOICE", "PAYMENT", "GENERAL LEDGER"},
	"SD": {"SALES", "CUSTOMER", "ORDER", "BILLING", "DELIVERY"},
	"CO": {"CONTROLLING", "COST", "PROFIT CENTER", "BUDGET"},
	"WM": {"WAREHOUSE", "INVENTORY", "STOCK", "STORAGE"},
}

var processKeywords = map[string][]string{
	"Procurement":          {"PROCUREMENT", "PURCHASE", "BUYING", "SOURCING"},
	"Order to Cash":        {"SALES", "ORDER", "CUSTOMER", "BILLING", "DELIVERY"},
	"Accounts Payable":     {"INVOICE", "PAYMENT", "VENDOR", "PAYABLE"},
	"Inventory Management": {"INVENTORY", "STOCK", "GOODS MOVEMENT", "WAREHOUSE"},
	"Financial Accounting": {"FINANCIAL", "ACCOUNTING", "JOURNAL", "LEDGER"},
}

var intentKeywords = map[string][]string{
	"test_creation":         {"test", "testing", "validate", "verify", "check"},
	"dependency_analysis":   {"dependency", "dependencies", "depend", "relationship", "connection"},
	"impact_analysis":       {"impact", "affect", "change", "modify", "update"},
	"process_documentation": {"document", "process", "flow", "procedure"},
	"troubleshooting":       {"error", "issue", "problem", "fix", "debug"},
}

// Agent is the SAP intelligence agent.
type Agent struct {
	*framework.BaseAgent
}

// New constructs the agent with its dispatch table wired.
func New() *Agent {
	a := &Agent{
		BaseAgent: framework.NewBaseAgent("sap_intelligence", "SAP Intelligence Agent", []string{
			"natural_language_processing",
			"sap_transaction_analysis",
			"business_process_identification",
			"risk_assessment",
			"requirement_parsing",
		}),
	}
	a.On("analyze_requirement", a.analyzeRequirement)
	a.On("identify_transactions", a.identifyTransactions)
	return a
}

func (a *Agent) analyzeRequirement(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Requirement string `json:"requirement"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid analyze_requirement payload"), nil
	}

	transactions := extractTransactions(req.Requirement)
	intent := analyzeIntent(req.Requirement)

	analysis := Analysis{
		RequirementText:       req.Requirement,
		ExtractedTransactions: transactions,
		ModulesInvolved:       identifyModules(req.Requirement, transactions),
		BusinessProcesses:     identifyProcesses(req.Requirement, transactions),
		Intent:                intent,
		ConfidenceScore:       confidenceScore(req.Requirement, transactions),
		Recommendations:       recommendations(transactions, intent),
		AnalysisTimestamp:     time.Now(),
	}

	return messaging.NewPayload("requirement_analysis", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"analysis": analysis,
		"next_steps": []string{
			"Generate test cases based on identified transactions",
			"Analyze dependencies for identified processes",
			"Assess risk and impact",
		},
	})
}

func (a *Agent) identifyTransactions(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Text string `json:"text"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid identify_transactions payload"), nil
	}
	transactions := extractTransactions(req.Text)
	return messaging.NewPayload("transactions_identified", map[string]any{
		"status":       "success",
		"agent_id":     a.ID(),
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// extractTransactions matches known transaction codes and names, keeping the
// highest-confidence match per code and the top five overall.
func extractTransactions(text string) []TransactionMatch {
	upper := strings.ToUpper(text)
	var matches []TransactionMatch

	for _, t := range transactionTable {
		if strings.Contains(upper, t.code) {
			matches = append(matches, TransactionMatch{
				Code: t.code, Name: t.name, Module: t.module,
				FoundBy: "exact_code_match", Confidence: 0.95,
			})
			continue
		}
		for _, word := range strings.Fields(strings.ToUpper(t.name)) {
			if len(word) > 3 && strings.Contains(upper, word) {
				matches = append(matches, TransactionMatch{
					Code: t.code, Name: t.name, Module: t.module,
					FoundBy: "name_match", Confidence: 0.7,
				})
				break
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	seen := make(map[string]struct{}, len(matches))
	unique := matches[:0]
	for _, m := range matches {
		if _, ok := seen[m.Code]; ok {
			continue
		}
		seen[m.Code] = struct{}{}
		unique = append(unique, m)
	}
	if len(unique) > 5 {
		unique = unique[:5]
	}
	return unique
}

func identifyModules(text string, transactions []TransactionMatch) []string {
	upper := strings.ToUpper(text)
	set := make(map[string]struct{})
	for _, t := range transactions {
		set[t.Module] = struct{}{}
	}
	for module, keywords := range moduleKeywords {
		for _, kw := range keywords {
			if strings.Contains(upper, kw) {
				set[module] = struct{}{}
				break
			}
		}
	}
	return sortedKeys(set)
}

func identifyProcesses(text string, transactions []TransactionMatch) []string {
	upper := strings.ToUpper(text)
	set := make(map[string]struct{})
	for _, t := range transactions {
		for _, info := range transactionTable {
			if info.code == t.Code {
				set[info.process] = struct{}{}
			}
		}
	}
	for process, keywords := range processKeywords {
		for _, kw := range keywords {
			if strings.Contains(upper, kw) {
				set[process] = struct{}{}
				break
			}
		}
	}
	return sortedKeys(set)
}

func analyzeIntent(text string) Intent {
	lower := strings.ToLower(text)

	scores := make(map[string]float64)
	for intent, keywords := range intentKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > 0 {
			scores[intent] = float64(hits) / float64(len(keywords))
		}
	}

	primary := "general_inquiry"
	best := 0.0
	for intent, score := range scores {
		if score > best || (score == best && intent < primary) {
			primary, best = intent, score
		}
	}
	confidence := best
	if len(scores) == 0 {
		confidence = 0.3
	}

	return Intent{
		PrimaryIntent: primary,
		Confidence:    confidence,
		AllIntents:    scores,
		Complexity:    assessComplexity(text),
	}
}

func assessComplexity(text string) string {
	lower := strings.ToLower(text)
	factors := 0
	for _, kw := range []string{"approval", "workflow", "integration", "custom", "complex", "multiple", "dependent"} {
		if strings.Contains(lower, kw) {
			factors++
		}
	}
	for _, kw := range []string{"simple", "basic", "standard", "single", "display"} {
		if strings.Contains(lower, kw) {
			factors--
		}
	}
	switch {
	case factors >= 3:
		return "High"
	case factors >= 1:
		return "Medium"
	default:
		return "Low"
	}
}

func confidenceScore(text string, transactions []TransactionMatch) float64 {
	confidence := 0.5
	for _, t := range transactions {
		confidence += t.Confidence * 0.1
	}
	lower := strings.ToLower(text)
	for _, term := range []string{"transaction", "tcode", "sap", "module", "business process"} {
		if strings.Contains(lower, term) {
			confidence += 0.05
		}
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

func recommendations(transactions []TransactionMatch, intent Intent) []string {
	var recs []string
	if len(transactions) == 0 {
		recs = append(recs, "Consider providing more specific SAP transaction codes or business process details")
	}
	switch intent.PrimaryIntent {
	case "test_creation":
		recs = append(recs,
			"Generate comprehensive test cases covering happy path and error scenarios",
			"Include prerequisite data setup and validation steps")
	case "impact_analysis":
		recs = append(recs, "Analyze downstream dependencies and affected systems")
	}
	return recs
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
