// Package knowledge holds the read-only SAP reference data driving the
// simulator: transaction profiles, step templates, error patterns, and
// healing strategies.
package knowledge

import "fmt"

// Complexity tiers for transaction profiles.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// TransactionProfile is the timing and failure profile of one transaction code.
type TransactionProfile struct {
	BaseTime    float64 `yaml:"base_time" json:"base_time"`       // seconds
	Complexity  string  `yaml:"complexity" json:"complexity"`     // low / medium / high
	FailureRate float64 `yaml:"failure_rate" json:"failure_rate"` // baseline per-step failure probability
}

// HealingStrategy is one remediation with an empirical success rate in [0,1].
type HealingStrategy struct {
	Action      string  `yaml:"action" json:"action"`
	SuccessRate float64 `yaml:"success_rate" json:"success_rate"`
}

// ErrorPattern is one known failure mode with its relative frequency and
// ranked healing strategies.
type ErrorPattern struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Frequency   float64           `yaml:"frequency" json:"frequency"`
	ErrorCode   string            `yaml:"error_code" json:"error_code"`
	Strategies  []HealingStrategy `yaml:"healing_strategies" json:"healing_strategies"`
}

// Base holds all reference data. It is immutable after construction.
type Base struct {
	Profiles      map[string]TransactionProfile
	Patterns      []ErrorPattern
	StepTemplates map[string][]string
}

// DefaultProfile is used for unknown transaction codes.
var DefaultProfile = TransactionProfile{BaseTime: 45, Complexity: ComplexityMedium, FailureRate: 0.15}

// Default returns the built-in knowledge base.
func Default() *Base {
	return &Base{
		Profiles: map[string]TransactionProfile{
			"ME21N": {BaseTime: 45, Complexity: ComplexityMedium, FailureRate: 0.15},
			"MIGO":  {BaseTime: 30, Complexity: ComplexityLow, FailureRate: 0.08},
			"VA01":  {BaseTime: 60, Complexity: ComplexityHigh, FailureRate: 0.22},
			"FB60":  {BaseTime: 40, Complexity: ComplexityMedium, FailureRate: 0.12},
			"ME28":  {BaseTime: 25, Complexity: ComplexityLow, FailureRate: 0.05},
			"MIRO":  {BaseTime: 50, Complexity: ComplexityHigh, FailureRate: 0.18},
			"VF01":  {BaseTime: 35, Complexity: ComplexityMedium, FailureRate: 0.10},
			"VL01N": {BaseTime: 55, Complexity: ComplexityHigh, FailureRate: 0.20},
		},
		Patterns: []ErrorPattern{
			{
				Name:        "approval_timeout",
				Description: "Workflow approval timeout",
				Frequency:   0.35,
				ErrorCode:   "ME_APPROVAL_TIMEOUT",
				Strategies: []HealingStrategy{
					{Action: "retry_with_alternative_approver", SuccessRate: 0.85},
					{Action: "extend_timeout_period", SuccessRate: 0.60},
					{Action: "use_emergency_approval", SuccessRate: 0.95},
				},
			},
			{
				Name:        "vendor_invalid",
				Description: "Invalid or blocked vendor",
				Frequency:   0.25,
				ErrorCode:   "ME_VENDOR_INVALID",
				Strategies: []HealingStrategy{
					{Action: "suggest_alternative_vendor", SuccessRate: 0.90},
					{Action: "unblock_vendor_temporarily", SuccessRate: 0.75},
					{Action: "create_new_vendor_record", SuccessRate: 0.95},
				},
			},
			{
				Name:        "material_not_found",
				Description: "Material master not maintained",
				Frequency:   0.20,
				ErrorCode:   "MM_MATERIAL_NOT_FOUND",
				Strategies: []HealingStrategy{
					{Action: "suggest_similar_material", SuccessRate: 0.80},
					{Action: "create_material_master", SuccessRate: 0.90},
					{Action: "use_material_substitution", SuccessRate: 0.70},
				},
			},
			{
				Name:        "authorization_missing",
				Description: "User lacks required authorization",
				Frequency:   0.15,
				ErrorCode:   "SY_NO_AUTHORIZATION",
				Strategies: []HealingStrategy{
					{Action: "assign_temporary_authorization", SuccessRate: 0.85},
					{Action: "use_authorized_user", SuccessRate: 0.95},
					{Action: "request_authorization_from_admin", SuccessRate: 0.70},
				},
			},
			{
				Name:        "network_timeout",
				Description: "Network connection timeout",
				Frequency:   0.05,
				ErrorCode:   "SY_NETWORK_TIMEOUT",
				Strategies: []HealingStrategy{
					{Action: "retry_with_backoff", SuccessRate: 0.75},
					{Action: "switch_to_backup_server", SuccessRate: 0.90},
					{Action: "reduce_transaction_complexity", SuccessRate: 0.60},
				},
			},
		},
		StepTemplates: map[string][]string{
			"ME21N": {
				"Enter vendor information",
				"Add material line items",
				"Set delivery details",
				"Check approval workflow",
				"Generate purchase order number",
			},
			"MIGO": {
				"Reference purchase order",
				"Enter received quantities",
				"Check quality inspection",
				"Post goods receipt",
				"Generate material document",
			},
			"VA01": {
				"Enter customer information",
				"Add product line items",
				"Check ATP availability",
				"Calculate pricing",
				"Generate sales order number",
			},
			"FB60": {
				"Enter vendor invoice details",
				"Reference purchase order",
				"Validate tax calculations",
				"Check approval limits",
				"Post invoice document",
			},
		},
	}
}

// Profile returns the transaction profile, falling back to the generic
// default for unknown codes.
func (b *Base) Profile(transaction string) TransactionProfile {
	if p, ok := b.Profiles[transaction]; ok {
		return p
	}
	return DefaultProfile
}

// Steps builds the ordered step descriptions for a transaction: login and
// navigation first, transaction-specific steps if known, then the common
// tail. Unknown codes get the generic 6-step skeleton.
func (b *Base) Steps(transaction string) []string {
	head := []string{
		"Login to SAP system",
		fmt.Sprintf("Navigate to %s transaction", transaction),
	}
	tail := []string{
		"Enter transaction data",
		"Validate input fields",
		"Save transaction",
		"Verify transaction completion",
	}

	steps := make([]string, 0, len(head)+len(tail)+5)
	steps = append(steps, head...)
	if specific, ok := b.StepTemplates[transaction]; ok {
		steps = append(steps, specific...)
	}
	return append(steps, tail...)
}

// Pattern looks up an error pattern by name.
func (b *Base) Pattern(name string) (ErrorPattern, bool) {
	for _, p := range b.Patterns {
		if p.Name == name {
			return p, true
		}
	}
	return ErrorPattern{}, false
}

// ErrorMessage renders the user-facing error for a pattern in the context of
// the failing step.
func (b *Base) ErrorMessage(pattern, transaction, stepDescription string) string {
	switch pattern {
	case "approval_timeout":
		return fmt.Sprintf("Approval workflow timeout - %s requires manager approval", stepDescription)
	case "vendor_invalid":
		return "Vendor validation failed - vendor does not exist or is blocked"
	case "material_not_found":
		return "Material master not maintained for requested item"
	case "authorization_missing":
		return fmt.Sprintf("User lacks required authorization for %s", transaction)
	case "network_timeout":
		return fmt.Sprintf("Network timeout during %s", stepDescription)
	default:
		return fmt.Sprintf("Unexpected error during %s", stepDescription)
	}
}

// SuccessDetails renders the templated success text for a passed step.
func (b *Base) SuccessDetails(transaction, stepDescription string) string {
	templates := map[string]string{
		"Login to SAP system":            "Successful login with user credentials",
		"Enter transaction data":         "All required fields populated successfully",
		"Save transaction":               "Transaction saved successfully",
		"Enter vendor information":       "Vendor V001 validated and accepted",
		"Add material line items":        "Material M001 added, price determined automatically",
		"Generate purchase order number": "Purchase order 4500123456 created successfully",
		"Post goods receipt":             "Material document 5000654321 created successfully",
		"Generate sales order number":    "Sales order 1000567890 created successfully",
	}
	if details, ok := templates[stepDescription]; ok {
		return details
	}
	if stepDescription == fmt.Sprintf("Navigate to %s transaction", transaction) {
		return fmt.Sprintf("Transaction %s loaded successfully", transaction)
	}
	return fmt.Sprintf("Step '%s' completed successfully", stepDescription)
}

// CriticalStep reports whether the step carries elevated failure probability.
func CriticalStep(description string) bool {
	switch description {
	case "Enter transaction data", "Save transaction", "Check approval workflow":
		return true
	}
	return false
}
