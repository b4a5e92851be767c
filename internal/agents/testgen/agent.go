// Package testgen produces executable test cases for identified SAP
// transactions from a template table.
package testgen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/astc-project/astc-backend/internal/execution/domain"
	"github.com/astc-project/astc-backend/internal/framework"
	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

// GeneratedTest is a test case enriched with generation metadata.
type GeneratedTest struct {
	TestID           string         `json:"test_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	TransactionCode  string         `json:"transaction_code"`
	TestType         string         `json:"test_type"`
	Priority         string         `json:"priority"`
	TestData         map[string]any `json:"test_data"`
	ExpectedResult   string         `json:"expected_result"`
	EstimatedMinutes int            `json:"estimated_duration_minutes"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Coverage summarizes how the generated suite covers the request.
type Coverage struct {
	TransactionsCovered int     `json:"transactions_covered"`
	FunctionalTests     int     `json:"functional_tests"`
	NegativeTests       int     `json:"negative_tests"`
	AuthorizationTests  int     `json:"authorization_tests"`
	CoveragePercent     float64 `json:"coverage_percent"`
}

type template struct {
	name           string
	description    string
	testData       map[string]any
	expectedResult string
	stepCount      int
}

var templates = map[string]template{
	"ME21N": {
		name:           "Standard PO Creation",
		description:    "Create a standard purchase order with a known vendor and material",
		testData:       map[string]any{"vendor": "V12345", "material": "M67890", "quantity": 10, "plant": "1000"},
		expectedResult: "Purchase order created with document number",
		stepCount:      7,
	},
	"MIGO": {
		name:           "Goods Receipt",
		description:    "Post a goods receipt against an open purchase order",
		testData:       map[string]any{"po_number": "4500000123", "quantity": 10, "storage_location": "0001"},
		expectedResult: "Material document posted and stock updated",
		stepCount:      6,
	},
	"VA01": {
		name:           "Sales Order Creation",
		description:    "Create a sales order for an existing customer",
		testData:       map[string]any{"customer": "C10001", "material": "M67890", "quantity": 5},
		expectedResult: "Sales order saved with order number",
		stepCount:      8,
	},
	"FB60": {
		name:           "Invoice Entry",
		description:    "Enter a vendor invoice with tax calculation",
		testData:       map[string]any{"vendor": "V12345", "amount": 1500.00, "currency": "USD"},
		expectedResult: "Invoice document posted",
		stepCount:      6,
	},
	"MIRO": {
		name:           "Three Way Match",
		description:    "Verify invoice against purchase order and goods receipt",
		testData:       map[string]any{"po_number": "4500000123", "invoice_amount": 1500.00},
		expectedResult: "Invoice verified and released for payment",
		stepCount:      7,
	},
}

// Agent is the test generation agent.
type Agent struct {
	*framework.BaseAgent
}

// New constructs the agent with its dispatch table wired.
func New() *Agent {
	a := &Agent{
		BaseAgent: framework.NewBaseAgent("test_generation", "Test Generation Agent", []string{
			"test_case_generation",
			"test_data_creation",
			"validation_criteria",
			"coverage_analysis",
		}),
	}
	a.On("generate_tests", a.generateTests)
	return a
}

func (a *Agent) generateTests(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Transactions []string `json:"transactions"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid generate_tests payload"), nil
	}
	if len(req.Transactions) == 0 {
		return framework.ErrorPayload(a.ID(), "no transactions provided"), nil
	}

	var tests []GeneratedTest
	coverage := Coverage{TransactionsCovered: len(req.Transactions)}
	for _, code := range req.Transactions {
		generated := transactionTests(code)
		for _, t := range generated {
			switch t.TestType {
			case "functional":
				coverage.FunctionalTests++
			case "negative":
				coverage.NegativeTests++
			case "authorization":
				coverage.AuthorizationTests++
			}
		}
		tests = append(tests, generated...)
	}
	if len(req.Transactions) > 0 {
		covered := 0
		for _, code := range req.Transactions {
			if _, ok := templates[code]; ok {
				covered++
			}
		}
		coverage.CoveragePercent = float64(covered) / float64(len(req.Transactions)) * 100
	}

	totalMinutes := 0
	for _, t := range tests {
		totalMinutes += t.EstimatedMinutes
	}

	return messaging.NewPayload("test_suite_generated", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"test_suite": map[string]any{
			"test_cases":               tests,
			"total_tests":              len(tests),
			"coverage_metrics":         coverage,
			"estimated_execution_time": fmt.Sprintf("%d minutes", totalMinutes),
			"generated_at":             time.Now(),
			"executable_test_cases":    ExecutableCases(tests),
		},
	})
}

// transactionTests builds the positive, negative, and authorization variants
// for one transaction code.
func transactionTests(code string) []GeneratedTest {
	tpl, ok := templates[code]
	if !ok {
		return []GeneratedTest{{
			TestID:           uuid.New().String(),
			Name:             fmt.Sprintf("%s - Generic Functional Test", code),
			Description:      fmt.Sprintf("Verify basic %s functionality", code),
			TransactionCode:  code,
			TestType:         "functional",
			Priority:         "medium",
			TestData:         map[string]any{},
			ExpectedResult:   "Transaction completes successfully",
			EstimatedMinutes: 10,
			CreatedAt:        time.Now(),
		}}
	}

	return []GeneratedTest{
		{
			TestID:           uuid.New().String(),
			Name:             fmt.Sprintf("%s - %s", code, tpl.name),
			Description:      tpl.description,
			TransactionCode:  code,
			TestType:         "functional",
			Priority:         "high",
			TestData:         tpl.testData,
			ExpectedResult:   tpl.expectedResult,
			EstimatedMinutes: tpl.stepCount * 2,
			CreatedAt:        time.Now(),
		},
		{
			TestID:           uuid.New().String(),
			Name:             fmt.Sprintf("%s - Invalid Data Test", code),
			Description:      fmt.Sprintf("Test %s with invalid input data", code),
			TransactionCode:  code,
			TestType:         "negative",
			Priority:         "medium",
			TestData:         map[string]any{"invalid": true},
			ExpectedResult:   "Transaction rejects invalid input with a clear error",
			EstimatedMinutes: tpl.stepCount,
			CreatedAt:        time.Now(),
		},
		{
			TestID:           uuid.New().String(),
			Name:             fmt.Sprintf("%s - Authorization Test", code),
			Description:      fmt.Sprintf("Test %s with a user lacking the required authorization", code),
			TransactionCode:  code,
			TestType:         "authorization",
			Priority:         "medium",
			TestData:         map[string]any{"user": "NOAUTH_USER"},
			ExpectedResult:   "Transaction blocked with authorization error",
			EstimatedMinutes: tpl.stepCount,
			CreatedAt:        time.Now(),
		},
	}
}

// ExecutableCases converts generated tests into the simulator's input shape.
func ExecutableCases(tests []GeneratedTest) []domain.TestCase {
	cases := make([]domain.TestCase, 0, len(tests))
	for _, t := range tests {
		cases = append(cases, domain.TestCase{
			ID:              t.TestID,
			Name:            t.Name,
			TransactionCode: t.TransactionCode,
			TestData:        t.TestData,
		})
	}
	return cases
}
