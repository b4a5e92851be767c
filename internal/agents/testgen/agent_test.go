package testgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

func generate(t *testing.T, body any) messaging.Payload {
	t.Helper()
	payload, err := messaging.NewPayload("generate_tests", body)
	require.NoError(t, err)

	resp, err := New().Handle(context.Background(), messaging.NewMessage("orchestrator", "test_generation", payload))
	require.NoError(t, err)
	return resp
}

type suiteResponse struct {
	Status    string `json:"status"`
	TestSuite struct {
		TestCases       []GeneratedTest `json:"test_cases"`
		TotalTests      int             `json:"total_tests"`
		CoverageMetrics Coverage        `json:"coverage_metrics"`
		EstimatedTime   string          `json:"estimated_execution_time"`
		ExecutableCases []struct {
			ID              string `json:"id"`
			TransactionCode string `json:"transaction_code"`
		} `json:"executable_test_cases"`
	} `json:"test_suite"`
}

func TestGenerateTests_KnownTransaction(t *testing.T) {
	resp := generate(t, map[string]any{"transactions": []string{"ME21N"}})
	require.Equal(t, "test_suite_generated", resp.Kind)

	var body suiteResponse
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "success", body.Status)
	require.Equal(t, 3, body.TestSuite.TotalTests)

	types := make(map[string]GeneratedTest)
	for _, tc := range body.TestSuite.TestCases {
		types[tc.TestType] = tc
	}
	require.Contains(t, types, "functional")
	require.Contains(t, types, "negative")
	require.Contains(t, types, "authorization")

	functional := types["functional"]
	assert.Equal(t, "ME21N - Standard PO Creation", functional.Name)
	assert.Equal(t, "high", functional.Priority)
	assert.Equal(t, 14, functional.EstimatedMinutes)
	assert.Equal(t, "V12345", functional.TestData["vendor"])

	coverage := body.TestSuite.CoverageMetrics
	assert.Equal(t, 1, coverage.TransactionsCovered)
	assert.Equal(t, 1, coverage.FunctionalTests)
	assert.Equal(t, 1, coverage.NegativeTests)
	assert.Equal(t, 1, coverage.AuthorizationTests)
	assert.InDelta(t, 100.0, coverage.CoveragePercent, 0.0001)

	assert.Equal(t, "28 minutes", body.TestSuite.EstimatedTime)
}

func TestGenerateTests_UnknownTransaction(t *testing.T) {
	resp := generate(t, map[string]any{"transactions": []string{"ZZ99"}})

	var body suiteResponse
	require.NoError(t, resp.Decode(&body))
	require.Equal(t, 1, body.TestSuite.TotalTests)

	generic := body.TestSuite.TestCases[0]
	assert.Equal(t, "functional", generic.TestType)
	assert.Equal(t, "ZZ99 - Generic Functional Test", generic.Name)
	assert.Equal(t, 10, generic.EstimatedMinutes)
	assert.InDelta(t, 0.0, body.TestSuite.CoverageMetrics.CoveragePercent, 0.0001)
}

func TestGenerateTests_MixedSuite(t *testing.T) {
	resp := generate(t, map[string]any{"transactions": []string{"MIGO", "VA01", "ZZ99"}})

	var body suiteResponse
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, 7, body.TestSuite.TotalTests)
	assert.Equal(t, 3, body.TestSuite.CoverageMetrics.TransactionsCovered)
	assert.InDelta(t, 66.6666, body.TestSuite.CoverageMetrics.CoveragePercent, 0.001)

	require.Len(t, body.TestSuite.ExecutableCases, 7)
	for i, tc := range body.TestSuite.ExecutableCases {
		assert.NotEmpty(t, tc.ID)
		assert.Equal(t, body.TestSuite.TestCases[i].TransactionCode, tc.TransactionCode)
	}
}

func TestGenerateTests_NoTransactions(t *testing.T) {
	resp := generate(t, map[string]any{"transactions": []string{}})
	assert.Equal(t, "error", resp.Kind)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "no transactions provided", body.Error)
}

func TestExecutableCases(t *testing.T) {
	cases := ExecutableCases(transactionTests("FB60"))
	require.Len(t, cases, 3)
	for _, tc := range cases {
		assert.Equal(t, "FB60", tc.TransactionCode)
		assert.NotEmpty(t, tc.ID)
		assert.NotEmpty(t, tc.Name)
	}
}
