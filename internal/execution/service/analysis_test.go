package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astc-project/astc-backend/internal/execution/domain"
)

func runToCompletion(t *testing.T, s *Simulator, tc domain.TestCase) *domain.TestExecution {
	t.Helper()
	receipt, err := s.SubmitSingle(context.Background(), tc)
	require.NoError(t, err)
	return waitTerminal(t, s, receipt.ExecutionID)
}

func TestHistoryReport(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{
		// First execution fails on its first step with healing exhausted;
		// the second runs clean.
		floats:   []float64{0.5, 0.0, 0.0, 0.99, 0.99, 0.99},
		fallback: 0.99,
	})

	failed := runToCompletion(t, s, domain.TestCase{TransactionCode: "MIGO"})
	passed := runToCompletion(t, s, domain.TestCase{TransactionCode: "ME28"})
	require.Equal(t, domain.ResultFailed, failed.Result)
	require.Equal(t, domain.ResultPassed, passed.Result)

	report := s.History(50)

	t.Run("summary stats", func(t *testing.T) {
		stats := report.SummaryStats
		assert.Equal(t, 2, stats.TotalExecutions)
		assert.Equal(t, 1, stats.Passed)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 0, stats.InProgress)
		assert.InDelta(t, 50.0, stats.SuccessRate, 0.0001)
		assert.Greater(t, stats.AverageDuration, 0.0)
		// One healing attempt happened and it failed.
		assert.InDelta(t, 0.0, stats.AutoHealingSuccessRate, 0.0001)
	})

	t.Run("limit trims from the oldest end", func(t *testing.T) {
		trimmed := s.History(1)
		require.Len(t, trimmed.Executions, 1)
		assert.Equal(t, passed.ExecutionID, trimmed.Executions[0].ExecutionID)
		assert.Equal(t, 2, trimmed.SummaryStats.TotalExecutions)
	})

	t.Run("real time monitoring", func(t *testing.T) {
		mon := report.RealTimeMonitoring
		assert.Equal(t, 0, mon.ActiveExecutions)
		assert.Equal(t, 0, mon.QueueLength)
		assert.Equal(t, "good", mon.SystemHealth)
		assert.GreaterOrEqual(t, mon.ResourceUsage.CPUPercent, 15.0)
		assert.LessOrEqual(t, mon.ResourceUsage.CPUPercent, 35.0)
	})
}

func TestAnalyzeResults_NotFound(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})
	_, err := s.AnalyzeResults("exec_missing")
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

func TestAnalyzeResults_PassedExecution(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})
	exec := runToCompletion(t, s, domain.TestCase{TransactionCode: "MIGO"})

	analysis, err := s.AnalyzeResults(exec.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, exec.ExecutionID, analysis.ExecutionID)
	assert.Equal(t, "passed", analysis.Result)

	t.Run("performance ratings", func(t *testing.T) {
		perf := analysis.PerformanceAnalysis
		// Step times around 4.9s land in the good response bucket; the
		// scripted CPU draw lands just above the excellent threshold.
		assert.Equal(t, "good", perf.ResponseTimeRating)
		assert.Equal(t, "acceptable", perf.CPUUsageRating)
		assert.Equal(t, "excellent", perf.MemoryUsageRating)
		assert.Equal(t, "acceptable", perf.OverallRating)
	})

	t.Run("quality metrics", func(t *testing.T) {
		qm := analysis.QualityMetrics
		assert.Equal(t, 11, qm.TotalSteps)
		assert.Equal(t, 11, qm.PassedSteps)
		assert.InDelta(t, 100.0, qm.StepSuccessRate, 0.0001)
		assert.InDelta(t, 100.0, qm.ValidationSuccessRate, 0.0001)
		assert.False(t, qm.AutoHealingApplied)
	})

	t.Run("low risk", func(t *testing.T) {
		risk := analysis.RiskAssessment
		assert.Equal(t, "low", risk.RiskLevel)
		assert.Equal(t, 0, risk.RiskScore)
		assert.False(t, risk.MitigationRequired)
	})

	t.Run("slow steps trigger a performance recommendation", func(t *testing.T) {
		categories := make([]string, 0, len(analysis.ImprovementRecommendations))
		for _, rec := range analysis.ImprovementRecommendations {
			categories = append(categories, rec.Category)
		}
		assert.Contains(t, categories, "performance")
	})
}

func TestAnalyzeResults_HighRiskExecution(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})
	// VA01 combines high complexity, a failure rate above 0.2, and long step
	// times, which together cross the high risk threshold.
	exec := runToCompletion(t, s, domain.TestCase{TransactionCode: "VA01"})

	analysis, err := s.AnalyzeResults(exec.ExecutionID)
	require.NoError(t, err)

	risk := analysis.RiskAssessment
	assert.Equal(t, "high", risk.RiskLevel)
	assert.Equal(t, 7, risk.RiskScore)
	assert.True(t, risk.MitigationRequired)
	assert.Len(t, risk.RiskFactors, 3)
}

func TestAnalyzeResults_FailedHealing(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{
		floats:   []float64{0.5, 0.0, 0.0, 0.99, 0.99, 0.99},
		fallback: 0.99,
	})
	exec := runToCompletion(t, s, domain.TestCase{TransactionCode: "MIGO"})
	require.Equal(t, domain.ResultFailed, exec.Result)

	analysis, err := s.AnalyzeResults(exec.ExecutionID)
	require.NoError(t, err)

	t.Run("quality reflects the failure", func(t *testing.T) {
		qm := analysis.QualityMetrics
		assert.Equal(t, 1, qm.FailedSteps)
		assert.True(t, qm.AutoHealingApplied)
		assert.False(t, qm.AutoHealingSuccess)
	})

	t.Run("reliability and automation recommendations", func(t *testing.T) {
		categories := make(map[string]bool)
		for _, rec := range analysis.ImprovementRecommendations {
			categories[rec.Category] = true
		}
		assert.True(t, categories["reliability"])
		assert.True(t, categories["automation"])
	})

	t.Run("failed healing contributes to risk", func(t *testing.T) {
		assert.GreaterOrEqual(t, analysis.RiskAssessment.RiskScore, 1)
	})
}
