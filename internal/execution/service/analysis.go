package service

import (
	"github.com/astc-project/astc-backend/internal/execution/domain"
	"github.com/astc-project/astc-backend/internal/execution/knowledge"
)

// SummaryStats aggregates the execution history.
type SummaryStats struct {
	TotalExecutions        int     `json:"total_executions"`
	Passed                 int     `json:"passed"`
	Failed                 int     `json:"failed"`
	InProgress             int     `json:"in_progress"`
	SuccessRate            float64 `json:"success_rate"`
	AverageDuration        float64 `json:"average_duration"`
	AutoHealingSuccessRate float64 `json:"auto_healing_success_rate"`
}

// ResourceUsage carries the synthetic system figures for the dashboard.
type ResourceUsage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskIOPercent float64 `json:"disk_io_percent"`
}

// RealTimeMonitoring snapshots the simulator's live load.
type RealTimeMonitoring struct {
	ActiveExecutions int           `json:"active_executions"`
	QueueLength      int           `json:"queue_length"`
	SystemHealth     string        `json:"system_health"`
	ResourceUsage    ResourceUsage `json:"resource_usage"`
}

// HistoryReport is the full history response.
type HistoryReport struct {
	Executions         []*domain.TestExecution `json:"executions"`
	SummaryStats       SummaryStats            `json:"summary_stats"`
	RealTimeMonitoring RealTimeMonitoring      `json:"real_time_monitoring"`
}

// History returns the most recent executions plus aggregate statistics.
func (s *Simulator) History(limit int) *HistoryReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	start := len(s.history) - limit
	if start < 0 {
		start = 0
	}
	recent := make([]*domain.TestExecution, 0, len(s.history)-start)
	for _, exec := range s.history[start:] {
		recent = append(recent, copyExecution(exec))
	}

	stats := SummaryStats{
		TotalExecutions: len(s.history),
		InProgress:      len(s.active),
	}
	var durationSum float64
	var durationCount int
	var healingAttempts, healingSuccesses int
	for _, exec := range s.history {
		switch exec.Result {
		case domain.ResultPassed:
			stats.Passed++
		case domain.ResultFailed:
			stats.Failed++
		}
		if exec.DurationSeconds > 0 {
			durationSum += exec.DurationSeconds
			durationCount++
		}
		if exec.AutoHealing != nil {
			healingAttempts++
			if exec.AutoHealing.Success {
				healingSuccesses++
			}
		}
	}
	if stats.TotalExecutions > 0 {
		stats.SuccessRate = float64(stats.Passed) / float64(stats.TotalExecutions) * 100
	}
	if durationCount > 0 {
		stats.AverageDuration = durationSum / float64(durationCount)
	}
	if healingAttempts > 0 {
		stats.AutoHealingSuccessRate = float64(healingSuccesses) / float64(healingAttempts) * 100
	}

	return &HistoryReport{
		Executions:   recent,
		SummaryStats: stats,
		RealTimeMonitoring: RealTimeMonitoring{
			ActiveExecutions: s.runningCount,
			QueueLength:      len(s.queue),
			SystemHealth:     "good",
			ResourceUsage: ResourceUsage{
				CPUPercent:    15 + s.rand.Float64()*20,
				MemoryPercent: 25 + s.rand.Float64()*30,
				DiskIOPercent: 5 + s.rand.Float64()*20,
			},
		},
	}
}

// PerformanceAnalysis buckets the observed metrics into ratings.
type PerformanceAnalysis struct {
	OverallRating      string                     `json:"overall_rating"`
	ResponseTimeRating string                     `json:"response_time_rating"`
	CPUUsageRating     string                     `json:"cpu_usage_rating"`
	MemoryUsageRating  string                     `json:"memory_usage_rating"`
	Metrics            *domain.PerformanceMetrics `json:"metrics,omitempty"`
}

// QualityMetrics summarizes step and validation outcomes.
type QualityMetrics struct {
	StepSuccessRate       float64 `json:"step_success_rate"`
	ValidationSuccessRate float64 `json:"validation_success_rate"`
	TotalSteps            int     `json:"total_steps"`
	PassedSteps           int     `json:"passed_steps"`
	FailedSteps           int     `json:"failed_steps"`
	AutoHealingApplied    bool    `json:"auto_healing_applied"`
	AutoHealingSuccess    bool    `json:"auto_healing_success"`
}

// Recommendation is one improvement suggestion derived from thresholds.
type Recommendation struct {
	Category             string `json:"category"`
	Priority             string `json:"priority"`
	Recommendation       string `json:"recommendation"`
	PotentialImprovement string `json:"potential_improvement"`
}

// RiskAssessment is the weighted risk score for an execution.
type RiskAssessment struct {
	RiskLevel          string   `json:"risk_level"`
	RiskScore          int      `json:"risk_score"`
	RiskFactors        []string `json:"risk_factors"`
	MitigationRequired bool     `json:"mitigation_required"`
}

// Analysis is the full result of AnalyzeResults.
type Analysis struct {
	ExecutionID                string                 `json:"execution_id"`
	OverallStatus              domain.ExecutionStatus `json:"overall_status"`
	Result                     string                 `json:"result"`
	PerformanceAnalysis        PerformanceAnalysis    `json:"performance_analysis"`
	QualityMetrics             QualityMetrics         `json:"quality_metrics"`
	ImprovementRecommendations []Recommendation       `json:"improvement_recommendations"`
	RiskAssessment             RiskAssessment         `json:"risk_assessment"`
}

// AnalyzeResults inspects one execution and derives ratings, quality metrics,
// recommendations, and a risk score.
func (s *Simulator) AnalyzeResults(executionID string) (*Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec := s.findLocked(executionID)
	if exec == nil {
		return nil, domain.ErrExecutionNotFound
	}

	result := "in_progress"
	if exec.Result != "" {
		result = string(exec.Result)
	}

	return &Analysis{
		ExecutionID:                executionID,
		OverallStatus:              exec.Status,
		Result:                     result,
		PerformanceAnalysis:        analyzePerformance(exec),
		QualityMetrics:             calculateQualityMetrics(exec),
		ImprovementRecommendations: recommendations(exec),
		RiskAssessment:             s.assessRisk(exec),
	}, nil
}

var ratingRank = map[string]int{"excellent": 0, "good": 1, "acceptable": 2, "high": 3, "poor": 3}

func analyzePerformance(exec *domain.TestExecution) PerformanceAnalysis {
	metrics := exec.PerformanceMetrics
	if metrics == nil {
		return PerformanceAnalysis{OverallRating: "no_metrics_available"}
	}

	response := "poor"
	switch {
	case metrics.ResponseTimeAvg <= 2000:
		response = "excellent"
	case metrics.ResponseTimeAvg <= 5000:
		response = "good"
	}

	cpu := "high"
	switch {
	case metrics.CPUUsageAvg <= 20:
		cpu = "excellent"
	case metrics.CPUUsageAvg <= 50:
		cpu = "acceptable"
	}

	memory := "high"
	switch {
	case metrics.MemoryUsageMB <= 200:
		memory = "excellent"
	case metrics.MemoryUsageMB <= 400:
		memory = "acceptable"
	}

	overall := response
	for _, rating := range []string{cpu, memory} {
		if ratingRank[rating] > ratingRank[overall] {
			overall = rating
		}
	}

	return PerformanceAnalysis{
		OverallRating:      overall,
		ResponseTimeRating: response,
		CPUUsageRating:     cpu,
		MemoryUsageRating:  memory,
		Metrics:            metrics,
	}
}

func calculateQualityMetrics(exec *domain.TestExecution) QualityMetrics {
	qm := QualityMetrics{TotalSteps: len(exec.Steps)}
	for _, step := range exec.Steps {
		switch step.Status {
		case domain.StepPassed:
			qm.PassedSteps++
		case domain.StepFailed:
			qm.FailedSteps++
		}
	}
	if qm.TotalSteps > 0 {
		qm.StepSuccessRate = float64(qm.PassedSteps) / float64(qm.TotalSteps) * 100
	}

	passedValidations := 0
	for _, v := range exec.Validations {
		if v.Status == "passed" {
			passedValidations++
		}
	}
	if len(exec.Validations) > 0 {
		qm.ValidationSuccessRate = float64(passedValidations) / float64(len(exec.Validations)) * 100
	}

	if exec.AutoHealing != nil {
		qm.AutoHealingApplied = true
		qm.AutoHealingSuccess = exec.AutoHealing.Success
	}
	return qm
}

func recommendations(exec *domain.TestExecution) []Recommendation {
	var recs []Recommendation

	if exec.PerformanceMetrics != nil && exec.PerformanceMetrics.ResponseTimeAvg > 3000 {
		recs = append(recs, Recommendation{
			Category:             "performance",
			Priority:             "medium",
			Recommendation:       "Consider optimizing transaction data entry to reduce response times",
			PotentialImprovement: "20-30% faster execution",
		})
	}

	for _, step := range exec.Steps {
		if step.Status == domain.StepFailed {
			recs = append(recs, Recommendation{
				Category:             "reliability",
				Priority:             "high",
				Recommendation:       "Implement pre-validation checks for transaction data",
				PotentialImprovement: "50% reduction in execution failures",
			})
			break
		}
	}

	if exec.AutoHealing != nil && !exec.AutoHealing.Success {
		recs = append(recs, Recommendation{
			Category:             "automation",
			Priority:             "high",
			Recommendation:       "Enhance auto-healing strategies for detected error patterns",
			PotentialImprovement: "Automated resolution of similar issues",
		})
	}
	return recs
}

func (s *Simulator) assessRisk(exec *domain.TestExecution) RiskAssessment {
	var factors []string
	score := 0

	profile := s.kb.Profile(exec.Transaction)
	if profile.Complexity == knowledge.ComplexityHigh {
		factors = append(factors, "High transaction complexity")
		score += 3
	}
	if profile.FailureRate > 0.2 {
		factors = append(factors, "High historical failure rate")
		score += 2
	}
	if exec.PerformanceMetrics != nil && exec.PerformanceMetrics.ResponseTimeAvg > 5000 {
		factors = append(factors, "Poor response time performance")
		score += 2
	}
	if exec.AutoHealing != nil && !exec.AutoHealing.Success {
		factors = append(factors, "Auto-healing failures detected")
		score++
	}

	level := "low"
	switch {
	case score >= 6:
		level = "high"
	case score >= 3:
		level = "medium"
	}

	return RiskAssessment{
		RiskLevel:          level,
		RiskScore:          score,
		RiskFactors:        factors,
		MitigationRequired: score >= 3,
	}
}
