// Package domain defines the execution model for simulated SAP transaction tests.
package domain

import "time"

// ExecutionStatus is the lifecycle state of a test execution.
type ExecutionStatus string

const (
	StatusQueued    ExecutionStatus = "queued"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TestResult is the outcome of a finished execution. It is empty while the
// execution is queued or running.
type TestResult string

const (
	ResultPassed  TestResult = "passed"
	ResultFailed  TestResult = "failed"
	ResultSkipped TestResult = "skipped"
	ResultError   TestResult = "error"
)

// StepStatus tracks an individual execution step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
)

// TestCase is the submitted unit of work, usually produced by the test
// generation agent.
type TestCase struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	TransactionCode string         `json:"transaction_code"`
	TestData        map[string]any `json:"test_data,omitempty"`
}

// ExecutionStep is one step of a simulated transaction run. Steps are created
// up front from the transaction's template and mutated in place as the
// execution proceeds.
type ExecutionStep struct {
	StepNumber   int        `json:"step"`
	Description  string     `json:"description"`
	Status       StepStatus `json:"status"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	DurationMs   int64      `json:"duration_ms,omitempty"`
	Details      string     `json:"details,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	Screenshot   string     `json:"screenshot,omitempty"`
}

// ValidationResult is one post-execution validation outcome.
type ValidationResult struct {
	Validation string `json:"validation"`
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
	Status     string `json:"status"`
}

// HealingRecommendation describes a remediation proposed by auto-healing.
type HealingRecommendation struct {
	Action              string `json:"action"`
	Priority            string `json:"priority"`
	EstimatedFixTime    string `json:"estimated_fix_time"`
	AutomationAvailable bool   `json:"automation_available"`
}

// AutoHealing records the outcome of one healing attempt sequence.
type AutoHealing struct {
	Success         bool                    `json:"success"`
	Action          string                  `json:"action"`
	Pattern         string                  `json:"pattern"`
	Analysis        string                  `json:"analysis"`
	RootCause       string                  `json:"root_cause"`
	RetryResult     string                  `json:"auto_retry_result"`
	RetryDetails    string                  `json:"auto_retry_details"`
	Recommendations []HealingRecommendation `json:"recommendations"`
}

// PerformanceMetrics holds timing and synthetic resource figures derived from
// the recorded step durations.
type PerformanceMetrics struct {
	TotalDuration    float64 `json:"total_duration"`
	ResponseTimeAvg  int64   `json:"response_time_avg"`
	ResponseTimeMax  int64   `json:"response_time_max"`
	ResponseTimeMin  int64   `json:"response_time_min"`
	CPUUsageAvg      float64 `json:"cpu_usage_avg"`
	MemoryUsageMB    int     `json:"memory_usage_mb"`
	NetworkLatencyMs int     `json:"network_latency_ms"`
}

// Environment describes the simulated SAP system the test ran against.
type Environment struct {
	System       string `json:"system"`
	Client       string `json:"client"`
	Server       string `json:"server"`
	ResponseTime string `json:"response_time"`
}

// DefaultEnvironment is the environment attached to every execution.
func DefaultEnvironment() Environment {
	return Environment{
		System:       "SAP ECC 6.0",
		Client:       "100",
		Server:       "SAPDEV01",
		ResponseTime: "Good",
	}
}

// TestExecution represents one simulated run of a test case.
//
// Invariants: CurrentStep never exceeds TotalSteps; Result is set exactly when
// Status is terminal; EndTime is set exactly when Status is terminal.
type TestExecution struct {
	ExecutionID        string              `json:"execution_id"`
	TestCaseID         string              `json:"test_case_id"`
	TestName           string              `json:"test_name"`
	Transaction        string              `json:"transaction"`
	Status             ExecutionStatus     `json:"status"`
	Result             TestResult          `json:"result,omitempty"`
	StartTime          time.Time           `json:"start_time"`
	EndTime            *time.Time          `json:"end_time,omitempty"`
	DurationSeconds    float64             `json:"duration_seconds,omitempty"`
	CurrentStep        int                 `json:"current_step"`
	TotalSteps         int                 `json:"total_steps"`
	Steps              []*ExecutionStep    `json:"execution_steps"`
	PerformanceMetrics *PerformanceMetrics `json:"performance_metrics,omitempty"`
	Validations        []ValidationResult  `json:"validations"`
	AutoHealing        *AutoHealing        `json:"auto_healing,omitempty"`
	Environment        Environment         `json:"environment"`
}
