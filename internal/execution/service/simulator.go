// Package service implements the test execution simulator: a bounded
// concurrency queue of simulated SAP transaction runs with randomized failure
// injection and auto-healing.
package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/astc-project/astc-backend/internal/execution/domain"
	"github.com/astc-project/astc-backend/internal/execution/knowledge"
)

// Config carries the simulator tunables.
type Config struct {
	MaxConcurrent int     // executions allowed in running state at once
	TimeScale     float64 // multiplier applied to simulated step delays
}

// Option customizes a Simulator at construction time.
type Option func(*Simulator)

// WithRand substitutes the randomness source.
func WithRand(r Rand) Option {
	return func(s *Simulator) { s.rand = r }
}

// WithSleeper substitutes the step-delay sleeper.
func WithSleeper(sl Sleeper) Option {
	return func(s *Simulator) { s.sleep = sl }
}

// Simulator owns the execution state machine. The mutex guards the active
// set, wait queue, history, and every TestExecution field observable through
// the read side; step internals are only ever mutated by the owning driver
// goroutine while holding the same lock.
type Simulator struct {
	kb            *knowledge.Base
	maxConcurrent int
	timeScale     float64
	rand          Rand
	sleep         Sleeper

	mu           sync.Mutex
	active       map[string]*domain.TestExecution // queued + running
	queue        []string                         // FIFO of queued execution ids
	runningCount int
	history      []*domain.TestExecution

	wg     sync.WaitGroup
	closed bool
}

func New(kb *knowledge.Base, cfg Config, opts ...Option) *Simulator {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 3
	}
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 0.1
	}
	s := &Simulator{
		kb:            kb,
		maxConcurrent: cfg.MaxConcurrent,
		timeScale:     cfg.TimeScale,
		rand:          newLockedRand(),
		sleep:         defaultSleeper,
		active:        make(map[string]*domain.TestExecution),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecutionReceipt is the submission acknowledgment for one execution.
type ExecutionReceipt struct {
	ExecutionID       string                 `json:"execution_id"`
	TestName          string                 `json:"test_name"`
	Status            domain.ExecutionStatus `json:"status"`
	EstimatedDuration string                 `json:"estimated_duration"`
}

// SuiteReceipt acknowledges a suite submission.
type SuiteReceipt struct {
	SuiteID    string             `json:"suite_id"`
	TotalTests int                `json:"total_tests"`
	Executions []ExecutionReceipt `json:"executions"`
}

// SubmitSuite creates executions for every test case, starting as many as the
// concurrency cap allows and queueing the rest in FIFO order.
func (s *Simulator) SubmitSuite(ctx context.Context, testCases []domain.TestCase) (*SuiteReceipt, error) {
	if len(testCases) == 0 {
		return nil, domain.ErrNoTestCases
	}

	suiteID := fmt.Sprintf("suite_%d", time.Now().UnixMilli())
	receipt := &SuiteReceipt{SuiteID: suiteID, TotalTests: len(testCases)}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tc := range testCases {
		exec := s.createExecutionLocked(tc)
		s.admitLocked(exec)
		receipt.Executions = append(receipt.Executions, ExecutionReceipt{
			ExecutionID:       exec.ExecutionID,
			TestName:          exec.TestName,
			Status:            exec.Status,
			EstimatedDuration: s.EstimateDuration(exec.Transaction),
		})
	}
	return receipt, nil
}

// SubmitSingle creates and admits one execution.
func (s *Simulator) SubmitSingle(ctx context.Context, tc domain.TestCase) (*ExecutionReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec := s.createExecutionLocked(tc)
	s.admitLocked(exec)
	return &ExecutionReceipt{
		ExecutionID:       exec.ExecutionID,
		TestName:          exec.TestName,
		Status:            exec.Status,
		EstimatedDuration: s.EstimateDuration(exec.Transaction),
	}, nil
}

func (s *Simulator) createExecutionLocked(tc domain.TestCase) *domain.TestExecution {
	transaction := tc.TransactionCode
	if transaction == "" {
		transaction = "ME21N"
	}
	testCaseID := tc.ID
	if testCaseID == "" {
		testCaseID = fmt.Sprintf("test_%d", 1000+s.rand.IntN(9000))
	}
	testName := tc.Name
	if testName == "" {
		testName = fmt.Sprintf("Test execution for %s", transaction)
	}

	descriptions := s.kb.Steps(transaction)
	steps := make([]*domain.ExecutionStep, len(descriptions))
	for i, description := range descriptions {
		steps[i] = &domain.ExecutionStep{
			StepNumber:  i + 1,
			Description: description,
			Status:      domain.StepPending,
		}
	}

	exec := &domain.TestExecution{
		ExecutionID: fmt.Sprintf("exec_%d_%03d", time.Now().UnixMilli(), 100+s.rand.IntN(900)),
		TestCaseID:  testCaseID,
		TestName:    testName,
		Transaction: transaction,
		Status:      domain.StatusQueued,
		StartTime:   time.Now(),
		TotalSteps:  len(steps),
		Steps:       steps,
		Environment: domain.DefaultEnvironment(),
	}
	s.active[exec.ExecutionID] = exec
	return exec
}

// admitLocked promotes the execution to running if capacity allows, otherwise
// appends it to the wait queue.
func (s *Simulator) admitLocked(exec *domain.TestExecution) {
	if s.closed {
		return
	}
	if s.runningCount < s.maxConcurrent {
		s.startLocked(exec)
	} else {
		s.queue = append(s.queue, exec.ExecutionID)
	}
}

func (s *Simulator) startLocked(exec *domain.TestExecution) {
	exec.Status = domain.StatusRunning
	exec.CurrentStep = 1
	s.runningCount++
	s.wg.Add(1)
	go s.drive(exec)
}

// drive runs one execution's step loop to completion. It is the only
// goroutine that mutates this execution's steps.
func (s *Simulator) drive(exec *domain.TestExecution) {
	defer s.wg.Done()
	ctx := context.Background()

	profile := s.kb.Profile(exec.Transaction)
	totalDuration := 0.0

	for i := 0; i < len(exec.Steps); i++ {
		s.mu.Lock()
		if exec.Status == domain.StatusCancelled {
			s.mu.Unlock()
			break
		}
		step := exec.Steps[i]
		exec.CurrentStep = i + 1
		now := time.Now()
		step.Status = domain.StepRunning
		step.StartTime = &now
		s.mu.Unlock()

		// Step duration from the transaction profile with random variance.
		stepTime := profile.BaseTime / float64(len(exec.Steps)) * (0.7 + s.rand.Float64()*1.1)
		s.sleep(ctx, scaledDelay(stepTime, s.timeScale))

		failed := s.shouldStepFail(profile, step.Description, i)

		s.mu.Lock()
		if failed {
			pattern := s.pickErrorPattern()
			step.Status = domain.StepFailed
			step.ErrorCode = pattern.ErrorCode
			step.ErrorMessage = s.kb.ErrorMessage(pattern.Name, exec.Transaction, step.Description)
			step.Details = pattern.Description

			healing := s.attemptAutoHealing(pattern)
			exec.AutoHealing = &healing
			if healing.Success {
				step.Status = domain.StepPassed
				step.Details += " | Auto-healed: " + healing.Action
			} else if exec.Status != domain.StatusCancelled {
				exec.Status = domain.StatusFailed
				exec.Result = domain.ResultFailed
			}
		} else {
			step.Status = domain.StepPassed
			step.Details = s.kb.SuccessDetails(exec.Transaction, step.Description)
		}

		end := time.Now()
		step.EndTime = &end
		step.DurationMs = int64(stepTime * 1000)
		step.Screenshot = fmt.Sprintf("%s_step_%d.png", exec.ExecutionID, i+1)
		totalDuration += stepTime

		stop := exec.Status == domain.StatusFailed || exec.Status == domain.StatusCancelled
		s.mu.Unlock()
		if stop {
			break
		}
	}

	s.finalize(exec, totalDuration)
}

// finalize resolves the terminal status, derives metrics and validations,
// moves the execution to history, and promotes the next queued execution.
func (s *Simulator) finalize(exec *domain.TestExecution, totalDuration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec.Status == domain.StatusRunning {
		exec.Status = domain.StatusCompleted
		exec.Result = domain.ResultPassed
	}
	if exec.EndTime == nil {
		now := time.Now()
		exec.EndTime = &now
	}
	exec.DurationSeconds = totalDuration

	if exec.Status != domain.StatusCancelled {
		exec.PerformanceMetrics = s.performanceMetricsLocked(exec, totalDuration)
		exec.Validations = s.validationsLocked(exec)
	}

	s.history = append(s.history, exec)
	delete(s.active, exec.ExecutionID)
	s.runningCount--
	s.promoteLocked()

	log.Printf("[executor] execution %s finished: status=%s result=%s steps=%d/%d",
		exec.ExecutionID, exec.Status, exec.Result, exec.CurrentStep, exec.TotalSteps)
}

// promoteLocked starts queued executions while capacity remains.
func (s *Simulator) promoteLocked() {
	for !s.closed && s.runningCount < s.maxConcurrent && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]
		exec, ok := s.active[id]
		if !ok || exec.Status != domain.StatusQueued {
			continue
		}
		s.startLocked(exec)
	}
}

func (s *Simulator) shouldStepFail(profile knowledge.TransactionProfile, description string, stepIndex int) bool {
	rate := profile.FailureRate
	if knowledge.CriticalStep(description) {
		rate *= 1.5
	} else {
		rate *= 0.5
	}
	// Login and navigation rarely fail.
	if stepIndex < 2 {
		rate *= 0.2
	}
	return s.rand.Float64() < rate
}

// pickErrorPattern draws a pattern weighted by frequency.
func (s *Simulator) pickErrorPattern() knowledge.ErrorPattern {
	total := 0.0
	for _, p := range s.kb.Patterns {
		total += p.Frequency
	}
	draw := s.rand.Float64() * total
	for _, p := range s.kb.Patterns {
		draw -= p.Frequency
		if draw < 0 {
			return p
		}
	}
	return s.kb.Patterns[len(s.kb.Patterns)-1]
}

// attemptAutoHealing tries the pattern's strategies in descending success
// rate order; the first winning draw is adopted. Exactly one attempt sequence
// runs per failed step.
func (s *Simulator) attemptAutoHealing(pattern knowledge.ErrorPattern) domain.AutoHealing {
	strategies := make([]knowledge.HealingStrategy, len(pattern.Strategies))
	copy(strategies, pattern.Strategies)
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].SuccessRate > strategies[j].SuccessRate
	})

	for _, strategy := range strategies {
		if s.rand.Float64() < strategy.SuccessRate {
			return domain.AutoHealing{
				Success:      true,
				Action:       strategy.Action,
				Pattern:      pattern.Name,
				Analysis:     fmt.Sprintf("Auto-healing successful using %s", strategy.Action),
				RootCause:    pattern.Description,
				RetryResult:  "success",
				RetryDetails: fmt.Sprintf("Automatically resolved %s by applying %s", pattern.Name, strategy.Action),
				Recommendations: []domain.HealingRecommendation{{
					Action:              strategy.Action,
					Priority:            "high",
					EstimatedFixTime:    "30 seconds",
					AutomationAvailable: true,
				}},
			}
		}
	}

	return domain.AutoHealing{
		Success:      false,
		Action:       "manual_intervention_required",
		Pattern:      pattern.Name,
		Analysis:     fmt.Sprintf("Auto-healing failed for %s", pattern.Name),
		RootCause:    pattern.Description,
		RetryResult:  "failed",
		RetryDetails: "All automated healing strategies failed",
		Recommendations: []domain.HealingRecommendation{{
			Action:              "manual_investigation_required",
			Priority:            "high",
			EstimatedFixTime:    "10 minutes",
			AutomationAvailable: false,
		}},
	}
}

func (s *Simulator) performanceMetricsLocked(exec *domain.TestExecution, totalDuration float64) *domain.PerformanceMetrics {
	var durations []int64
	for _, step := range exec.Steps {
		if step.DurationMs > 0 {
			durations = append(durations, step.DurationMs)
		}
	}
	if len(durations) == 0 {
		return nil
	}

	var sum, max, min int64
	min = durations[0]
	for _, d := range durations {
		sum += d
		if d > max {
			max = d
		}
		if d < min {
			min = d
		}
	}

	return &domain.PerformanceMetrics{
		TotalDuration:    totalDuration,
		ResponseTimeAvg:  sum / int64(len(durations)),
		ResponseTimeMax:  max,
		ResponseTimeMin:  min,
		CPUUsageAvg:      10 + s.rand.Float64()*15,
		MemoryUsageMB:    180 + s.rand.IntN(121),
		NetworkLatencyMs: 15 + s.rand.IntN(36),
	}
}

func (s *Simulator) validationsLocked(exec *domain.TestExecution) []domain.ValidationResult {
	validations := s.kb.Validations(exec.Transaction, exec.Result == domain.ResultPassed)
	if exec.Result == domain.ResultFailed {
		// The completion validation stays as computed; later ones may be
		// dragged down by the failure.
		for i := 1; i < len(validations); i++ {
			if s.rand.Float64() < 0.4 {
				validations[i].Status = "failed"
				validations[i].Actual = "Failed due to execution error"
			}
		}
	}
	return validations
}

// ExecutionStatus returns a snapshot of one execution, active or historical.
func (s *Simulator) ExecutionStatus(executionID string) (*domain.TestExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec, ok := s.active[executionID]; ok {
		return copyExecution(exec), nil
	}
	for _, exec := range s.history {
		if exec.ExecutionID == executionID {
			return copyExecution(exec), nil
		}
	}
	return nil, domain.ErrExecutionNotFound
}

// Cancel removes a queued execution from the wait queue, or marks a running
// execution cancelled; the driver honors the flag before its next step.
func (s *Simulator) Cancel(executionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.queue {
		if id != executionID {
			continue
		}
		s.queue = append(s.queue[:i], s.queue[i+1:]...)
		exec := s.active[executionID]
		if exec != nil {
			now := time.Now()
			exec.Status = domain.StatusCancelled
			exec.Result = domain.ResultSkipped
			exec.EndTime = &now
			s.history = append(s.history, exec)
			delete(s.active, executionID)
		}
		return fmt.Sprintf("Execution %s removed from queue", executionID), nil
	}

	if exec, ok := s.active[executionID]; ok && exec.Status == domain.StatusRunning {
		now := time.Now()
		exec.Status = domain.StatusCancelled
		exec.Result = domain.ResultSkipped
		exec.EndTime = &now
		return fmt.Sprintf("Execution %s cancelled", executionID), nil
	}

	return "", domain.ErrNotCancellable
}

// ActiveCount returns the number of running executions.
func (s *Simulator) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningCount
}

// QueueLength returns the number of executions waiting for capacity.
func (s *Simulator) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// EstimateDuration renders the expected wall-clock range for a transaction.
func (s *Simulator) EstimateDuration(transaction string) string {
	profile := s.kb.Profile(transaction)
	return fmt.Sprintf("%d-%d seconds", int(profile.BaseTime*0.8), int(profile.BaseTime*1.5))
}

// Close stops admission and waits for running drivers to finish.
func (s *Simulator) Close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	s.wg.Wait()
}

func scaledDelay(stepTimeSeconds, scale float64) time.Duration {
	seconds := stepTimeSeconds * scale
	if seconds < 0.1 {
		seconds = 0.1
	}
	if seconds > 2.0 {
		seconds = 2.0
	}
	return time.Duration(seconds * float64(time.Second))
}

func copyExecution(exec *domain.TestExecution) *domain.TestExecution {
	dup := *exec
	dup.Steps = make([]*domain.ExecutionStep, len(exec.Steps))
	for i, step := range exec.Steps {
		stepCopy := *step
		dup.Steps[i] = &stepCopy
	}
	if exec.PerformanceMetrics != nil {
		metrics := *exec.PerformanceMetrics
		dup.PerformanceMetrics = &metrics
	}
	if exec.AutoHealing != nil {
		healing := *exec.AutoHealing
		dup.AutoHealing = &healing
	}
	dup.Validations = append([]domain.ValidationResult(nil), exec.Validations...)
	return &dup
}

// search helper shared by the read side.
func (s *Simulator) findLocked(executionID string) *domain.TestExecution {
	if exec, ok := s.active[executionID]; ok {
		return exec
	}
	for _, exec := range s.history {
		if exec.ExecutionID == executionID {
			return exec
		}
	}
	return nil
}
