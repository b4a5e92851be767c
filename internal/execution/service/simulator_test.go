package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astc-project/astc-backend/internal/execution/domain"
	"github.com/astc-project/astc-backend/internal/execution/knowledge"
)

// scriptRand replays a scripted sequence of Float64 draws, then falls back to
// a constant. IntN always returns zero so generated ids stay deterministic.
type scriptRand struct {
	mu       sync.Mutex
	floats   []float64
	fallback float64
}

func (r *scriptRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) > 0 {
		v := r.floats[0]
		r.floats = r.floats[1:]
		return v
	}
	return r.fallback
}

func (r *scriptRand) IntN(int) int { return 0 }

func noSleep(context.Context, time.Duration) {}

func newTestSimulator(t *testing.T, rand Rand, opts ...Option) *Simulator {
	t.Helper()
	all := append([]Option{WithRand(rand), WithSleeper(noSleep)}, opts...)
	s := New(knowledge.Default(), Config{MaxConcurrent: 3, TimeScale: 0.001}, all...)
	t.Cleanup(s.Close)
	return s
}

func waitTerminal(t *testing.T, s *Simulator, executionID string) *domain.TestExecution {
	t.Helper()
	require.Eventually(t, func() bool {
		exec, err := s.ExecutionStatus(executionID)
		return err == nil && exec.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	// Wait for finalize to land the execution in history.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		_, active := s.active[executionID]
		s.mu.Unlock()
		return !active
	}, 5*time.Second, 10*time.Millisecond)

	exec, err := s.ExecutionStatus(executionID)
	require.NoError(t, err)
	return exec
}

func TestSimulator_AllStepsPass(t *testing.T) {
	// A constant 0.99 draw never crosses any failure rate.
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{
		ID:              "tc-1",
		Name:            "MIGO happy path",
		TransactionCode: "MIGO",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, receipt.Status)

	exec := waitTerminal(t, s, receipt.ExecutionID)
	assert.Equal(t, domain.StatusCompleted, exec.Status)
	assert.Equal(t, domain.ResultPassed, exec.Result)
	require.NotNil(t, exec.EndTime)
	require.NotNil(t, exec.PerformanceMetrics)
	assert.Nil(t, exec.AutoHealing)

	t.Run("all steps passed in order", func(t *testing.T) {
		require.Len(t, exec.Steps, 11)
		for i, step := range exec.Steps {
			assert.Equal(t, i+1, step.StepNumber)
			assert.Equal(t, domain.StepPassed, step.Status)
			assert.NotEmpty(t, step.Details)
			assert.NotEmpty(t, step.Screenshot)
		}
	})

	t.Run("step intervals do not overlap", func(t *testing.T) {
		for i, step := range exec.Steps {
			require.NotNil(t, step.StartTime)
			require.NotNil(t, step.EndTime)
			assert.False(t, step.EndTime.Before(*step.StartTime))
			if i > 0 {
				prev := exec.Steps[i-1]
				assert.False(t, step.StartTime.Before(*prev.EndTime),
					"step %d started before step %d finished", i+1, i)
			}
		}
	})

	t.Run("validations pass", func(t *testing.T) {
		require.NotEmpty(t, exec.Validations)
		for _, v := range exec.Validations {
			assert.Equal(t, "passed", v.Status)
		}
	})
}

func TestSimulator_AutoHealingSuccess(t *testing.T) {
	// First step: variance draw, then a failing step draw, then the error
	// pattern draw selects approval_timeout, then the first (highest success
	// rate) healing strategy wins. Everything after runs clean.
	s := newTestSimulator(t, &scriptRand{
		floats:   []float64{0.5, 0.0, 0.0, 0.0},
		fallback: 0.99,
	})

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{TransactionCode: "MIGO"})
	require.NoError(t, err)

	exec := waitTerminal(t, s, receipt.ExecutionID)
	assert.Equal(t, domain.StatusCompleted, exec.Status)
	assert.Equal(t, domain.ResultPassed, exec.Result)

	require.NotNil(t, exec.AutoHealing)
	assert.True(t, exec.AutoHealing.Success)
	assert.Equal(t, "approval_timeout", exec.AutoHealing.Pattern)
	assert.Equal(t, "use_emergency_approval", exec.AutoHealing.Action)

	healed := exec.Steps[0]
	assert.Equal(t, domain.StepPassed, healed.Status)
	assert.Equal(t, "ME_APPROVAL_TIMEOUT", healed.ErrorCode)
	assert.Contains(t, healed.Details, "Auto-healed: use_emergency_approval")
}

func TestSimulator_AutoHealingFailure(t *testing.T) {
	// The failing step draws approval_timeout and all three healing
	// strategies miss, so the execution fails on the first step.
	s := newTestSimulator(t, &scriptRand{
		floats:   []float64{0.5, 0.0, 0.0, 0.99, 0.99, 0.99},
		fallback: 0.99,
	})

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{TransactionCode: "MIGO"})
	require.NoError(t, err)

	exec := waitTerminal(t, s, receipt.ExecutionID)
	assert.Equal(t, domain.StatusFailed, exec.Status)
	assert.Equal(t, domain.ResultFailed, exec.Result)
	assert.Equal(t, 1, exec.CurrentStep)

	require.NotNil(t, exec.AutoHealing)
	assert.False(t, exec.AutoHealing.Success)
	assert.Equal(t, "manual_intervention_required", exec.AutoHealing.Action)

	failed := exec.Steps[0]
	assert.Equal(t, domain.StepFailed, failed.Status)
	assert.Equal(t, "ME_APPROVAL_TIMEOUT", failed.ErrorCode)
	assert.Contains(t, failed.ErrorMessage, "Approval workflow timeout")

	t.Run("later steps never ran", func(t *testing.T) {
		for _, step := range exec.Steps[1:] {
			assert.Equal(t, domain.StepPending, step.Status)
		}
	})
}

func TestSimulator_ConcurrencyCapAndQueue(t *testing.T) {
	gate := make(chan struct{})
	blocked := func(context.Context, time.Duration) { <-gate }
	s := New(knowledge.Default(), Config{MaxConcurrent: 1, TimeScale: 0.001},
		WithRand(&scriptRand{fallback: 0.99}), WithSleeper(blocked))
	t.Cleanup(func() { s.Close() })

	receipt, err := s.SubmitSuite(context.Background(), []domain.TestCase{
		{TransactionCode: "MIGO"},
		{TransactionCode: "ME28"},
		{TransactionCode: "VF01"},
	})
	require.NoError(t, err)
	require.Len(t, receipt.Executions, 3)

	t.Run("only the first starts", func(t *testing.T) {
		assert.Equal(t, domain.StatusRunning, receipt.Executions[0].Status)
		assert.Equal(t, domain.StatusQueued, receipt.Executions[1].Status)
		assert.Equal(t, domain.StatusQueued, receipt.Executions[2].Status)
		assert.Equal(t, 1, s.ActiveCount())
		assert.Equal(t, 2, s.QueueLength())
	})

	close(gate)

	t.Run("queue drains in FIFO order", func(t *testing.T) {
		for _, r := range receipt.Executions {
			waitTerminal(t, s, r.ExecutionID)
		}
		report := s.History(10)
		require.Len(t, report.Executions, 3)
		assert.Equal(t, receipt.Executions[0].ExecutionID, report.Executions[0].ExecutionID)
		assert.Equal(t, receipt.Executions[1].ExecutionID, report.Executions[1].ExecutionID)
		assert.Equal(t, receipt.Executions[2].ExecutionID, report.Executions[2].ExecutionID)
		assert.Equal(t, 0, s.QueueLength())
		assert.Equal(t, 0, s.ActiveCount())
	})
}

func TestSimulator_CancelQueued(t *testing.T) {
	gate := make(chan struct{})
	blocked := func(context.Context, time.Duration) { <-gate }
	s := New(knowledge.Default(), Config{MaxConcurrent: 1, TimeScale: 0.001},
		WithRand(&scriptRand{fallback: 0.99}), WithSleeper(blocked))
	t.Cleanup(func() { s.Close() })

	receipt, err := s.SubmitSuite(context.Background(), []domain.TestCase{
		{TransactionCode: "MIGO"},
		{TransactionCode: "ME28"},
	})
	require.NoError(t, err)

	queuedID := receipt.Executions[1].ExecutionID
	msg, err := s.Cancel(queuedID)
	require.NoError(t, err)
	assert.Contains(t, msg, "removed from queue")
	assert.Equal(t, 0, s.QueueLength())

	exec, err := s.ExecutionStatus(queuedID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, exec.Status)
	assert.Equal(t, domain.ResultSkipped, exec.Result)
	require.NotNil(t, exec.EndTime)

	close(gate)
	waitTerminal(t, s, receipt.Executions[0].ExecutionID)
}

func TestSimulator_CancelRunning(t *testing.T) {
	gate := make(chan struct{})
	blocked := func(context.Context, time.Duration) { <-gate }
	s := New(knowledge.Default(), Config{MaxConcurrent: 1, TimeScale: 0.001},
		WithRand(&scriptRand{fallback: 0.99}), WithSleeper(blocked))
	t.Cleanup(func() { s.Close() })

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{TransactionCode: "MIGO"})
	require.NoError(t, err)

	msg, err := s.Cancel(receipt.ExecutionID)
	require.NoError(t, err)
	assert.Contains(t, msg, "cancelled")

	// The status flips immediately; the driver observes it before its next
	// step once the gate opens.
	exec, err := s.ExecutionStatus(receipt.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, exec.Status)
	assert.Equal(t, domain.ResultSkipped, exec.Result)

	close(gate)
	final := waitTerminal(t, s, receipt.ExecutionID)
	assert.Equal(t, domain.StatusCancelled, final.Status)
	assert.Nil(t, final.PerformanceMetrics)
	assert.Empty(t, final.Validations)
}

func TestSimulator_CancelDuringFailingStep(t *testing.T) {
	// The first step fails with every healing strategy missing, but the
	// execution is cancelled while that step is still in flight. The
	// cancellation must survive the failed-healing outcome.
	entered := make(chan struct{}, 1)
	gate := make(chan struct{})
	blocked := func(context.Context, time.Duration) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}
	s := New(knowledge.Default(), Config{MaxConcurrent: 1, TimeScale: 0.001},
		WithRand(&scriptRand{floats: []float64{0.5, 0.0, 0.0, 0.99, 0.99, 0.99}, fallback: 0.99}),
		WithSleeper(blocked))
	t.Cleanup(func() { s.Close() })

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{TransactionCode: "MIGO"})
	require.NoError(t, err)

	<-entered
	msg, err := s.Cancel(receipt.ExecutionID)
	require.NoError(t, err)
	assert.Contains(t, msg, "cancelled")

	close(gate)
	final := waitTerminal(t, s, receipt.ExecutionID)
	assert.Equal(t, domain.StatusCancelled, final.Status)
	assert.Equal(t, domain.ResultSkipped, final.Result)
	assert.Nil(t, final.PerformanceMetrics)
	assert.Empty(t, final.Validations)

	t.Run("in-flight step still records its failure", func(t *testing.T) {
		failed := final.Steps[0]
		assert.Equal(t, domain.StepFailed, failed.Status)
		assert.Equal(t, "ME_APPROVAL_TIMEOUT", failed.ErrorCode)
		require.NotNil(t, final.AutoHealing)
		assert.False(t, final.AutoHealing.Success)
	})
}

func TestSimulator_CancelTerminalFails(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{TransactionCode: "ME28"})
	require.NoError(t, err)
	waitTerminal(t, s, receipt.ExecutionID)

	_, err = s.Cancel(receipt.ExecutionID)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
}

func TestSimulator_UnknownTransactionFallback(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{TransactionCode: "ZZ99"})
	require.NoError(t, err)
	assert.Equal(t, "Test execution for ZZ99", receipt.TestName)

	exec := waitTerminal(t, s, receipt.ExecutionID)
	assert.Equal(t, domain.StatusCompleted, exec.Status)
	assert.Len(t, exec.Steps, 6, "unknown codes use the generic step skeleton")
	assert.True(t, strings.HasPrefix(exec.Steps[1].Description, "Navigate to ZZ99"))
}

func TestSimulator_SubmitSuiteEmpty(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})
	_, err := s.SubmitSuite(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoTestCases)
}

func TestSimulator_ExecutionStatusNotFound(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})
	_, err := s.ExecutionStatus("exec_missing")
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

func TestSimulator_EstimateDuration(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})
	assert.Equal(t, "36-67 seconds", s.EstimateDuration("ME21N"))
	assert.Equal(t, "36-67 seconds", s.EstimateDuration("ZZ99"), "unknown codes use the default profile")
	assert.Equal(t, "24-45 seconds", s.EstimateDuration("MIGO"))
}

func TestSimulator_StatusSnapshotIsACopy(t *testing.T) {
	s := newTestSimulator(t, &scriptRand{fallback: 0.99})

	receipt, err := s.SubmitSingle(context.Background(), domain.TestCase{TransactionCode: "ME28"})
	require.NoError(t, err)
	exec := waitTerminal(t, s, receipt.ExecutionID)

	exec.Steps[0].Status = domain.StepFailed
	exec.Status = domain.StatusFailed

	fresh, err := s.ExecutionStatus(receipt.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, fresh.Status)
	assert.Equal(t, domain.StepPassed, fresh.Steps[0].Status)
}
