// Package executor bridges router messages to the test execution simulator.
package executor

import (
	"context"
	"errors"

	"github.com/astc-project/astc-backend/internal/execution/domain"
	"github.com/astc-project/astc-backend/internal/execution/service"
	"github.com/astc-project/astc-backend/internal/framework"
	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

// Agent is the test execution agent.
type Agent struct {
	*framework.BaseAgent
	sim *service.Simulator
}

// New constructs the agent around an existing simulator.
func New(sim *service.Simulator) *Agent {
	a := &Agent{
		BaseAgent: framework.NewBaseAgent("test_execution", "Test Execution Agent", []string{
			"test_execution",
			"execution_monitoring",
			"auto_healing",
			"performance_analysis",
			"result_reporting",
		}),
		sim: sim,
	}
	a.On("execute_test_suite", a.executeTestSuite)
	a.On("execute_single_test", a.executeSingleTest)
	a.On("get_execution_status", a.getExecutionStatus)
	a.On("cancel_execution", a.cancelExecution)
	a.On("analyze_execution_results", a.analyzeResults)
	a.On("get_execution_history", a.getHistory)
	return a
}

func (a *Agent) executeTestSuite(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		TestCases []domain.TestCase `json:"test_cases"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid execute_test_suite payload"), nil
	}

	receipt, err := a.sim.SubmitSuite(ctx, req.TestCases)
	if err != nil {
		if errors.Is(err, domain.ErrNoTestCases) {
			return framework.ErrorPayload(a.ID(), "no test cases provided"), nil
		}
		return messaging.Payload{}, err
	}
	return messaging.NewPayload("test_suite_started", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"suite":    receipt,
	})
}

func (a *Agent) executeSingleTest(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		TestCase domain.TestCase `json:"test_case"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid execute_single_test payload"), nil
	}

	receipt, err := a.sim.SubmitSingle(ctx, req.TestCase)
	if err != nil {
		return messaging.Payload{}, err
	}
	return messaging.NewPayload("test_started", map[string]any{
		"status":    "success",
		"agent_id":  a.ID(),
		"execution": receipt,
	})
}

func (a *Agent) getExecutionStatus(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		ExecutionID string `json:"execution_id"`
	}
	if err := msg.Payload.Decode(&req); err != nil || req.ExecutionID == "" {
		return framework.ErrorPayload(a.ID(), "execution_id is required"), nil
	}

	exec, err := a.sim.ExecutionStatus(req.ExecutionID)
	if err != nil {
		return framework.ErrorPayload(a.ID(), "execution not found"), nil
	}
	return messaging.NewPayload("execution_status", map[string]any{
		"status":    "success",
		"agent_id":  a.ID(),
		"execution": exec,
	})
}

func (a *Agent) cancelExecution(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		ExecutionID string `json:"execution_id"`
	}
	if err := msg.Payload.Decode(&req); err != nil || req.ExecutionID == "" {
		return framework.ErrorPayload(a.ID(), "execution_id is required"), nil
	}

	message, err := a.sim.Cancel(req.ExecutionID)
	if err != nil {
		return framework.ErrorPayload(a.ID(), "execution is not in a cancellable state"), nil
	}
	return messaging.NewPayload("execution_cancelled", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"message":  message,
	})
}

func (a *Agent) analyzeResults(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		ExecutionID string `json:"execution_id"`
	}
	if err := msg.Payload.Decode(&req); err != nil || req.ExecutionID == "" {
		return framework.ErrorPayload(a.ID(), "execution_id is required"), nil
	}

	analysis, err := a.sim.AnalyzeResults(req.ExecutionID)
	if err != nil {
		return framework.ErrorPayload(a.ID(), "execution not found"), nil
	}
	return messaging.NewPayload("execution_analysis", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"analysis": analysis,
	})
}

func (a *Agent) getHistory(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid get_execution_history payload"), nil
	}

	return messaging.NewPayload("execution_history", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"history":  a.sim.History(req.Limit),
	})
}
