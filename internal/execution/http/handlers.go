package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/astc-project/astc-backend/internal/execution/domain"
	"github.com/astc-project/astc-backend/internal/execution/service"
)

// Handler exposes the test execution simulator over HTTP.
type Handler struct {
	sim *service.Simulator
}

// NewHandler creates a new execution handler
func NewHandler(sim *service.Simulator) *Handler {
	return &Handler{sim: sim}
}

// ExecuteTests submits a test suite, or a single test case when only
// test_case is present.
func (h *Handler) ExecuteTests(c *gin.Context) {
	var body struct {
		TestCases []domain.TestCase `json:"test_cases,omitempty"`
		TestCase  *domain.TestCase  `json:"test_case,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	if body.TestCase != nil && len(body.TestCases) == 0 {
		receipt, err := h.sim.SubmitSingle(c.Request.Context(), *body.TestCase)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to start execution"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "execution": receipt})
		return
	}

	receipt, err := h.sim.SubmitSuite(c.Request.Context(), body.TestCases)
	if err != nil {
		if errors.Is(err, domain.ErrNoTestCases) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no test cases provided"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to start test suite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "suite": receipt})
}

// GetStatus returns the current state of one execution.
func (h *Handler) GetStatus(c *gin.Context) {
	executionID := c.Param("id")
	if executionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "execution ID is required"})
		return
	}

	exec, err := h.sim.ExecutionStatus(executionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "execution not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "execution": exec})
}

// GetHistory returns recent executions plus summary statistics.
func (h *Handler) GetHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": h.sim.History(limit)})
}

// CancelExecution cancels a queued or running execution.
func (h *Handler) CancelExecution(c *gin.Context) {
	var body struct {
		ExecutionID string `json:"execution_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ExecutionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "execution_id is required"})
		return
	}

	message, err := h.sim.Cancel(body.ExecutionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotCancellable) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "execution is not in a cancellable state"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to cancel execution"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// AnalyzeResults returns the derived analysis for one execution.
func (h *Handler) AnalyzeResults(c *gin.Context) {
	var body struct {
		ExecutionID string `json:"execution_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ExecutionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "execution_id is required"})
		return
	}

	analysis, err := h.sim.AnalyzeResults(body.ExecutionID)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "execution not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to analyze execution"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}
