package monitoring

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/astc-project/astc-backend/internal/framework"
)

// Handler serves the monitoring read surface.
type Handler struct {
	fw  *framework.Context
	hub *Hub
}

// NewHandler creates a new monitoring handler
func NewHandler(fw *framework.Context, hub *Hub) *Handler {
	return &Handler{fw: fw, hub: hub}
}

// RealTime returns the current snapshot of agent states and recent traffic.
func (h *Handler) RealTime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "monitoring": h.fw.Monitor.RealTimeState()})
}

// NetworkTopology returns the agent communication graph.
func (h *Handler) NetworkTopology(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "topology": h.fw.Monitor.NetworkTopology()})
}

// ActivityHistory returns the most recent activity entries.
func (h *Handler) ActivityHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	activities := h.fw.Monitor.ActivityHistory(limit)
	c.JSON(http.StatusOK, gin.H{"success": true, "activities": activities, "count": len(activities)})
}

// AgentsStatus lists every registered agent with state and metrics.
func (h *Handler) AgentsStatus(c *gin.Context) {
	agents := h.fw.AgentsStatus()
	c.JSON(http.StatusOK, gin.H{"success": true, "agents": agents, "count": len(agents)})
}

// FrameworkStatus reports overall framework health and message statistics.
func (h *Handler) FrameworkStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "framework": h.fw.FrameworkStatus()})
}

// MessageHistory returns recent router traffic, optionally narrowed to the
// conversation between two agents.
func (h *Handler) MessageHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	agent1 := c.Query("agent1")
	agent2 := c.Query("agent2")
	if (agent1 == "") != (agent2 == "") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "agent1 and agent2 must be provided together"})
		return
	}

	router := h.fw.Router
	messages := router.History(limit)
	if agent1 != "" {
		messages = router.ConversationHistory(agent1, agent2, limit)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages, "count": len(messages)})
}
