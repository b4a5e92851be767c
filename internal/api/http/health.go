package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astc-project/astc-backend/internal/framework"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Agents    int       `json:"agents"`
}

type HealthHandler struct {
	serviceName string
	version     string
	fw          *framework.Context
}

func NewHealthHandler(serviceName, version string, fw *framework.Context) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		fw:          fw,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	agents := 0
	if h.fw != nil {
		agents = len(h.fw.AgentsStatus())
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Agents:    agents,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
