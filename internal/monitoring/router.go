package monitoring

import "github.com/gin-gonic/gin"

// Register registers the monitoring routes
func (h *Handler) Register(api *gin.RouterGroup) {
	mon := api.Group("/monitoring")
	mon.GET("/real-time", h.RealTime)
	mon.GET("/network-topology", h.NetworkTopology)
	mon.GET("/activity-history", h.ActivityHistory)
	mon.GET("/stream", h.Stream)

	api.GET("/agents/status", h.AgentsStatus)
	api.GET("/framework/status", h.FrameworkStatus)
	api.GET("/message/history", h.MessageHistory)
}
