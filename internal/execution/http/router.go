package http

import "github.com/gin-gonic/gin"

// Register registers the execution routes. The execute middleware slot is for
// the rate limiter applied to submission endpoints only.
func (h *Handler) Register(api *gin.RouterGroup, execute ...gin.HandlerFunc) {
	api.POST("/execute-tests", append(execute, h.ExecuteTests)...)

	exec := api.Group("/execution")
	exec.GET("/status/:id", h.GetStatus)
	exec.GET("/history", h.GetHistory)
	exec.POST("/cancel", h.CancelExecution)
	exec.POST("/analyze", h.AnalyzeResults)
}
