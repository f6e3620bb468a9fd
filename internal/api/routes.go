package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures the API surface.
func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/battery", h.GetBattery)
		api.GET("/debug", h.GetDebug)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
