package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the API under /api/v1 and the Prometheus scrape
// endpoint at /metrics.
func RegisterRoutes(r *gin.Engine, extraction *ExtractionHandler, predictions *PredictionHandler, registry *prometheus.Registry) {
	v1 := r.Group("/api/v1")

	ext := v1.Group("/extraction")
	ext.POST("/single", extraction.TriggerSingle)
	ext.POST("/bulk", extraction.TriggerBulk)
	ext.GET("/jobs", extraction.ListJobs)
	ext.GET("/jobs/:id", extraction.GetJob)
	ext.POST("/jobs/:id/cancel", extraction.CancelJob)
	ext.GET("/scheduled", extraction.ListScheduled)

	preds := v1.Group("/predictions")
	preds.GET("", predictions.List)
	preds.GET("/:id", predictions.Get)
	preds.PATCH("/:id/outcome", predictions.OverrideOutcome)

	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
}
