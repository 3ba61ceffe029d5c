package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/competitor-scanner/app/config"
)

// SetupWebRoutes registers the landing pages.
func SetupWebRoutes(router *gin.Engine) {
	// Web routes group
	web := router.Group("/")
	{
		// Home page
		web.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"message": config.C.App.Name,
				"version": config.C.App.Version,
				"docs":    "/docs",
			})
		})

		// API documentation
		web.GET("/docs", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"api": "Competitor Scanner API v1",
				"endpoints": map[string]string{
					"analyze_output": "POST /v1/analyze/output",
					"analyze_prompt": "POST /v1/analyze/prompt",
					"analyze_batch":  "POST /v1/analyze/batch",
					"job_status":     "GET /v1/jobs/:jobID",
					"health":         "GET /health",
					"admin_stats":    "GET /v1/admin/stats",
				},
			})
		})

		// Status page
		web.GET("/status", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "running",
				"service": config.C.App.Name,
			})
		})
	}
}
