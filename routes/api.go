package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/competitor-scanner/app/config"
	"github.com/competitor-scanner/app/controllers"
)

// SetupAPIRoutes registers the /v1 API. When an auth token is configured
// the whole group requires it; the bare health endpoints stay open.
func SetupAPIRoutes(router *gin.Engine, scanController *controllers.ScanController, adminController *controllers.AdminController) {
	v1 := router.Group("/v1")
	if config.C.Auth.Token != "" {
		v1.Use(BearerAuth(config.C.Auth.Token))
	}
	{
		// Scan routes
		analyze := v1.Group("/analyze")
		{
			analyze.POST("/output", scanController.AnalyzeOutput)
			analyze.POST("/prompt", scanController.AnalyzePrompt)
			analyze.POST("/batch", scanController.AnalyzeBatch)
		}

		// Batch job polling
		v1.GET("/jobs/:jobID", scanController.GetJob)

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.GET("/stats", adminController.GetStats)
			admin.GET("/cache/stats", adminController.GetCacheStats)
			admin.POST("/cache/clear", adminController.ClearCache)
			admin.GET("/scanners", adminController.GetScanners)
			admin.GET("/audit", adminController.GetAudit)
			admin.POST("/catalog/reload", adminController.ReloadCatalog)
			admin.GET("/catalog/search", adminController.SearchCatalog)
		}

		// Health check route
		v1.GET("/health", scanController.HealthCheck)
	}
}

// SetupHealthRoutes registers the unauthenticated liveness endpoints.
func SetupHealthRoutes(router *gin.Engine, scanController *controllers.ScanController) {
	// Root health check
	router.GET("/health", scanController.HealthCheck)

	// Readiness check
	router.GET("/ready", scanController.HealthCheck)

	// Liveness check
	router.GET("/live", scanController.HealthCheck)
}

// SetupAllRoutes wires middleware and every route group.
func SetupAllRoutes(router *gin.Engine, scanController *controllers.ScanController, adminController *controllers.AdminController, logger *zap.Logger) {
	setupMiddleware(router, logger)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, scanController)
	SetupAPIRoutes(router, scanController, adminController)

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

// setupMiddleware installs the global middleware chain.
func setupMiddleware(router *gin.Engine, logger *zap.Logger) {
	// Recovery middleware
	router.Use(gin.Recovery())

	// Structured request logging
	router.Use(RequestLogger(logger))

	// Per-client rate limiting
	if config.C.RateLimit.Enabled {
		router.Use(PerClientRateLimit(rate.Limit(config.C.RateLimit.RPS), config.C.RateLimit.Burst))
	}
}
