package controllers

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/competitor-scanner/app/responses"
	"github.com/competitor-scanner/app/services"
)

// AdminController exposes the operational endpoints under /v1/admin.
type AdminController struct {
	scanService    *services.ScanService
	cacheService   services.ICacheService
	auditService   *services.AuditService
	catalogService *services.CatalogService
	logger         *zap.Logger
}

// NewAdminController wires the controller. cacheService, auditService and
// catalogService may be nil when the deployment runs without them; the
// matching endpoints then answer 503.
func NewAdminController(scanService *services.ScanService, cacheService services.ICacheService,
	auditService *services.AuditService, catalogService *services.CatalogService, logger *zap.Logger) *AdminController {
	return &AdminController{
		scanService:    scanService,
		cacheService:   cacheService,
		auditService:   auditService,
		catalogService: catalogService,
		logger:         logger,
	}
}

// GetStats handles GET /v1/admin/stats.
func (ac *AdminController) GetStats(c *gin.Context) {
	stats := ac.scanService.GetStats(c.Request.Context())

	c.JSON(http.StatusOK, responses.StatsResponse{
		TotalScans:    stats.TotalScans,
		FlaggedScans:  stats.FlaggedScans,
		CacheHits:     stats.CacheHits,
		FlaggedLast24: stats.FlaggedLast24,
		Scanners:      stats.Scanners,
		UptimeSeconds: stats.UptimeSeconds,
		StartTime:     stats.StartTime.Format(time.RFC3339),
		MemoryUsage:   memoryUsageMB(),
	})
}

// GetCacheStats handles GET /v1/admin/cache/stats.
func (ac *AdminController) GetCacheStats(c *gin.Context) {
	if ac.cacheService == nil {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:     "CACHE_DISABLED",
			Message:   "No cache backend is configured",
			Timestamp: time.Now(),
		})
		return
	}

	stats, err := ac.cacheService.GetStats(c.Request.Context())
	if err != nil {
		ac.logger.Error("cache stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:     "CACHE_STATS_ERROR",
			Message:   "Could not read cache stats: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, responses.CacheStatsResponse{
		HitRate:    stats.HitRate,
		TotalHits:  stats.TotalHits,
		TotalMiss:  stats.TotalMiss,
		TotalItems: stats.TotalItems,
	})
}

// ClearCache handles POST /v1/admin/cache/clear.
func (ac *AdminController) ClearCache(c *gin.Context) {
	if ac.cacheService == nil {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:     "CACHE_DISABLED",
			Message:   "No cache backend is configured",
			Timestamp: time.Now(),
		})
		return
	}

	startTime := time.Now()

	if err := ac.cacheService.Clear(c.Request.Context()); err != nil {
		ac.logger.Error("cache clear failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:     "CACHE_CLEAR_ERROR",
			Message:   "Could not clear cache: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	ac.logger.Info("cache cleared", zap.Duration("duration", time.Since(startTime)))

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Cache cleared",
		Timestamp: time.Now(),
	})
}

// GetScanners handles GET /v1/admin/scanners.
func (ac *AdminController) GetScanners(c *gin.Context) {
	scanners := ac.scanService.Scanners()

	summaries := make([]responses.ScannerSummary, 0, len(scanners))
	for _, sc := range scanners {
		summaries = append(summaries, responses.ScannerSummary{
			Name:        sc.Name(),
			Competitors: sc.Competitors(),
			Threshold:   sc.Threshold(),
			Redact:      sc.Redacts(),
		})
	}

	c.JSON(http.StatusOK, summaries)
}

// GetAudit handles GET /v1/admin/audit?limit=N.
func (ac *AdminController) GetAudit(c *gin.Context) {
	if ac.auditService == nil || !ac.auditService.Enabled() {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:     "AUDIT_DISABLED",
			Message:   "The audit log is not configured",
			Timestamp: time.Now(),
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "INVALID_LIMIT",
			Message:   "limit must be a non-negative integer",
			Timestamp: time.Now(),
		})
		return
	}

	records, err := ac.auditService.RecentFlagged(c.Request.Context(), limit)
	if err != nil {
		ac.logger.Error("audit query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:     "AUDIT_ERROR",
			Message:   "Could not read the audit log: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, responses.AuditResponse{
		Records: records,
		Total:   len(records),
	})
}

// ReloadCatalog handles POST /v1/admin/catalog/reload. The scanner
// pipeline is rebuilt from the current catalog contents.
func (ac *AdminController) ReloadCatalog(c *gin.Context) {
	if ac.catalogService == nil {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:     "CATALOG_DISABLED",
			Message:   "No catalog is configured",
			Timestamp: time.Now(),
		})
		return
	}

	startTime := time.Now()

	count, err := ac.scanService.ReloadScanners(c.Request.Context())
	if err != nil {
		ac.logger.Error("catalog reload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:     "CATALOG_RELOAD_ERROR",
			Message:   "Could not rebuild scanners: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	competitors := 0
	for _, sc := range ac.scanService.Scanners() {
		competitors += len(sc.Competitors())
	}

	ac.logger.Info("catalog reloaded",
		zap.Int("scanners", count),
		zap.Int("competitors", competitors),
		zap.Duration("duration", time.Since(startTime)))

	c.JSON(http.StatusOK, responses.CatalogReloadResponse{
		Scanners:    count,
		Competitors: competitors,
		Message:     "Scanner pipeline rebuilt from catalog",
	})
}

// SearchCatalog handles GET /v1/admin/catalog/search?q=term.
func (ac *AdminController) SearchCatalog(c *gin.Context) {
	if ac.catalogService == nil {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:     "CATALOG_DISABLED",
			Message:   "No catalog is configured",
			Timestamp: time.Now(),
		})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "MISSING_QUERY",
			Message:   "The q query parameter is required",
			Timestamp: time.Now(),
		})
		return
	}

	entries, err := ac.catalogService.SearchNames(query, 20)
	if err != nil {
		ac.logger.Error("catalog search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:     "CATALOG_SEARCH_ERROR",
			Message:   "Catalog search failed: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, responses.CatalogSearchResponse{
		Query:   query,
		Entries: entries,
		Total:   len(entries),
	})
}

// memoryUsageMB snapshots process memory for the stats endpoint.
func memoryUsageMB() map[string]int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]int64{
		"alloc":       bToMb(m.Alloc),
		"total_alloc": bToMb(m.TotalAlloc),
		"sys":         bToMb(m.Sys),
		"num_gc":      int64(m.NumGC),
	}
}

func bToMb(b uint64) int64 {
	return int64(b / 1024 / 1024)
}
