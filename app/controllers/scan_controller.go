package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/competitor-scanner/app/config"
	"github.com/competitor-scanner/app/requests"
	"github.com/competitor-scanner/app/responses"
	"github.com/competitor-scanner/app/services"
	"github.com/competitor-scanner/internal/extractor"
)

// ScanController exposes the analyze endpoints.
type ScanController struct {
	scanService  *services.ScanService
	cacheService services.ICacheService
	auditService *services.AuditService
	logger       *zap.Logger
}

// NewScanController wires the controller. cacheService and auditService
// are only probed for health reporting and may be nil.
func NewScanController(scanService *services.ScanService, cacheService services.ICacheService,
	auditService *services.AuditService, logger *zap.Logger) *ScanController {
	return &ScanController{
		scanService:  scanService,
		cacheService: cacheService,
		auditService: auditService,
		logger:       logger,
	}
}

// AnalyzeOutput handles POST /v1/analyze/output.
func (sc *ScanController) AnalyzeOutput(c *gin.Context) {
	startTime := time.Now()

	var req requests.AnalyzeOutputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "INVALID_REQUEST",
			Message:   "Invalid request body: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	result, cacheHit, err := sc.scanService.AnalyzeOutput(c.Request.Context(), req.Prompt, req.Output, req.Options)
	if err != nil {
		sc.logger.Error("analyze output failed", zap.Error(err))
		sc.scanError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewAnalyzeResponse(result, time.Since(startTime).Milliseconds(), cacheHit))
}

// AnalyzePrompt handles POST /v1/analyze/prompt.
func (sc *ScanController) AnalyzePrompt(c *gin.Context) {
	startTime := time.Now()

	var req requests.AnalyzePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "INVALID_REQUEST",
			Message:   "Invalid request body: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	result, cacheHit, err := sc.scanService.AnalyzePrompt(c.Request.Context(), req.Prompt, req.Options)
	if err != nil {
		sc.logger.Error("analyze prompt failed", zap.Error(err))
		sc.scanError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.NewAnalyzeResponse(result, time.Since(startTime).Milliseconds(), cacheHit))
}

// AnalyzeBatch handles POST /v1/analyze/batch. The job runs in the
// background; clients poll /v1/jobs/:jobID.
func (sc *ScanController) AnalyzeBatch(c *gin.Context) {
	var req requests.BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "INVALID_REQUEST",
			Message:   "Invalid request body: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	if len(req.Texts) > 10000 {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "TOO_MANY_TEXTS",
			Message:   "A batch is limited to 10000 texts",
			Timestamp: time.Now(),
		})
		return
	}

	jobID := sc.scanService.SubmitBatch(req.Texts, req.Options)

	sc.logger.Info("batch job accepted",
		zap.String("job_id", jobID),
		zap.Int("texts", len(req.Texts)))

	c.JSON(http.StatusAccepted, responses.BatchAnalyzeResponse{
		JobID:            jobID,
		TotalTexts:       len(req.Texts),
		EstimatedSeconds: sc.scanService.EstimateBatchSeconds(len(req.Texts)),
		Message:          "Batch accepted, poll /v1/jobs/" + jobID,
	})
}

// GetJob handles GET /v1/jobs/:jobID. Results are attached once the job
// is done.
func (sc *ScanController) GetJob(c *gin.Context) {
	jobID := c.Param("jobID")

	status, err := sc.scanService.GetJobStatus(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, responses.ErrorResponse{
			Error:     "JOB_NOT_FOUND",
			Message:   "No job with ID " + jobID,
			Timestamp: time.Now(),
		})
		return
	}

	resp := responses.JobStatusResponse{
		JobID:     status.JobID,
		Status:    status.Status,
		Progress:  status.Progress,
		Processed: status.Processed,
		Total:     status.Total,
		Message:   status.Message,
		CreatedAt: status.CreatedAt,
		UpdatedAt: status.UpdatedAt,
	}

	if status.Status == responses.JobStatusDone {
		if results, err := sc.scanService.GetJobResults(jobID); err == nil {
			resp.Results = results
		}
	}

	c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (sc *ScanController) HealthCheck(c *gin.Context) {
	uptime := time.Since(sc.scanService.GetStartTime())

	servicesMap := map[string]string{
		"scanner": "up",
	}

	if sc.cacheService != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if _, err := sc.cacheService.Exists(ctx, "health-probe"); err != nil {
			servicesMap["cache"] = "down"
		} else {
			servicesMap["cache"] = "up"
		}
	} else {
		servicesMap["cache"] = "disabled"
	}

	if sc.auditService != nil && sc.auditService.Enabled() {
		servicesMap["audit"] = "up"
	} else {
		servicesMap["audit"] = "disabled"
	}

	status := "healthy"
	if servicesMap["cache"] == "down" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    uptime.String(),
		Version:   config.C.App.Version,
		Services:  servicesMap,
	})
}

// scanError maps pipeline failures to HTTP statuses.
func (sc *ScanController) scanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, responses.ErrorResponse{
			Error:     "SCAN_TIMEOUT",
			Message:   "Scan did not finish within the configured timeout",
			Timestamp: time.Now(),
		})
	case errors.Is(err, extractor.ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:     "MODEL_UNAVAILABLE",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
	default:
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:     "SCAN_ERROR",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
	}
}
