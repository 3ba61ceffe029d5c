package responses

import (
	"time"

	"github.com/competitor-scanner/app/models"
	"github.com/competitor-scanner/internal/matcher"
)

// AnalyzeResponse is the result of scanning one text, either fresh or
// served from cache.
type AnalyzeResponse struct {
	ScanID           string             `json:"scan_id"`
	SanitizedOutput  string             `json:"sanitized_output"`
	IsValid          bool               `json:"is_valid"`
	Scanners         map[string]float64 `json:"scanners"`
	Matches          []matcher.Match    `json:"matches"`
	EntityCount      int                `json:"entity_count"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	CacheHit         bool               `json:"cache_hit"`
}

// NewAnalyzeResponse copies a scan result into its wire shape.
func NewAnalyzeResponse(result *models.ScanResult, elapsedMs int64, cacheHit bool) AnalyzeResponse {
	return AnalyzeResponse{
		ScanID:           result.ScanID,
		SanitizedOutput:  result.SanitizedOutput,
		IsValid:          result.IsValid,
		Scanners:         result.RiskScores,
		Matches:          result.Matches,
		EntityCount:      result.EntityCount,
		ProcessingTimeMs: elapsedMs,
		CacheHit:         cacheHit,
	}
}

// BatchAnalyzeResponse acknowledges an accepted batch job.
type BatchAnalyzeResponse struct {
	JobID            string `json:"job_id"`
	TotalTexts       int    `json:"total_texts"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	Message          string `json:"message"`
}

// JobStatusResponse reports batch progress; Results is present once the
// job reaches the done state.
type JobStatusResponse struct {
	JobID     string               `json:"job_id"`
	Status    string               `json:"status"`
	Progress  float64              `json:"progress"`
	Processed int                  `json:"processed"`
	Total     int                  `json:"total"`
	Message   string               `json:"message,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	Results   []*models.ScanResult `json:"results,omitempty"`
}

// Job lifecycle states.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// ErrorResponse is the uniform error body for every non-2xx reply.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// SuccessResponse wraps administrative acknowledgements.
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// HealthCheckResponse reports liveness plus the state of attached
// backends (cache, catalog, audit).
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// StatsResponse is the admin view of service counters since start.
type StatsResponse struct {
	TotalScans    int64            `json:"total_scans"`
	FlaggedScans  int64            `json:"flagged_scans"`
	CacheHits     int64            `json:"cache_hits"`
	FlaggedLast24 int64            `json:"flagged_last_24h"`
	Scanners      int              `json:"scanners"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	MemoryUsage   map[string]int64 `json:"memory_usage_mb"`
}

// CacheStatsResponse mirrors the cache backend's own counters.
type CacheStatsResponse struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// ScannerSummary describes one configured scanner for the admin API.
type ScannerSummary struct {
	Name        string   `json:"name"`
	Competitors []string `json:"competitors"`
	Threshold   float64  `json:"threshold"`
	Redact      bool     `json:"redact"`
}

// AuditResponse lists recent flagged scans from the audit log.
type AuditResponse struct {
	Records []*models.ScanRecord `json:"records"`
	Total   int                  `json:"total"`
}

// CatalogSearchResponse lists catalog entries matching an admin query.
type CatalogSearchResponse struct {
	Query   string                `json:"query"`
	Entries []models.CatalogEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// CatalogReloadResponse reports the scanner rebuild triggered by a
// catalog reload.
type CatalogReloadResponse struct {
	Scanners    int    `json:"scanners"`
	Competitors int    `json:"competitors"`
	Message     string `json:"message"`
}
