package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/competitor-scanner/app/models"
	"github.com/competitor-scanner/app/requests"
	"github.com/competitor-scanner/helpers/utils"
	"github.com/competitor-scanner/internal/scanner"
)

// JobStatus tracks one asynchronous batch job.
type JobStatus struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScannerBuilder rebuilds the scanner pipeline, typically by flattening
// catalog groups into fresh competitor lists. The scan service swaps the
// result in on catalog reload.
type ScannerBuilder func(ctx context.Context) ([]*scanner.Scanner, error)

// ScanServiceConfig carries the pipeline-level knobs.
type ScanServiceConfig struct {
	// Timeout bounds one analyze call end to end. Zero means 30s.
	Timeout time.Duration
	// MaxConcurrency bounds how many scans run entity extraction at
	// once. Zero means 4.
	MaxConcurrency int64
	// FailFast stops the pipeline at the first scanner that flags.
	FailFast bool
}

// ServiceStats are the running totals since the service started.
type ServiceStats struct {
	TotalScans    int64
	FlaggedScans  int64
	CacheHits     int64
	FlaggedLast24 int64
	Scanners      int
	UptimeSeconds int64
	StartTime     time.Time
}

// ScanService runs texts through the ordered scanner pipeline. Each
// scanner sees the sanitized text of the one before it; the verdict is
// the AND of every scanner's verdict.
type ScanService struct {
	cache   ICacheService
	audit   *AuditService
	builder ScannerBuilder
	logger  *zap.Logger

	sem      *semaphore.Weighted
	timeout  time.Duration
	failFast bool

	// mu guards the scanner slice and its version. The version is part
	// of every cache key, so a reload stops old entries from being
	// served without touching the cache itself.
	mu       sync.RWMutex
	scanners []*scanner.Scanner
	version  int

	jobsMu     sync.RWMutex
	jobs       map[string]*JobStatus
	jobResults map[string][]*models.ScanResult

	startTime    time.Time
	totalScans   atomic.Int64
	flaggedScans atomic.Int64
	cacheHits    atomic.Int64
}

// NewScanService wires the pipeline. cache, audit and builder may each be
// nil, which disables caching, auditing and catalog reloads respectively.
func NewScanService(cfg ScanServiceConfig, scanners []*scanner.Scanner, builder ScannerBuilder,
	cache ICacheService, audit *AuditService, logger *zap.Logger) *ScanService {

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	return &ScanService{
		cache:      cache,
		audit:      audit,
		builder:    builder,
		logger:     logger,
		sem:        semaphore.NewWeighted(maxConcurrency),
		timeout:    timeout,
		failFast:   cfg.FailFast,
		scanners:   scanners,
		version:    1,
		jobs:       make(map[string]*JobStatus),
		jobResults: make(map[string][]*models.ScanResult),
		startTime:  time.Now(),
	}
}

// AnalyzeOutput scans a model response. The prompt is passed through to
// scanners as context but is not itself scanned. The bool reports whether
// the result came from cache.
func (sv *ScanService) AnalyzeOutput(ctx context.Context, prompt, output string, opts requests.ScanOptions) (*models.ScanResult, bool, error) {
	return sv.analyze(ctx, prompt, output, opts)
}

// AnalyzePrompt runs the same pipeline over the prompt itself.
func (sv *ScanService) AnalyzePrompt(ctx context.Context, prompt string, opts requests.ScanOptions) (*models.ScanResult, bool, error) {
	return sv.analyze(ctx, "", prompt, opts)
}

func (sv *ScanService) analyze(ctx context.Context, prompt, text string, opts requests.ScanOptions) (*models.ScanResult, bool, error) {
	sv.mu.RLock()
	scanners := sv.scanners
	version := sv.version
	sv.mu.RUnlock()

	key := utils.Fingerprint(strconv.Itoa(version), text)

	useCache := sv.cache != nil && !opts.SkipCache
	if useCache {
		cached, found, err := sv.cache.Get(ctx, key)
		if err != nil {
			sv.logger.Warn("cache lookup failed", zap.Error(err))
		} else if found {
			sv.totalScans.Add(1)
			sv.cacheHits.Add(1)
			return cached, true, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, sv.timeout)
	defer cancel()

	// Entity extraction is the expensive step; the semaphore keeps the
	// number of concurrent pipeline runs bounded.
	if err := sv.sem.Acquire(ctx, 1); err != nil {
		return nil, false, fmt.Errorf("acquire scan slot: %w", err)
	}
	defer sv.sem.Release(1)

	started := time.Now()

	result := &models.ScanResult{
		ScanID:      utils.GenerateUUID(),
		IsValid:     true,
		RiskScores:  make(map[string]float64, len(scanners)),
		Fingerprint: key,
		ScannedAt:   started,
	}

	sanitized := text
	failFast := sv.failFast || opts.FailFast
	for _, sc := range scanners {
		scanRes, err := sc.Scan(ctx, prompt, sanitized)
		if err != nil {
			return nil, false, fmt.Errorf("scanner %s: %w", sc.Name(), err)
		}

		sanitized = scanRes.SanitizedText
		result.RiskScores[sc.Name()] = scanRes.RiskScore
		result.Matches = append(result.Matches, scanRes.Matches...)
		if scanRes.EntityCount > result.EntityCount {
			result.EntityCount = scanRes.EntityCount
		}
		if !scanRes.IsValid {
			result.IsValid = false
			if failFast {
				break
			}
		}
	}
	result.SanitizedOutput = sanitized

	sv.totalScans.Add(1)
	if !result.IsValid {
		sv.flaggedScans.Add(1)
		sv.recordFlagged(ctx, result)
	}

	if useCache {
		if err := sv.cache.Set(ctx, key, result); err != nil {
			sv.logger.Warn("cache store failed", zap.Error(err))
		}
	}

	sv.logger.Debug("scan finished",
		zap.String("scan_id", result.ScanID),
		zap.Bool("is_valid", result.IsValid),
		zap.Int("matches", len(result.Matches)),
		zap.Duration("duration", time.Since(started)))

	return result, false, nil
}

// recordFlagged writes the audit entry. Auditing is best effort; a
// failure never fails the scan.
func (sv *ScanService) recordFlagged(ctx context.Context, result *models.ScanResult) {
	if sv.audit == nil || !sv.audit.Enabled() {
		return
	}
	if err := sv.audit.InsertScan(ctx, models.NewScanRecord(result)); err != nil {
		sv.logger.Warn("audit insert failed",
			zap.Error(err),
			zap.String("scan_id", result.ScanID))
	}
}

// SubmitBatch registers a batch job and starts processing it in the
// background. Returns the job ID for polling.
func (sv *ScanService) SubmitBatch(texts []string, opts requests.ScanOptions) string {
	jobID := utils.GenerateUUID()

	now := time.Now()
	sv.jobsMu.Lock()
	sv.jobs[jobID] = &JobStatus{
		JobID:     jobID,
		Status:    "pending",
		Total:     len(texts),
		CreatedAt: now,
		UpdatedAt: now,
	}
	sv.jobsMu.Unlock()

	go sv.processBatchJob(jobID, texts, opts)

	return jobID
}

func (sv *ScanService) processBatchJob(jobID string, texts []string, opts requests.ScanOptions) {
	sv.setJobStatus(jobID, "running", 0, 0, "")

	results := make([]*models.ScanResult, 0, len(texts))
	for i, text := range texts {
		result, _, err := sv.AnalyzeOutput(context.Background(), "", text, opts)
		if err != nil {
			sv.logger.Warn("batch item failed",
				zap.String("job_id", jobID),
				zap.Int("index", i),
				zap.Error(err))
			// Fail closed: an item that could not be scanned is not
			// reported as valid, and its text is not echoed back as
			// sanitized.
			result = &models.ScanResult{
				ScanID:    utils.GenerateUUID(),
				IsValid:   false,
				Error:     err.Error(),
				ScannedAt: time.Now(),
			}
		}
		results = append(results, result)

		processed := i + 1
		sv.setJobStatus(jobID, "running", float64(processed)/float64(len(texts)), processed, "")
	}

	sv.jobsMu.Lock()
	sv.jobResults[jobID] = results
	sv.jobsMu.Unlock()

	sv.setJobStatus(jobID, "done", 1, len(texts), fmt.Sprintf("scanned %d texts", len(texts)))
}

func (sv *ScanService) setJobStatus(jobID, status string, progress float64, processed int, message string) {
	sv.jobsMu.Lock()
	defer sv.jobsMu.Unlock()

	job, ok := sv.jobs[jobID]
	if !ok {
		return
	}
	job.Status = status
	job.Progress = progress
	job.Processed = processed
	job.Message = message
	job.UpdatedAt = time.Now()
}

// GetJobStatus returns a snapshot of the job, safe to read while the job
// is still running.
func (sv *ScanService) GetJobStatus(jobID string) (*JobStatus, error) {
	sv.jobsMu.RLock()
	defer sv.jobsMu.RUnlock()

	job, ok := sv.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}

	snapshot := *job
	return &snapshot, nil
}

// GetJobResults returns the finished results of a batch job.
func (sv *ScanService) GetJobResults(jobID string) ([]*models.ScanResult, error) {
	sv.jobsMu.RLock()
	defer sv.jobsMu.RUnlock()

	results, ok := sv.jobResults[jobID]
	if !ok {
		return nil, fmt.Errorf("results for job %s are not ready", jobID)
	}

	return results, nil
}

// EstimateBatchSeconds gives clients a rough completion estimate.
func (sv *ScanService) EstimateBatchSeconds(total int) int {
	const scansPerSecond = 40
	return total/scansPerSecond + 1
}

// ReloadScanners rebuilds the pipeline through the configured builder and
// bumps the scanner-set version so stale cache entries stop matching.
func (sv *ScanService) ReloadScanners(ctx context.Context) (int, error) {
	if sv.builder == nil {
		return 0, fmt.Errorf("scanner reload is not configured")
	}

	scanners, err := sv.builder(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild scanners: %w", err)
	}

	sv.mu.Lock()
	sv.scanners = scanners
	sv.version++
	version := sv.version
	sv.mu.Unlock()

	sv.logger.Info("scanner pipeline reloaded",
		zap.Int("scanners", len(scanners)),
		zap.Int("version", version))

	return len(scanners), nil
}

// Scanners returns the current pipeline in order.
func (sv *ScanService) Scanners() []*scanner.Scanner {
	sv.mu.RLock()
	defer sv.mu.RUnlock()

	out := make([]*scanner.Scanner, len(sv.scanners))
	copy(out, sv.scanners)
	return out
}

// GetStats reports running totals. The 24h flagged count comes from the
// audit log and is best effort.
func (sv *ScanService) GetStats(ctx context.Context) *ServiceStats {
	sv.mu.RLock()
	scannerCount := len(sv.scanners)
	sv.mu.RUnlock()

	stats := &ServiceStats{
		TotalScans:    sv.totalScans.Load(),
		FlaggedScans:  sv.flaggedScans.Load(),
		CacheHits:     sv.cacheHits.Load(),
		Scanners:      scannerCount,
		UptimeSeconds: int64(time.Since(sv.startTime).Seconds()),
		StartTime:     sv.startTime,
	}

	if sv.audit != nil && sv.audit.Enabled() {
		count, err := sv.audit.CountSince(ctx, 24*time.Hour)
		if err != nil {
			sv.logger.Warn("audit count failed", zap.Error(err))
		} else {
			stats.FlaggedLast24 = count
		}
	}

	return stats
}

// GetStartTime reports when the service came up.
func (sv *ScanService) GetStartTime() time.Time {
	return sv.startTime
}
