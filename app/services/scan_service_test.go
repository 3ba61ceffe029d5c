package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/competitor-scanner/app/requests"
	"github.com/competitor-scanner/internal/extractor"
	"github.com/competitor-scanner/internal/scanner"
)

func newStaticScanner(t *testing.T, name string, competitors []string) (*scanner.Scanner, *extractor.StaticExtractor) {
	t.Helper()
	ex := extractor.NewStaticExtractor(competitors)
	sc, err := scanner.New(scanner.Config{
		Name:        name,
		Competitors: competitors,
		Redact:      true,
	}, ex, zap.NewNop())
	require.NoError(t, err)
	return sc, ex
}

func newTestService(cfg ScanServiceConfig, cache ICacheService, scanners ...*scanner.Scanner) *ScanService {
	return NewScanService(cfg, scanners, nil, cache, nil, zap.NewNop())
}

func waitForJob(t *testing.T, svc *ScanService, jobID string) *JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, err := svc.GetJobStatus(jobID)
		require.NoError(t, err)
		if status.Status == "done" || status.Status == "failed" {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestAnalyzeOutputFlagsAndRedacts(t *testing.T) {
	sc, _ := newStaticScanner(t, "competitors", []string{"CompetitorOne"})
	svc := newTestService(ScanServiceConfig{}, nil, sc)

	result, cacheHit, err := svc.AnalyzeOutput(context.Background(), "which db should we use?",
		"We use CompetitorOne for X", requests.ScanOptions{})
	require.NoError(t, err)

	assert.False(t, cacheHit)
	assert.False(t, result.IsValid)
	assert.Equal(t, "We use [REDACTED] for X", result.SanitizedOutput)
	assert.Equal(t, 1.0, result.RiskScores["competitors"])
	assert.Equal(t, 1, result.EntityCount)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "CompetitorOne", result.Matches[0].Competitor)
	assert.NotEmpty(t, result.ScanID)
	assert.NotEmpty(t, result.Fingerprint)
}

func TestAnalyzeOutputCleanText(t *testing.T) {
	sc, _ := newStaticScanner(t, "competitors", []string{"CompetitorOne"})
	svc := newTestService(ScanServiceConfig{}, nil, sc)

	text := "Our own product handles this fine"
	result, _, err := svc.AnalyzeOutput(context.Background(), "", text, requests.ScanOptions{})
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Equal(t, text, result.SanitizedOutput)
	assert.Equal(t, 0.0, result.RiskScores["competitors"])
	assert.Empty(t, result.Matches)
}

func TestAnalyzeNoScannersConfigured(t *testing.T) {
	svc := newTestService(ScanServiceConfig{}, nil)

	result, _, err := svc.AnalyzeOutput(context.Background(), "", "CompetitorOne everywhere", requests.ScanOptions{})
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Equal(t, "CompetitorOne everywhere", result.SanitizedOutput)
	assert.Empty(t, result.RiskScores)
}

func TestAnalyzePipelineThreadsSanitizedText(t *testing.T) {
	first, _ := newStaticScanner(t, "alpha", []string{"AcmeCorp"})
	second, _ := newStaticScanner(t, "beta", []string{"Globex"})
	svc := newTestService(ScanServiceConfig{}, nil, first, second)

	result, _, err := svc.AnalyzeOutput(context.Background(), "",
		"AcmeCorp and Globex are rivals", requests.ScanOptions{})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Equal(t, "[REDACTED] and [REDACTED] are rivals", result.SanitizedOutput)
	assert.Equal(t, 1.0, result.RiskScores["alpha"])
	assert.Equal(t, 1.0, result.RiskScores["beta"])
	assert.Len(t, result.Matches, 2)
}

func TestAnalyzeFailFastStopsPipeline(t *testing.T) {
	first, _ := newStaticScanner(t, "alpha", []string{"AcmeCorp"})
	second, _ := newStaticScanner(t, "beta", []string{"Globex"})
	svc := newTestService(ScanServiceConfig{FailFast: true}, nil, first, second)

	result, _, err := svc.AnalyzeOutput(context.Background(), "",
		"AcmeCorp and Globex are rivals", requests.ScanOptions{})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Len(t, result.RiskScores, 1)
	assert.Contains(t, result.RiskScores, "alpha")
	// The second scanner never ran, so its competitor is still visible.
	assert.Equal(t, "[REDACTED] and Globex are rivals", result.SanitizedOutput)
}

func TestAnalyzeFailFastPerRequest(t *testing.T) {
	first, _ := newStaticScanner(t, "alpha", []string{"AcmeCorp"})
	second, secondEx := newStaticScanner(t, "beta", []string{"Globex"})
	svc := newTestService(ScanServiceConfig{}, nil, first, second)

	_, _, err := svc.AnalyzeOutput(context.Background(), "",
		"AcmeCorp and Globex are rivals", requests.ScanOptions{FailFast: true})
	require.NoError(t, err)

	assert.Equal(t, 0, secondEx.Calls())
}

func TestAnalyzeUsesCache(t *testing.T) {
	sc, ex := newStaticScanner(t, "competitors", []string{"CompetitorOne"})
	svc := newTestService(ScanServiceConfig{}, NewCacheService(16, time.Minute), sc)

	ctx := context.Background()
	text := "We use CompetitorOne for X"

	first, hit, err := svc.AnalyzeOutput(ctx, "", text, requests.ScanOptions{})
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.AnalyzeOutput(ctx, "", text, requests.ScanOptions{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.ScanID, second.ScanID)
	assert.Equal(t, 1, ex.Calls())

	// SkipCache forces a fresh scan.
	_, hit, err = svc.AnalyzeOutput(ctx, "", text, requests.ScanOptions{SkipCache: true})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, ex.Calls())

	stats := svc.GetStats(ctx)
	assert.Equal(t, int64(3), stats.TotalScans)
	assert.Equal(t, int64(1), stats.CacheHits)
	// The cache hit does not re-count the flagged scan.
	assert.Equal(t, int64(2), stats.FlaggedScans)
}

func TestAnalyzePromptScansPrompt(t *testing.T) {
	sc, _ := newStaticScanner(t, "competitors", []string{"CompetitorOne"})
	svc := newTestService(ScanServiceConfig{}, nil, sc)

	result, _, err := svc.AnalyzePrompt(context.Background(),
		"Is CompetitorOne better than us?", requests.ScanOptions{})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Equal(t, "Is [REDACTED] better than us?", result.SanitizedOutput)
}

func TestAnalyzeTimeout(t *testing.T) {
	sc, _ := newStaticScanner(t, "competitors", []string{"CompetitorOne"})
	svc := newTestService(ScanServiceConfig{Timeout: time.Nanosecond}, nil, sc)

	_, _, err := svc.AnalyzeOutput(context.Background(), "",
		"We use CompetitorOne for X", requests.ScanOptions{})
	assert.Error(t, err)
}

func TestAnalyzeScannerErrorPropagates(t *testing.T) {
	ex := extractor.NewFailingExtractor(extractor.ErrModelUnavailable)
	sc, err := scanner.New(scanner.Config{
		Name:        "competitors",
		Competitors: []string{"CompetitorOne"},
	}, ex, zap.NewNop())
	require.NoError(t, err)

	svc := newTestService(ScanServiceConfig{}, nil, sc)

	_, _, err = svc.AnalyzeOutput(context.Background(), "",
		"We use CompetitorOne for X", requests.ScanOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, extractor.ErrModelUnavailable))
}

func TestBatchJobLifecycle(t *testing.T) {
	sc, _ := newStaticScanner(t, "competitors", []string{"CompetitorOne"})
	svc := newTestService(ScanServiceConfig{}, nil, sc)

	texts := []string{
		"all clear here",
		"We use CompetitorOne for X",
		"nothing to see",
	}
	jobID := svc.SubmitBatch(texts, requests.ScanOptions{})
	require.NotEmpty(t, jobID)

	status := waitForJob(t, svc, jobID)
	assert.Equal(t, "done", status.Status)
	assert.Equal(t, 3, status.Processed)
	assert.Equal(t, 3, status.Total)
	assert.Equal(t, 1.0, status.Progress)

	results, err := svc.GetJobResults(jobID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].IsValid)
	assert.False(t, results[1].IsValid)
	assert.True(t, results[2].IsValid)
}

func TestBatchJobRecordsItemErrors(t *testing.T) {
	ex := extractor.NewFailingExtractor(errors.New("model exploded"))
	sc, err := scanner.New(scanner.Config{
		Name:        "competitors",
		Competitors: []string{"CompetitorOne"},
	}, ex, zap.NewNop())
	require.NoError(t, err)

	svc := newTestService(ScanServiceConfig{}, nil, sc)

	jobID := svc.SubmitBatch([]string{"some text"}, requests.ScanOptions{})
	status := waitForJob(t, svc, jobID)
	assert.Equal(t, "done", status.Status)

	results, err := svc.GetJobResults(jobID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsValid)
	assert.NotEmpty(t, results[0].Error)
	assert.Empty(t, results[0].SanitizedOutput)
}

func TestGetJobStatusUnknown(t *testing.T) {
	svc := newTestService(ScanServiceConfig{}, nil)

	_, err := svc.GetJobStatus("nope")
	assert.Error(t, err)

	_, err = svc.GetJobResults("nope")
	assert.Error(t, err)
}

func TestReloadScannersSwapsPipelineAndVersion(t *testing.T) {
	old, _ := newStaticScanner(t, "competitors", []string{"AcmeCorp"})
	cache := NewCacheService(16, time.Minute)

	builder := func(ctx context.Context) ([]*scanner.Scanner, error) {
		sc, err := scanner.New(scanner.Config{
			Name:        "competitors",
			Competitors: []string{"NewCo"},
			Redact:      true,
		}, extractor.NewStaticExtractor([]string{"NewCo"}), zap.NewNop())
		if err != nil {
			return nil, err
		}
		return []*scanner.Scanner{sc}, nil
	}

	svc := NewScanService(ScanServiceConfig{}, []*scanner.Scanner{old}, builder, cache, nil, zap.NewNop())
	ctx := context.Background()
	text := "NewCo ships fast"

	result, _, err := svc.AnalyzeOutput(ctx, "", text, requests.ScanOptions{})
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	count, err := svc.ReloadScanners(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The version bump changes the cache key, so the stale verdict is
	// not served.
	result, hit, err := svc.AnalyzeOutput(ctx, "", text, requests.ScanOptions{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, result.IsValid)
	assert.Equal(t, "[REDACTED] ships fast", result.SanitizedOutput)
}

func TestReloadScannersWithoutBuilder(t *testing.T) {
	sc, _ := newStaticScanner(t, "competitors", []string{"AcmeCorp"})
	svc := newTestService(ScanServiceConfig{}, nil, sc)

	_, err := svc.ReloadScanners(context.Background())
	assert.Error(t, err)
}

func TestScannersReturnsOrderedCopy(t *testing.T) {
	first, _ := newStaticScanner(t, "alpha", []string{"AcmeCorp"})
	second, _ := newStaticScanner(t, "beta", []string{"Globex"})
	svc := newTestService(ScanServiceConfig{}, nil, first, second)

	scanners := svc.Scanners()
	require.Len(t, scanners, 2)
	assert.Equal(t, "alpha", scanners[0].Name())
	assert.Equal(t, "beta", scanners[1].Name())
}

func TestFlaggedScansAreAudited(t *testing.T) {
	sc, _ := newStaticScanner(t, "competitors", []string{"CompetitorOne"})
	audit := newTestAudit(t)
	svc := NewScanService(ScanServiceConfig{}, []*scanner.Scanner{sc}, nil, nil, audit, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.AnalyzeOutput(ctx, "", "We use CompetitorOne for X", requests.ScanOptions{})
	require.NoError(t, err)
	_, _, err = svc.AnalyzeOutput(ctx, "", "all clear", requests.ScanOptions{})
	require.NoError(t, err)

	records, err := audit.RecentFlagged(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "competitors", records[0].Scanner)
	assert.Equal(t, []string{"CompetitorOne"}, records[0].Competitors)
	assert.Equal(t, 1.0, records[0].RiskScore)

	stats := svc.GetStats(ctx)
	assert.Equal(t, int64(1), stats.FlaggedLast24)
}
