package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/competitor-scanner/internal/extractor"
	"github.com/competitor-scanner/internal/matcher"
	"github.com/competitor-scanner/internal/normalizer"
)

// ErrInvalidConfiguration reports a scanner configuration that can never
// run: a threshold outside (0,1] or a blank competitor name. It is surfaced
// at construction, never during a scan.
var ErrInvalidConfiguration = errors.New("scanner: invalid configuration")

// DefaultThreshold applies when a configuration leaves the similarity
// threshold unset.
const DefaultThreshold = 0.5

// Config is one scanner's read-only settings.
type Config struct {
	// Name identifies the scanner in pipelines and per-scanner results.
	Name string `json:"name" yaml:"name"`
	// Competitors are the names to watch for, in priority order.
	Competitors []string `json:"competitors" yaml:"competitors"`
	// Threshold is the minimum similarity for a match, in (0,1].
	// Zero means DefaultThreshold.
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// Redact controls whether matched mentions are replaced in the output.
	Redact bool `json:"redact" yaml:"redact"`
	// ExtraSuffixes extends the embedded corporate-suffix rules for this
	// scanner only.
	ExtraSuffixes []string `json:"extra_suffixes" yaml:"extra_suffixes"`
}

// ScanResult is the verdict over one text, fresh per invocation.
type ScanResult struct {
	SanitizedText string          `json:"sanitized_text"`
	IsValid       bool            `json:"is_valid"`
	RiskScore     float64         `json:"risk_score"`
	Matches       []matcher.Match `json:"matches"`
	EntityCount   int             `json:"entity_count"`
}

// Scanner detects competitor mentions in model output. It wires the
// extractor, normalizer, matcher and redactor into one synchronous pipeline;
// concurrent scans share only this read-only state.
type Scanner struct {
	name      string
	set       *CompetitorSet
	threshold float64
	redact    bool
	extractor extractor.Extractor
	matcher   *matcher.CompetitorMatcher
	redactor  *Redactor
	logger    *zap.Logger
}

// New validates cfg eagerly and builds the pipeline around ex.
func New(cfg Config, ex extractor.Extractor, logger *zap.Logger) (*Scanner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ex == nil {
		return nil, fmt.Errorf("%w: extractor is required", ErrInvalidConfiguration)
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside (0,1]", ErrInvalidConfiguration, cfg.Threshold)
	}
	set, err := NewCompetitorSet(cfg.Competitors)
	if err != nil {
		return nil, err
	}
	norm, err := normalizer.NewNameNormalizer(cfg.ExtraSuffixes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	name := cfg.Name
	if name == "" {
		name = "competitors"
	}
	return &Scanner{
		name:      name,
		set:       set,
		threshold: threshold,
		redact:    cfg.Redact,
		extractor: ex,
		matcher:   matcher.NewCompetitorMatcher(set.Names(), threshold, norm, logger),
		redactor:  NewRedactor("", logger),
		logger:    logger,
	}, nil
}

// Scan checks the output text produced for prompt. The prompt is accepted
// for interface symmetry with prompt-side scanners and is not scanned here.
// An empty competitor set short-circuits without ever invoking the
// extractor. A model failure is fatal for the scan and propagates.
func (s *Scanner) Scan(ctx context.Context, prompt, output string) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{
		SanitizedText: output,
		IsValid:       true,
		RiskScore:     0,
		Matches:       make([]matcher.Match, 0),
	}

	if s.set.IsEmpty() {
		s.logger.Debug("no competitors configured, skipping extraction",
			zap.String("scanner", s.name))
		return result, nil
	}

	spans, err := s.extractor.Extract(ctx, output)
	if err != nil {
		if errors.Is(err, extractor.ErrModelUnavailable) {
			s.logger.Error("extractor unavailable",
				zap.String("scanner", s.name),
				zap.Error(err))
			return nil, err
		}
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	valid := make([]extractor.Span, 0, len(spans))
	for _, sp := range spans {
		if sp.Start < 0 || sp.End > len(output) || sp.Start >= sp.End {
			s.logger.Warn("dropping malformed span",
				zap.String("scanner", s.name),
				zap.String("text", sp.Text),
				zap.Int("start", sp.Start),
				zap.Int("end", sp.End),
				zap.Int("output_bytes", len(output)))
			continue
		}
		valid = append(valid, sp)
	}
	result.EntityCount = len(valid)

	matches := s.matcher.MatchAll(valid)
	result.Matches = matches
	for _, m := range matches {
		if m.Similarity > result.RiskScore {
			result.RiskScore = m.Similarity
		}
	}
	result.IsValid = len(matches) == 0

	if s.redact && len(matches) > 0 {
		ranges := make([]Range, len(matches))
		for i, m := range matches {
			ranges[i] = Range{Start: m.Span.Start, End: m.Span.End}
		}
		result.SanitizedText = s.redactor.Redact(output, ranges)
	}

	s.logger.Debug("scan completed",
		zap.String("scanner", s.name),
		zap.Bool("is_valid", result.IsValid),
		zap.Float64("risk_score", result.RiskScore),
		zap.Int("entities", result.EntityCount),
		zap.Int("matches", len(matches)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// Name identifies this scanner in pipelines.
func (s *Scanner) Name() string {
	return s.name
}

// Competitors lists the deduplicated names in configured order.
func (s *Scanner) Competitors() []string {
	return s.set.Names()
}

// Threshold reports the effective similarity floor.
func (s *Scanner) Threshold() float64 {
	return s.threshold
}

// Redacts reports whether matches rewrite the output.
func (s *Scanner) Redacts() bool {
	return s.redact
}
