package matcher

import (
	"math"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
	"go.uber.org/zap"

	"github.com/competitor-scanner/internal/extractor"
	"github.com/competitor-scanner/internal/normalizer"
)

// MatchKind describes how a span hit a competitor.
type MatchKind string

const (
	MatchKindExact MatchKind = "exact"
	MatchKindFuzzy MatchKind = "fuzzy"
)

// Match pairs one extracted span with the competitor it hit. Competitor is
// the name exactly as listed in the configuration, Similarity is always at
// or above the matcher threshold.
type Match struct {
	Span       extractor.Span `json:"span"`
	Competitor string         `json:"competitor"`
	Similarity float64        `json:"similarity"`
	Kind       MatchKind      `json:"kind"`
}

// candidate is one listed competitor with its precomputed normalized form.
type candidate struct {
	name       string
	normalized string
}

// CompetitorMatcher scores extracted mentions against a fixed competitor
// list. Names are normalized once at construction; each span is normalized
// with the same rules, so "ACME Inc." and "acme" land in the same space.
type CompetitorMatcher struct {
	candidates []candidate
	threshold  float64
	norm       *normalizer.NameNormalizer
	logger     *zap.Logger
}

// NewCompetitorMatcher builds a matcher over names in their configured
// order. The order is significant: when two competitors score identically
// against a span, the earliest listed one wins.
func NewCompetitorMatcher(names []string, threshold float64, norm *normalizer.NameNormalizer, logger *zap.Logger) *CompetitorMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	candidates := make([]candidate, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, candidate{
			name:       name,
			normalized: norm.Normalize(name),
		})
	}
	return &CompetitorMatcher{
		candidates: candidates,
		threshold:  threshold,
		norm:       norm,
		logger:     logger,
	}
}

// Threshold reports the configured similarity floor.
func (cm *CompetitorMatcher) Threshold() float64 {
	return cm.threshold
}

// MatchSpan scores one span against every competitor and returns the best
// match when it reaches the threshold. Nothing below the threshold is ever
// returned.
func (cm *CompetitorMatcher) MatchSpan(span extractor.Span) (Match, bool) {
	normalized := cm.norm.Normalize(span.Text)
	if normalized == "" {
		return Match{}, false
	}

	best := -1
	bestScore := 0.0
	for i, cand := range cm.candidates {
		if cand.normalized == "" {
			continue
		}
		score := cm.similarity(normalized, cand.normalized)
		// Strict > keeps the earliest listed competitor on ties.
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 || bestScore < cm.threshold {
		return Match{}, false
	}

	kind := MatchKindFuzzy
	if normalized == cm.candidates[best].normalized {
		kind = MatchKindExact
	}
	return Match{
		Span:       span,
		Competitor: cm.candidates[best].name,
		Similarity: bestScore,
		Kind:       kind,
	}, true
}

// MatchAll runs MatchSpan over an extraction pass, keeping span order.
func (cm *CompetitorMatcher) MatchAll(spans []extractor.Span) []Match {
	start := time.Now()
	matches := make([]Match, 0)
	for _, span := range spans {
		if m, ok := cm.MatchSpan(span); ok {
			matches = append(matches, m)
		}
	}
	cm.logger.Debug("competitor matching completed",
		zap.Int("spans", len(spans)),
		zap.Int("matches", len(matches)),
		zap.Int("competitors", len(cm.candidates)),
		zap.Duration("duration", time.Since(start)))
	return matches
}

// similarity blends Jaro-Winkler with a length-normalized edit distance and
// keeps the higher of the two. Jaro-Winkler favors shared prefixes, the
// Levenshtein score catches transpositions deeper in the name.
func (cm *CompetitorMatcher) similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	score := smetrics.JaroWinkler(a, b, 0.7, 4)

	levDist := levenshtein.ComputeDistance(a, b)
	maxLen := math.Max(float64(len(a)), float64(len(b)))
	if maxLen > 0 {
		if levScore := 1.0 - float64(levDist)/maxLen; levScore > score {
			score = levScore
		}
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Competitors lists the configured names in order, mostly for admin
// summaries.
func (cm *CompetitorMatcher) Competitors() []string {
	names := make([]string, len(cm.candidates))
	for i, c := range cm.candidates {
		names[i] = c.name
	}
	return names
}
