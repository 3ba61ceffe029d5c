package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// defaultOrgLabels are the prose entity labels treated as organization
// mentions. prose tags companies as ORG but frequently falls back to GPE,
// so both are kept by default.
var defaultOrgLabels = []string{"ORG", "GPE"}

// ProseExtractor runs the pure-Go prose NER model in-process. It needs no
// model files or external runtime, which makes it the default backend.
type ProseExtractor struct {
	labels map[string]bool
	logger *zap.Logger
}

// NewProseExtractor builds a prose-backed extractor keeping entities whose
// label is in labels. An empty labels slice selects the defaults.
func NewProseExtractor(labels []string, logger *zap.Logger) *ProseExtractor {
	if len(labels) == 0 {
		labels = defaultOrgLabels
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	keep := make(map[string]bool, len(labels))
	for _, l := range labels {
		keep[strings.ToUpper(strings.TrimSpace(l))] = true
	}
	return &ProseExtractor{labels: keep, logger: logger}
}

// Extract tags text with prose and maps every kept entity back to byte
// offsets. prose reports entity text without positions, so each mention is
// located with a forward scan over the original string; the cursor per
// mention text only moves forward, so repeated mentions land on distinct,
// non-overlapping occurrences.
func (p *ProseExtractor) Extract(ctx context.Context, text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("prose document: %w", err)
	}

	spans := make([]Span, 0)
	cursor := make(map[string]int)
	for _, ent := range doc.Entities() {
		if !p.labels[ent.Label] {
			continue
		}
		mention := strings.TrimSpace(ent.Text)
		if mention == "" {
			continue
		}
		from := cursor[mention]
		if from > len(text) {
			continue
		}
		idx := strings.Index(text[from:], mention)
		if idx < 0 {
			// prose can rewrite whitespace inside multi-token entities; a
			// mention that no longer appears verbatim is skipped rather
			// than guessed at.
			continue
		}
		s := from + idx
		e := s + len(mention)
		cursor[mention] = e
		spans = append(spans, Span{
			Text:  mention,
			Start: s,
			End:   e,
			Label: ent.Label,
			Score: 1.0,
		})
	}

	p.logger.Debug("prose extraction finished",
		zap.Int("entities", len(spans)),
		zap.Int("text_bytes", len(text)),
		zap.Duration("duration", time.Since(start)))
	return spans, nil
}
