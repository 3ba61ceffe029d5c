package extractor

import (
	"context"
	"strings"
	"sync"
)

// StaticExtractor serves scripted answers without any model. Tests use it to
// pin pipeline behavior (including how often Extract is invoked); the
// "static" backend wires it with a fixed term list so the service can run in
// environments with no NER model at all.
type StaticExtractor struct {
	mu    sync.Mutex
	terms []string
	spans []Span
	err   error
	calls int
}

// NewStaticExtractor returns an extractor that reports every occurrence of
// the given terms, located case-insensitively in the scanned text.
func NewStaticExtractor(terms []string) *StaticExtractor {
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return &StaticExtractor{terms: kept}
}

// NewFixedExtractor returns an extractor that answers every call with the
// given spans, regardless of input text.
func NewFixedExtractor(spans []Span) *StaticExtractor {
	return &StaticExtractor{spans: spans}
}

// NewFailingExtractor returns an extractor whose Extract always fails with
// err.
func NewFailingExtractor(err error) *StaticExtractor {
	return &StaticExtractor{err: err}
}

func (s *StaticExtractor) Extract(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls++
	err := s.err
	fixed := append([]Span(nil), s.spans...)
	terms := s.terms
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(fixed) > 0 {
		return fixed, nil
	}

	spans := make([]Span, 0)
	lower := strings.ToLower(text)
	for _, term := range terms {
		needle := strings.ToLower(term)
		from := 0
		for {
			idx := strings.Index(lower[from:], needle)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(needle)
			spans = append(spans, Span{
				Text:  text[start:end],
				Start: start,
				End:   end,
				Label: "ORG",
				Score: 1.0,
			})
			from = end
		}
	}
	return spans, nil
}

// Calls reports how many times Extract has run.
func (s *StaticExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
