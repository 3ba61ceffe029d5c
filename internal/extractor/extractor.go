package extractor

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned when the NER backend cannot serve the
// request at all: model files are missing, the runtime is not compiled in,
// or session initialization failed. The error is fatal for the current scan
// and is never retried here.
var ErrModelUnavailable = errors.New("extractor: model unavailable")

// Span is a single entity mention located in the scanned text. Start and End
// are byte offsets into the original string, End exclusive, so
// text[Start:End] reproduces the mention exactly.
type Span struct {
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Extractor finds organization-like entity mentions in free text.
// Implementations must be safe for concurrent use; the text itself is never
// mutated.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Span, error)
}
