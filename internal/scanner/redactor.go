package scanner

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RedactionPlaceholder replaces every redacted region. A fixed token keeps
// output length independent of what was matched.
const RedactionPlaceholder = "[REDACTED]"

// Range is one half-open byte range [Start, End) scheduled for redaction.
type Range struct {
	Start int
	End   int
}

// Redactor replaces matched byte ranges with a placeholder while preserving
// every byte outside them exactly.
type Redactor struct {
	placeholder string
	logger      *zap.Logger
}

func NewRedactor(placeholder string, logger *zap.Logger) *Redactor {
	if placeholder == "" {
		placeholder = RedactionPlaceholder
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redactor{placeholder: placeholder, logger: logger}
}

// Redact rewrites text with each merged range replaced by the placeholder.
// Overlapping ranges collapse into a single redacted region first; splicing
// then runs in descending offset order so earlier offsets stay valid while
// the string shrinks and grows.
func (r *Redactor) Redact(text string, ranges []Range) string {
	merged := mergeRanges(text, ranges, r.logger)
	if len(merged) == 0 {
		return text
	}
	out := text
	for i := len(merged) - 1; i >= 0; i-- {
		var b strings.Builder
		b.Grow(len(out) - (merged[i].End - merged[i].Start) + len(r.placeholder))
		b.WriteString(out[:merged[i].Start])
		b.WriteString(r.placeholder)
		b.WriteString(out[merged[i].End:])
		out = b.String()
	}
	return out
}

// mergeRanges drops ranges that do not fit the text and unions the
// overlapping remainder. The result is sorted ascending and disjoint.
// Adjacent ranges stay separate; only true overlap merges.
func mergeRanges(text string, ranges []Range, logger *zap.Logger) []Range {
	valid := make([]Range, 0, len(ranges))
	for _, rg := range ranges {
		if rg.Start < 0 || rg.End > len(text) || rg.Start >= rg.End {
			logger.Warn("dropping malformed redaction range",
				zap.Int("start", rg.Start),
				zap.Int("end", rg.End),
				zap.Int("text_bytes", len(text)))
			continue
		}
		valid = append(valid, rg)
	}
	if len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start == valid[j].Start {
			return valid[i].End > valid[j].End
		}
		return valid[i].Start < valid[j].Start
	})

	merged := valid[:1]
	for _, rg := range valid[1:] {
		last := &merged[len(merged)-1]
		if rg.Start < last.End {
			if rg.End > last.End {
				last.End = rg.End
			}
			continue
		}
		merged = append(merged, rg)
	}
	return merged
}
