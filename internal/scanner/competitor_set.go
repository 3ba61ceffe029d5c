package scanner

import (
	"fmt"
	"strings"
)

// CompetitorSet is the ordered list of names one scanner watches for.
// Order is meaningful (the earliest listed competitor wins score ties) and
// the set never changes after construction. An empty set is legal and makes
// every scan trivially valid.
type CompetitorSet struct {
	names []string
}

// NewCompetitorSet validates and deduplicates names. Duplicates compare
// case-insensitively after trimming; the first occurrence keeps its position
// and original casing. A blank name anywhere in the list is a configuration
// error.
func NewCompetitorSet(names []string) (*CompetitorSet, error) {
	ordered := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: competitor %d is empty", ErrInvalidConfiguration, i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, name)
	}
	return &CompetitorSet{names: ordered}, nil
}

// Names returns the deduplicated names in configured order. The copy keeps
// the set immutable.
func (s *CompetitorSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Len reports how many distinct names the set holds.
func (s *CompetitorSet) Len() int {
	return len(s.names)
}

// IsEmpty reports whether there is nothing to scan for.
func (s *CompetitorSet) IsEmpty() bool {
	return len(s.names) == 0
}
