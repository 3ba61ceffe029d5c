package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// NameNormalizer canonicalizes organization names so equivalent surface
// forms compare equal: "Competitor-1.", "competitor1" and "COMPETITOR 1"
// all reduce to the same string. The same normalizer runs over competitor
// lists and extracted mentions, which is what makes matching symmetric.
//
// Pipeline: lowercase -> diacritic fold -> ASCII transliteration ->
// punctuation to spaces -> corporate suffix strip -> leading article strip
// -> whitespace collapse.
type NameNormalizer struct {
	punctuationPattern *regexp.Regexp
	whitespacePattern  *regexp.Regexp
	suffixPattern      *regexp.Regexp
	articlePattern     *regexp.Regexp
}

// NewNameNormalizer builds a normalizer from the embedded rules plus any
// extra corporate suffixes the caller configures per scanner.
func NewNameNormalizer(extraSuffixes ...string) (*NameNormalizer, error) {
	rules, err := LoadRulesConfig()
	if err != nil {
		return nil, fmt.Errorf("load normalizer rules: %w", err)
	}
	return newNameNormalizer(rules, extraSuffixes)
}

func newNameNormalizer(rules *RulesConfig, extraSuffixes []string) (*NameNormalizer, error) {
	suffixes := make([]string, 0, len(rules.CorporateSuffixes)+len(extraSuffixes))
	for _, s := range append(append([]string{}, rules.CorporateSuffixes...), extraSuffixes...) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			suffixes = append(suffixes, regexp.QuoteMeta(s))
		}
	}
	articles := make([]string, 0, len(rules.LeadingArticles))
	for _, a := range rules.LeadingArticles {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			articles = append(articles, regexp.QuoteMeta(a))
		}
	}

	n := &NameNormalizer{
		punctuationPattern: regexp.MustCompile(`[^a-z0-9\s]+`),
		whitespacePattern:  regexp.MustCompile(`\s+`),
	}
	if len(suffixes) > 0 {
		p, err := regexp.Compile(`\s+(?:` + strings.Join(suffixes, "|") + `)$`)
		if err != nil {
			return nil, fmt.Errorf("compile suffix rules: %w", err)
		}
		n.suffixPattern = p
	}
	if len(articles) > 0 {
		p, err := regexp.Compile(`^(?:` + strings.Join(articles, "|") + `)\s+`)
		if err != nil {
			return nil, fmt.Errorf("compile article rules: %w", err)
		}
		n.articlePattern = p
	}
	return n, nil
}

// Normalize canonicalizes one name. Empty input stays empty; stripping never
// reduces a non-empty name to nothing (the pre-strip form wins in that case).
func (n *NameNormalizer) Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	// Fold accents first, then transliterate whatever is still non-ASCII
	// (CJK, Cyrillic) so every script lands in the same comparison space.
	s = StripDiacritics(s)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)

	s = n.punctuationPattern.ReplaceAllString(s, " ")
	s = n.whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	base := s
	if n.suffixPattern != nil {
		for {
			next := n.suffixPattern.ReplaceAllString(s, "")
			if next == s {
				break
			}
			s = next
		}
	}
	if n.articlePattern != nil {
		s = n.articlePattern.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return base
	}
	return s
}

// NormalizeAll maps Normalize over a list, preserving order.
func (n *NameNormalizer) NormalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = n.Normalize(name)
	}
	return out
}
