package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
)

// word is a run of letters and digits with its byte offsets in the source
// text. Offsets survive tokenization so model predictions can be projected
// back onto the original string.
type word struct {
	Text       string
	Start, End int
}

// splitWords splits text into letter/digit runs. Everything else
// (whitespace, punctuation, symbols) separates words and is never part of
// one.
func splitWords(text string) []word {
	words := make([]word, 0)
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, word{Text: text[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, word{Text: text[start:], Start: start, End: len(text)})
	}
	return words
}

// wordPieceTokenizer implements the BERT WordPiece scheme over a
// tokenizer.json vocabulary: longest-prefix pieces, "##" continuation
// markers, [UNK] for anything the vocabulary cannot cover.
type wordPieceTokenizer struct {
	vocab      map[string]int
	unkID      int
	clsID      int
	sepID      int
	maxWordLen int
	maxSeqLen  int
	lowercase  bool
}

// encoding is a tokenized sequence ready for the model. WordIndex maps each
// model position back to its word (or -1 for [CLS]/[SEP]).
type encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	WordIndex     []int
	Words         []word
}

type tokenizerFile struct {
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
	Normalizer struct {
		Lowercase *bool `json:"lowercase"`
	} `json:"normalizer"`
}

func newWordPieceTokenizer(path string) (*wordPieceTokenizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	var cfg tokenizerFile
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}
	if len(cfg.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer.json model.vocab is empty")
	}
	lowercase := true
	if cfg.Normalizer.Lowercase != nil {
		lowercase = *cfg.Normalizer.Lowercase
	}
	t := &wordPieceTokenizer{
		vocab:      cfg.Model.Vocab,
		maxWordLen: 100,
		maxSeqLen:  512,
		lowercase:  lowercase,
	}
	var ok bool
	if t.unkID, ok = t.vocab["[UNK]"]; !ok {
		return nil, fmt.Errorf("tokenizer vocab is missing [UNK]")
	}
	if t.clsID, ok = t.vocab["[CLS]"]; !ok {
		return nil, fmt.Errorf("tokenizer vocab is missing [CLS]")
	}
	if t.sepID, ok = t.vocab["[SEP]"]; !ok {
		return nil, fmt.Errorf("tokenizer vocab is missing [SEP]")
	}
	return t, nil
}

// encode wraps the word sequence in [CLS]...[SEP] and truncates at maxSeqLen
// whole pieces, never splitting a word across the boundary mid-stream.
func (t *wordPieceTokenizer) encode(text string) *encoding {
	words := splitWords(text)
	enc := &encoding{
		InputIDs:      []int64{int64(t.clsID)},
		AttentionMask: []int64{1},
		TokenTypeIDs:  []int64{0},
		WordIndex:     []int{-1},
		Words:         words,
	}
	for wi, w := range words {
		for _, id := range t.pieces(w.Text) {
			if len(enc.InputIDs) >= t.maxSeqLen-1 {
				break
			}
			enc.InputIDs = append(enc.InputIDs, int64(id))
			enc.AttentionMask = append(enc.AttentionMask, 1)
			enc.TokenTypeIDs = append(enc.TokenTypeIDs, 0)
			enc.WordIndex = append(enc.WordIndex, wi)
		}
		if len(enc.InputIDs) >= t.maxSeqLen-1 {
			break
		}
	}
	enc.InputIDs = append(enc.InputIDs, int64(t.sepID))
	enc.AttentionMask = append(enc.AttentionMask, 1)
	enc.TokenTypeIDs = append(enc.TokenTypeIDs, 0)
	enc.WordIndex = append(enc.WordIndex, -1)
	return enc
}

// pieces greedily matches the longest vocabulary prefix, then continues with
// "##"-prefixed pieces. A word with any uncoverable remainder collapses to
// [UNK] as a whole.
func (t *wordPieceTokenizer) pieces(w string) []int {
	if w == "" {
		return []int{t.unkID}
	}
	if t.lowercase {
		w = strings.ToLower(w)
	}
	runes := []rune(w)
	if len(runes) > t.maxWordLen {
		return []int{t.unkID}
	}
	if id, ok := t.vocab[string(runes)]; ok {
		return []int{id}
	}
	ids := make([]int, 0)
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := -1
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
			end--
		}
		if found == -1 {
			return []int{t.unkID}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

// labeledSpan is a contiguous run of same-typed words produced by BIO
// decoding, scored with the mean of its word scores.
type labeledSpan struct {
	Type       string
	Start, End int
	Score      float64
}

// decodeBIO merges per-word B-/I- predictions into spans. A B- prefix or a
// type change opens a new span; O (or anything unparseable) flushes the
// current one.
func decodeBIO(words []word, labels []string, scores []float64) []labeledSpan {
	out := make([]labeledSpan, 0)
	var cur *labeledSpan
	count := 0.0
	flush := func() {
		if cur != nil {
			cur.Score = cur.Score / math.Max(1, count)
			out = append(out, *cur)
			cur = nil
			count = 0
		}
	}
	for i := range words {
		label := labels[i]
		if label == "O" || label == "" {
			flush()
			continue
		}
		parts := strings.SplitN(label, "-", 2)
		if len(parts) != 2 || (parts[0] != "B" && parts[0] != "I") {
			flush()
			continue
		}
		prefix, typ := parts[0], parts[1]
		if prefix == "B" || cur == nil || cur.Type != typ {
			flush()
			cur = &labeledSpan{Type: typ, Start: words[i].Start, End: words[i].End, Score: scores[i]}
			count = 1
			continue
		}
		cur.End = words[i].End
		cur.Score += scores[i]
		count++
	}
	flush()
	return out
}
