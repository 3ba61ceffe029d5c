package extractor

import (
	"reflect"
	"testing"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []word
	}{
		{
			name: "simple sentence",
			text: "We use AcmeCorp daily.",
			want: []word{
				{Text: "We", Start: 0, End: 2},
				{Text: "use", Start: 3, End: 6},
				{Text: "AcmeCorp", Start: 7, End: 15},
				{Text: "daily", Start: 16, End: 21},
			},
		},
		{
			name: "punctuation splits words",
			text: "Acme-Corp, Inc.",
			want: []word{
				{Text: "Acme", Start: 0, End: 4},
				{Text: "Corp", Start: 5, End: 9},
				{Text: "Inc", Start: 11, End: 14},
			},
		},
		{
			name: "trailing word without terminator",
			text: "ends with Acme",
			want: []word{
				{Text: "ends", Start: 0, End: 4},
				{Text: "with", Start: 5, End: 9},
				{Text: "Acme", Start: 10, End: 14},
			},
		},
		{
			name: "empty",
			text: "",
			want: []word{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitWords(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitWords(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
			for _, w := range got {
				if tt.text[w.Start:w.End] != w.Text {
					t.Errorf("offsets do not reproduce %q: [%d,%d)", w.Text, w.Start, w.End)
				}
			}
		})
	}
}

func testTokenizer() *wordPieceTokenizer {
	return &wordPieceTokenizer{
		vocab: map[string]int{
			"[UNK]":  0,
			"[CLS]":  1,
			"[SEP]":  2,
			"acme":   3,
			"##corp": 4,
			"soft":   5,
			"##ware": 6,
			"we":     7,
			"use":    8,
		},
		unkID:      0,
		clsID:      1,
		sepID:      2,
		maxWordLen: 100,
		maxSeqLen:  512,
		lowercase:  true,
	}
}

func TestWordPieces(t *testing.T) {
	tok := testTokenizer()
	tests := []struct {
		word string
		want []int
	}{
		{"acme", []int{3}},
		{"Acme", []int{3}},
		{"acmecorp", []int{3, 4}},
		{"software", []int{5, 6}},
		{"zzz", []int{0}},
		{"", []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got := tok.pieces(tt.word)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pieces(%q) = %v, want %v", tt.word, got, tt.want)
			}
		})
	}
}

func TestEncodeFraming(t *testing.T) {
	tok := testTokenizer()
	enc := tok.encode("We use AcmeCorp")
	if enc.InputIDs[0] != int64(tok.clsID) {
		t.Fatalf("sequence must open with [CLS], got %d", enc.InputIDs[0])
	}
	if enc.InputIDs[len(enc.InputIDs)-1] != int64(tok.sepID) {
		t.Fatalf("sequence must close with [SEP], got %d", enc.InputIDs[len(enc.InputIDs)-1])
	}
	if enc.WordIndex[0] != -1 || enc.WordIndex[len(enc.WordIndex)-1] != -1 {
		t.Fatal("special positions must map to word index -1")
	}
	// we(7) use(8) acme(3) ##corp(4) between the specials
	want := []int64{1, 7, 8, 3, 4, 2}
	if !reflect.DeepEqual(enc.InputIDs, want) {
		t.Fatalf("InputIDs = %v, want %v", enc.InputIDs, want)
	}
	if len(enc.AttentionMask) != len(enc.InputIDs) || len(enc.TokenTypeIDs) != len(enc.InputIDs) {
		t.Fatal("mask and type id lengths must match input ids")
	}
	for i, m := range enc.AttentionMask {
		if m != 1 {
			t.Fatalf("attention mask position %d = %d, want 1", i, m)
		}
	}
	if len(enc.Words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(enc.Words))
	}
	// both pieces of AcmeCorp point at word 2
	if enc.WordIndex[3] != 2 || enc.WordIndex[4] != 2 {
		t.Fatalf("piece-to-word mapping wrong: %v", enc.WordIndex)
	}
}

func TestDecodeBIO(t *testing.T) {
	words := []word{
		{Text: "We", Start: 0, End: 2},
		{Text: "use", Start: 3, End: 6},
		{Text: "Acme", Start: 7, End: 11},
		{Text: "Corp", Start: 12, End: 16},
		{Text: "and", Start: 17, End: 20},
		{Text: "Globex", Start: 21, End: 27},
	}
	labels := []string{"O", "O", "B-ORG", "I-ORG", "O", "B-ORG"}
	scores := []float64{0, 0, 1.0, 0.5, 0, 0.85}

	spans := decodeBIO(words, labels, scores)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Start != 7 || spans[0].End != 16 || spans[0].Type != "ORG" {
		t.Errorf("unexpected first span %+v", spans[0])
	}
	if got, want := spans[0].Score, 0.75; got != want {
		t.Errorf("first span score = %v, want %v", got, want)
	}
	if spans[1].Start != 21 || spans[1].End != 27 {
		t.Errorf("unexpected second span %+v", spans[1])
	}
}

func TestDecodeBIOBoundaries(t *testing.T) {
	words := []word{
		{Text: "Acme", Start: 0, End: 4},
		{Text: "Globex", Start: 5, End: 11},
		{Text: "Initech", Start: 12, End: 19},
	}
	tests := []struct {
		name   string
		labels []string
		want   int
	}{
		{"adjacent B labels stay separate", []string{"B-ORG", "B-ORG", "B-ORG"}, 3},
		{"type change splits the run", []string{"B-ORG", "I-LOC", "O"}, 2},
		{"bare I opens a span", []string{"O", "I-ORG", "I-ORG"}, 1},
		{"unparseable labels are skipped", []string{"ORG", "O", "O"}, 0},
		{"trailing span is flushed", []string{"O", "O", "B-ORG"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := make([]float64, len(words))
			spans := decodeBIO(words, tt.labels, scores)
			if len(spans) != tt.want {
				t.Errorf("got %d spans, want %d: %+v", len(spans), tt.want, spans)
			}
		})
	}
}
