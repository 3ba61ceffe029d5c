package scanner

import (
	"strings"
	"testing"
)

func TestRedactSingleRange(t *testing.T) {
	r := NewRedactor("", nil)
	got := r.Redact("We use AcmeCorp daily", []Range{{Start: 7, End: 15}})
	if want := "We use [REDACTED] daily"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRedactMultipleDisjointRanges(t *testing.T) {
	r := NewRedactor("", nil)
	text := "Acme beats Globex every quarter"
	got := r.Redact(text, []Range{{Start: 11, End: 17}, {Start: 0, End: 4}})
	if want := "[REDACTED] beats [REDACTED] every quarter"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRedactMergesOverlaps(t *testing.T) {
	r := NewRedactor("", nil)
	text := "AcmeCorp Systems ships"
	tests := []struct {
		name   string
		ranges []Range
	}{
		{"partial overlap", []Range{{0, 8}, {5, 16}}},
		{"containment", []Range{{0, 16}, {4, 9}}},
		{"identical", []Range{{0, 16}, {0, 16}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Redact(text, tt.ranges)
			if want := "[REDACTED] ships"; got != want {
				t.Errorf("got %q, want %q", got, want)
			}
			if strings.Count(got, RedactionPlaceholder) != 1 {
				t.Errorf("overlap must collapse to one placeholder: %q", got)
			}
		})
	}
}

func TestRedactAdjacentRangesStaySeparate(t *testing.T) {
	r := NewRedactor("", nil)
	got := r.Redact("abcdef", []Range{{0, 3}, {3, 6}})
	if want := "[REDACTED][REDACTED]"; got != want {
		t.Errorf("adjacent ranges are not overlapping: got %q, want %q", got, want)
	}
}

func TestRedactDropsInvalidRanges(t *testing.T) {
	r := NewRedactor("", nil)
	text := "short text"
	got := r.Redact(text, []Range{
		{Start: -1, End: 3},
		{Start: 4, End: 99},
		{Start: 5, End: 5},
		{Start: 7, End: 2},
	})
	if got != text {
		t.Errorf("invalid ranges must leave the text alone, got %q", got)
	}
}

func TestRedactNoRanges(t *testing.T) {
	r := NewRedactor("", nil)
	if got := r.Redact("untouched", nil); got != "untouched" {
		t.Errorf("got %q", got)
	}
}

func TestRedactPreservesSurroundingBytes(t *testing.T) {
	r := NewRedactor("", nil)
	text := "prefix\tAcme\nsuffix é"
	got := r.Redact(text, []Range{{Start: 7, End: 11}})
	if want := "prefix\t[REDACTED]\nsuffix é"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRedactCustomPlaceholder(t *testing.T) {
	r := NewRedactor("<GONE>", nil)
	if got := r.Redact("Acme!", []Range{{0, 4}}); got != "<GONE>!" {
		t.Errorf("got %q", got)
	}
}

func TestRedactWholeText(t *testing.T) {
	r := NewRedactor("", nil)
	if got := r.Redact("Acme", []Range{{0, 4}}); got != RedactionPlaceholder {
		t.Errorf("got %q", got)
	}
}
