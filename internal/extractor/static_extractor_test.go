package extractor

import (
	"context"
	"errors"
	"testing"
)

func TestStaticExtractorLocatesTerms(t *testing.T) {
	ex := NewStaticExtractor([]string{"AcmeCorp"})
	text := "We tried acmecorp before AcmeCorp bought us."

	spans, err := ex.Extract(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	for _, s := range spans {
		if text[s.Start:s.End] != s.Text {
			t.Errorf("offsets do not reproduce span %q: [%d,%d)", s.Text, s.Start, s.End)
		}
	}
	if spans[0].Text != "acmecorp" || spans[1].Text != "AcmeCorp" {
		t.Errorf("spans must keep the original casing: %+v", spans)
	}
}

func TestStaticExtractorCountsCalls(t *testing.T) {
	ex := NewStaticExtractor(nil)
	if ex.Calls() != 0 {
		t.Fatal("fresh extractor must report zero calls")
	}
	for i := 0; i < 3; i++ {
		if _, err := ex.Extract(context.Background(), "anything"); err != nil {
			t.Fatal(err)
		}
	}
	if got := ex.Calls(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestFailingExtractor(t *testing.T) {
	boom := errors.New("model exploded")
	ex := NewFailingExtractor(boom)
	_, err := ex.Extract(context.Background(), "text")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if ex.Calls() != 1 {
		t.Fatal("failed calls still count")
	}
}

func TestFixedExtractorIgnoresText(t *testing.T) {
	fixed := []Span{{Text: "Globex", Start: 3, End: 9, Label: "ORG", Score: 0.9}}
	ex := NewFixedExtractor(fixed)
	spans, err := ex.Extract(context.Background(), "completely unrelated")
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 || spans[0].Text != "Globex" {
		t.Fatalf("unexpected spans %+v", spans)
	}
}

func TestStaticExtractorHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := NewStaticExtractor([]string{"Acme"})
	if _, err := ex.Extract(ctx, "Acme"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
