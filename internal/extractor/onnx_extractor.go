package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// nerSession runs one forward pass of a token-classification model and
// returns per-position logits, one row per input position.
type nerSession interface {
	Run(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error)
	Close() error
}

// ONNXConfig locates and bounds the ONNX NER backend. ModelDir must contain
// model.onnx, tokenizer.json and labels.json (HuggingFace id2label export).
type ONNXConfig struct {
	ModelDir string
	MaxBytes int
	MinScore float64
	Labels   []string
}

// ONNXExtractor runs a BERT-style token-classification model through ONNX
// Runtime. The session loads lazily on first use; builds without the
// onnxruntime tag fail that load and every Extract reports
// ErrModelUnavailable.
type ONNXExtractor struct {
	cfg    ONNXConfig
	logger *zap.Logger

	once      sync.Once
	loadErr   error
	labels    map[int]string
	keep      map[string]bool
	tokenizer *wordPieceTokenizer
	session   nerSession
}

// NewONNXExtractor prepares the backend without touching the model yet, so
// construction never fails on missing files.
func NewONNXExtractor(cfg ONNXConfig, logger *zap.Logger) *ONNXExtractor {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 32 * 1024
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = defaultOrgLabels
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	keep := make(map[string]bool, len(cfg.Labels))
	for _, l := range cfg.Labels {
		keep[strings.ToUpper(strings.TrimSpace(l))] = true
	}
	return &ONNXExtractor{cfg: cfg, logger: logger, keep: keep}
}

func (e *ONNXExtractor) init() error {
	e.once.Do(func() {
		modelPath := filepath.Join(e.cfg.ModelDir, "model.onnx")
		if _, err := os.Stat(modelPath); err != nil {
			e.loadErr = fmt.Errorf("model missing: %w", err)
			return
		}
		labels, err := loadLabelMap(filepath.Join(e.cfg.ModelDir, "labels.json"))
		if err != nil {
			e.loadErr = err
			return
		}
		tok, err := newWordPieceTokenizer(filepath.Join(e.cfg.ModelDir, "tokenizer.json"))
		if err != nil {
			e.loadErr = err
			return
		}
		sess, err := newNERSession(modelPath)
		if err != nil {
			e.loadErr = err
			return
		}
		e.labels = labels
		e.tokenizer = tok
		e.session = sess
		e.logger.Info("onnx ner session ready",
			zap.String("model_dir", e.cfg.ModelDir),
			zap.Int("labels", len(labels)))
	})
	return e.loadErr
}

func loadLabelMap(path string) (map[int]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labels missing: %w", err)
	}
	var byIndex map[string]string
	if err := json.Unmarshal(raw, &byIndex); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	labels := make(map[int]string, len(byIndex))
	for k, v := range byIndex {
		var idx int
		if _, err := fmt.Sscanf(k, "%d", &idx); err != nil {
			continue
		}
		labels[idx] = v
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels.json holds no usable entries")
	}
	return labels, nil
}

// Extract tokenizes text, runs the model and decodes BIO predictions into
// byte-offset spans. Oversized input is truncated to MaxBytes at a rune
// boundary rather than rejected.
func (e *ONNXExtractor) Extract(ctx context.Context, text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if len(text) > e.cfg.MaxBytes {
		text = truncateAtRune(text, e.cfg.MaxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.init(); err != nil {
		e.logger.Error("onnx ner init failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	start := time.Now()
	enc := e.tokenizer.encode(text)
	logits, err := e.session.Run(ctx, enc.InputIDs, enc.AttentionMask, enc.TokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	if len(logits) != len(enc.InputIDs) {
		return nil, fmt.Errorf("onnx inference: got %d logit rows for %d positions", len(logits), len(enc.InputIDs))
	}

	// The first piece of each word decides the word label, per the usual
	// token-classification convention.
	wordLabels := make([]string, len(enc.Words))
	wordScores := make([]float64, len(enc.Words))
	seen := make([]bool, len(enc.Words))
	for pos, wi := range enc.WordIndex {
		if wi < 0 || seen[wi] {
			continue
		}
		seen[wi] = true
		idx, score := argmaxSoftmax(logits[pos])
		wordLabels[wi] = e.labels[idx]
		wordScores[wi] = score
	}
	for i := range wordLabels {
		if !seen[i] {
			wordLabels[i] = "O"
		}
	}

	spans := make([]Span, 0)
	for _, ls := range decodeBIO(enc.Words, wordLabels, wordScores) {
		if !e.keep[strings.ToUpper(ls.Type)] {
			continue
		}
		if ls.Score < e.cfg.MinScore {
			continue
		}
		spans = append(spans, Span{
			Text:  text[ls.Start:ls.End],
			Start: ls.Start,
			End:   ls.End,
			Label: strings.ToUpper(ls.Type),
			Score: ls.Score,
		})
	}
	e.logger.Debug("onnx extraction finished",
		zap.Int("entities", len(spans)),
		zap.Int("words", len(enc.Words)),
		zap.Duration("duration", time.Since(start)))
	return spans, nil
}

// Close releases the underlying session if one was created.
func (e *ONNXExtractor) Close() error {
	if e.session != nil {
		return e.session.Close()
	}
	return nil
}

// argmaxSoftmax returns the index of the largest logit and its softmax
// probability.
func argmaxSoftmax(logits []float32) (int, float64) {
	if len(logits) == 0 {
		return 0, 0
	}
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - logits[best]))
	}
	if sum == 0 {
		return best, 0
	}
	return best, 1 / sum
}

func truncateAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
