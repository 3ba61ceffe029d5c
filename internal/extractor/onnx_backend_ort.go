//go:build onnxruntime

package extractor

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Once
var ortInitErr error

// initRuntime brings up the shared onnxruntime environment once per process.
// ONNXRUNTIME_SHARED_LIBRARY overrides the library location when it is not
// on the default search path.
func initRuntime() error {
	ortInit.Do(func() {
		if lib := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if !ort.IsInitialized() {
			ortInitErr = ort.InitializeEnvironment()
		}
	})
	return ortInitErr
}

// ortSession drives a token-classification model through onnxruntime. Input
// names follow the standard BERT export (input_ids, attention_mask,
// token_type_ids -> logits).
type ortSession struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

func newNERSession(modelPath string) (nerSession, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &ortSession{session: session}, nil
}

func (s *ortSession) Run(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	seqLen := int64(len(inputIDs))
	idTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), inputIDs)
	if err != nil {
		return nil, err
	}
	defer idTensor.Destroy()
	maskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), attentionMask)
	if err != nil {
		return nil, err
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), tokenTypeIDs)
	if err != nil {
		return nil, err
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	s.mu.Lock()
	err = s.session.Run([]ort.Value{idTensor, maskTensor, typeTensor}, outputs)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}
	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output value type %T", outputs[0])
	}
	defer logitsTensor.Destroy()

	shape := logitsTensor.GetShape()
	if len(shape) != 3 || shape[1] != seqLen {
		return nil, fmt.Errorf("unexpected logits shape %v", shape)
	}
	numLabels := int(shape[2])
	data := logitsTensor.GetData()
	rows := make([][]float32, len(inputIDs))
	for i := range rows {
		rows[i] = data[i*numLabels : (i+1)*numLabels]
	}
	return rows, nil
}

func (s *ortSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}
