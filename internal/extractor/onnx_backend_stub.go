//go:build !onnxruntime

package extractor

import "fmt"

// Default builds carry no onnxruntime binding so they need no shared
// library. Session creation fails, which the extractor surfaces as
// ErrModelUnavailable.
func newNERSession(modelPath string) (nerSession, error) {
	return nil, fmt.Errorf("onnx backend requires build tag 'onnxruntime'")
}
