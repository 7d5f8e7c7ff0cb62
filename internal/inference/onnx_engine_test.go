package inference

import (
	"errors"
	"path/filepath"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

// Session inputs and runtime-allocated outputs share one tensor interface.
var _ = []ort.ArbitraryTensor{(*ort.Tensor[uint8])(nil), (*ort.Tensor[float32])(nil), nil}

func TestNewTensor(t *testing.T) {
	if _, err := newTensor(Input{Shape: []int64{1, 2}}); err == nil {
		t.Error("Expected error for input without data")
	}

	if ort.IsInitialized() {
		t.Skip("runtime already initialized")
	}
	tests := []struct {
		name string
		in   Input
	}{
		{name: "uint8", in: Input{Shape: []int64{1, 2}, Uint8: []uint8{1, 2}}},
		{name: "float32", in: Input{Shape: []int64{1, 2}, Float32: []float32{0.5, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := newTensor(tt.in)
			if !errors.Is(err, ort.NotInitializedError) {
				t.Errorf("Expected NotInitializedError, got %v", err)
			}
			if tensor != nil {
				t.Errorf("Expected no tensor, got %T", tensor)
			}
		})
	}
}

func TestNewONNXEngine_BadPath(t *testing.T) {
	if _, err := NewONNXEngine(ONNXOptions{}); err == nil {
		t.Error("Expected error for empty model path")
	}
	if _, err := NewONNXEngine(ONNXOptions{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")}); err == nil {
		t.Error("Expected error for missing model file")
	}
}
