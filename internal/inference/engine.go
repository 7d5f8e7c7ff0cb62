package inference

import "github.com/anime-shed/tea-leaf-inspector-go/pkg/models"

// Element types an engine may declare for its tensors.
const (
	DTypeUint8   = "uint8"
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
)

// Input is one bound input tensor, laid out in its declared shape. Exactly
// one of Uint8 or Float32 is set, matching Spec.DType.
type Input struct {
	Spec    models.TensorSpec
	Shape   []int64
	Uint8   []uint8
	Float32 []float32
}

// Engine is an opaque classifier with introspectable tensor metadata.
// Implementations need not be safe for concurrent Run calls.
type Engine interface {
	Inputs() []models.TensorSpec
	Outputs() []models.TensorSpec
	// Run invokes the classifier and returns the flattened first output.
	Run(inputs []Input) ([]float32, error)
	Close() error
}
