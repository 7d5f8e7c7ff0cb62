package inference

import (
	"errors"
	"fmt"
	"os"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions configures the ONNX Runtime engine.
type ONNXOptions struct {
	ModelPath   string
	LibraryPath string // empty uses the runtime's default lookup
	Threads     int    // intra-op threads, 0 for the runtime default
}

// onnxEngine runs a multi-input classifier through ONNX Runtime.
type onnxEngine struct {
	session *ort.DynamicAdvancedSession
	inputs  []models.TensorSpec
	outputs []models.TensorSpec
}

// ONNXLoader returns a Loader that opens the model described by opts.
func ONNXLoader(opts ONNXOptions) Loader {
	return func() (Engine, error) {
		return NewONNXEngine(opts)
	}
}

// NewONNXEngine initializes the runtime environment if needed and opens a session.
func NewONNXEngine(opts ONNXOptions) (Engine, error) {
	if opts.ModelPath == "" {
		return nil, errors.New("empty model path")
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("init onnx runtime: %w", err)
		}
	}

	inInfo, outInfo, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	if len(outInfo) == 0 {
		return nil, errors.New("model declares no outputs")
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer sessionOpts.Destroy()
	if opts.Threads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, fmt.Errorf("set threads: %w", err)
		}
	}

	inputNames := make([]string, len(inInfo))
	for i, info := range inInfo {
		inputNames[i] = info.Name
	}
	// Only the first output is read.
	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath, inputNames, []string{outInfo[0].Name}, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	e := &onnxEngine{
		session: session,
		inputs:  specsFromInfo(inInfo),
		outputs: specsFromInfo(outInfo),
	}
	logger.WithField("model", opts.ModelPath).Info("ONNX session created")
	return e, nil
}

func specsFromInfo(infos []ort.InputOutputInfo) []models.TensorSpec {
	specs := make([]models.TensorSpec, len(infos))
	for i, info := range infos {
		specs[i] = models.TensorSpec{
			Name:  info.Name,
			Shape: append([]int64(nil), info.Dimensions...),
			DType: dtypeName(info.DataType),
		}
	}
	return specs
}

func dtypeName(t ort.TensorElementDataType) string {
	switch t {
	case ort.TensorElementDataTypeUint8:
		return DTypeUint8
	case ort.TensorElementDataTypeFloat:
		return DTypeFloat32
	case ort.TensorElementDataTypeDouble:
		return DTypeFloat64
	default:
		return fmt.Sprintf("onnx_type_%d", int(t))
	}
}

func (e *onnxEngine) Inputs() []models.TensorSpec  { return e.inputs }
func (e *onnxEngine) Outputs() []models.TensorSpec { return e.outputs }

// Run feeds inputs in declared order. The session requires every declared
// input, so inputs must cover them all.
func (e *onnxEngine) Run(inputs []Input) ([]float32, error) {
	byName := make(map[string]Input, len(inputs))
	for _, in := range inputs {
		byName[in.Spec.Name] = in
	}

	values := make([]ort.ArbitraryTensor, 0, len(e.inputs))
	defer func() {
		for _, v := range values {
			if err := v.Destroy(); err != nil {
				logger.WithError(err).Warn("Error destroying input tensor")
			}
		}
	}()
	for _, spec := range e.inputs {
		in, ok := byName[spec.Name]
		if !ok {
			return nil, fmt.Errorf("no value for declared input %q", spec.Name)
		}
		v, err := newTensor(in)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", spec.Name, err)
		}
		values = append(values, v)
	}

	outputs := []ort.ArbitraryTensor{nil}
	if err := e.session.Run(values, outputs); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				if err := o.Destroy(); err != nil {
					logger.WithError(err).Warn("Error destroying output tensor")
				}
			}
		}
	}()

	switch t := outputs[0].(type) {
	case *ort.Tensor[float32]:
		return append([]float32(nil), t.GetData()...), nil
	case *ort.Tensor[float64]:
		data := t.GetData()
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
}

func newTensor(in Input) (ort.ArbitraryTensor, error) {
	shape := ort.NewShape(in.Shape...)
	switch {
	case in.Uint8 != nil:
		t, err := ort.NewTensor(shape, in.Uint8)
		if err != nil {
			return nil, err
		}
		return t, nil
	case in.Float32 != nil:
		t, err := ort.NewTensor(shape, in.Float32)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, errors.New("input carries no data")
	}
}

func (e *onnxEngine) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
