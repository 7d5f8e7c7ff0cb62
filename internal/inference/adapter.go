package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/features"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// ReasonOutputLength tags a prediction whose score vector had to be padded or truncated.
const ReasonOutputLength = "output_length_mismatch"

// Adapter binds feature tensors to the classifier, invokes it and
// normalizes the result. Invocations are serialized.
type Adapter struct {
	provider *Provider
	timeout  time.Duration

	mu sync.Mutex
}

// NewAdapter creates an adapter. A zero timeout disables the invocation bound.
func NewAdapter(provider *Provider, timeout time.Duration) *Adapter {
	return &Adapter{provider: provider, timeout: timeout}
}

// Predict classifies one feature set. The only error it returns is
// model_unavailable; every other failure becomes a neutral fallback
// prediction tagged with its reason.
func (a *Adapter) Predict(ctx context.Context, set *features.Set) (models.Prediction, error) {
	engine, err := a.provider.Engine()
	if err != nil {
		return models.Prediction{}, err
	}

	binding, err := Bind(engine.Inputs(), set.Height, set.Width)
	if err != nil {
		logger.WithError(err).Warn("Classifier contract mismatch, returning neutral fallback")
		return models.NeutralFallback(string(apperrors.ErrorTypeContractMismatch), err.Error()), nil
	}

	inputs, err := buildInputs(binding, set)
	if err != nil {
		logger.WithError(err).Warn("Failed to build classifier inputs, returning neutral fallback")
		return models.NeutralFallback(string(apperrors.ErrorTypeContractMismatch), err.Error()), nil
	}
	logInputStats(inputs)

	raw, err := a.invoke(ctx, engine, inputs)
	if err != nil {
		logger.WithError(err).Warn("Classifier invocation failed, returning neutral fallback")
		return models.NeutralFallback(string(apperrors.ErrorTypeTransientInference), err.Error()), nil
	}
	if len(raw) == 0 {
		logger.Warn("Classifier returned no scores, returning neutral fallback")
		return models.NeutralFallback(string(apperrors.ErrorTypeContractMismatch), "classifier returned an empty output"), nil
	}

	return normalize(raw), nil
}

// invoke runs the engine under the adapter's lock and timeout. On expiry the
// run keeps the lock until the engine returns, so later calls queue behind it.
func (a *Adapter) invoke(ctx context.Context, engine Engine, inputs []Input) ([]float32, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	type result struct {
		scores []float32
		err    error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("classifier panicked: %v", r)}
			}
		}()
		if ctx.Err() != nil {
			done <- result{err: ctx.Err()}
			return
		}
		scores, err := engine.Run(inputs)
		done <- result{scores: scores, err: err}
	}()

	select {
	case r := <-done:
		logger.WithFields(logrus.Fields{
			"duration": time.Since(start).String(),
			"outputs":  len(r.scores),
		}).Debug("Classifier invoked")
		return r.scores, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("classifier did not answer within %s: %w", a.timeout, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// normalize scales classifier probabilities to percentages over the fixed
// label set, reconciling a wrong-length output.
func normalize(raw []float32) models.Prediction {
	scaled := make([]float64, len(raw))
	for i, v := range raw {
		scaled[i] = float64(v) * 100
	}
	// Pick the winner before clipping.
	fitted, adjusted := models.FitLength(scaled)
	idx, _ := models.ClassDistribution(fitted).ArgMax()
	dist, _ := models.Reconcile(fitted)

	pred := models.Prediction{
		Label:        models.Labels()[idx],
		Confidence:   dist[idx],
		Distribution: dist,
		Source:       models.SourceModel,
		Status:       models.StatusDecided,
	}
	if adjusted {
		pred.Status = models.StatusDegraded
		pred.Reason = ReasonOutputLength
		pred.Detail = fmt.Sprintf("classifier returned %d scores for %d labels", len(raw), models.LabelCount)
		logger.WithFields(logrus.Fields{
			"got":  len(raw),
			"want": models.LabelCount,
		}).Warn("Classifier output length differs from label set, adjusted")
	}
	return pred
}

func buildInputs(binding Binding, set *features.Set) ([]Input, error) {
	shape := []int64{1, int64(set.Height), int64(set.Width), 3}
	sources := map[Role]struct {
		u8  []uint8
		f32 []float32
	}{
		RoleRGB:     {u8: set.RGB},
		RoleColor:   {f32: set.Color},
		RoleTexture: {f32: set.Texture},
	}

	inputs := make([]Input, 0, len(binding))
	for _, role := range []Role{RoleRGB, RoleColor, RoleTexture} {
		spec := binding[role]
		src := sources[role]
		in := Input{Spec: spec, Shape: shape}

		switch spec.DType {
		case DTypeUint8:
			if src.u8 != nil {
				in.Uint8 = src.u8
			} else {
				in.Uint8 = toUint8(src.f32)
			}
		case DTypeFloat32:
			if src.f32 != nil {
				in.Float32 = src.f32
			} else {
				in.Float32 = toFloat32(src.u8)
			}
		default:
			return nil, fmt.Errorf("input %q has unsupported dtype %s", spec.Name, spec.DType)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// toUint8 casts like a numpy astype: fractional [0,1] features truncate to 0 or 1.
func toUint8(src []float32) []uint8 {
	out := make([]uint8, len(src))
	for i, v := range src {
		switch {
		case v <= 0:
			out[i] = 0
		case v >= 255:
			out[i] = 255
		default:
			out[i] = uint8(v)
		}
	}
	return out
}

func toFloat32(src []uint8) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out
}

// Describe introspects the loaded classifier's contract.
func (a *Adapter) Describe(height, width int) (models.ModelInfo, error) {
	engine, err := a.provider.Engine()
	if err != nil {
		return models.ModelInfo{}, err
	}
	info := models.ModelInfo{
		Inputs:  Annotate(engine.Inputs()),
		Outputs: engine.Outputs(),
		Labels:  models.LabelCatalog(),
	}
	if _, err := Bind(engine.Inputs(), height, width); err != nil {
		info.BindError = err.Error()
	} else {
		info.Bound = true
	}
	return info, nil
}
