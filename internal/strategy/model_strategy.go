package strategy

import (
	"context"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/features"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/inference"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
)

// ModelPredictionStrategy runs the classifier through the inference adapter.
type ModelPredictionStrategy struct {
	provider  *inference.Provider
	adapter   *inference.Adapter
	modelPath string
}

// NewModelPredictionStrategy creates a strategy backed by a lazily loaded engine.
func NewModelPredictionStrategy(provider *inference.Provider, timeout time.Duration, modelPath string) PredictionStrategy {
	return &ModelPredictionStrategy{
		provider:  provider,
		adapter:   inference.NewAdapter(provider, timeout),
		modelPath: modelPath,
	}
}

func (s *ModelPredictionStrategy) Predict(ctx context.Context, set *features.Set) (models.Prediction, error) {
	return s.adapter.Predict(ctx, set)
}

func (s *ModelPredictionStrategy) Describe(height, width int) (models.ModelInfo, error) {
	info, err := s.adapter.Describe(height, width)
	info.ModelPath = s.modelPath
	return info, err
}

// GetStrategyName returns the strategy name
func (s *ModelPredictionStrategy) GetStrategyName() string {
	return NameModel
}

func (s *ModelPredictionStrategy) Close() error {
	return s.provider.Close()
}
