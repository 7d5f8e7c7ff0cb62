package strategy

import (
	"context"
	"math/rand/v2"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/features"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
)

// DemoPredictionStrategy returns synthetic predictions from a seeded
// generator. It never touches the classifier and ignores image content.
type DemoPredictionStrategy struct {
	seed uint64
}

// NewDemoPredictionStrategy creates a demo strategy. The same seed always
// yields the same prediction.
func NewDemoPredictionStrategy(seed uint64) PredictionStrategy {
	logger.WithField("seed", seed).Warn("Demo prediction mode enabled, results are synthetic")
	return &DemoPredictionStrategy{seed: seed}
}

// Predict draws a label, a confidence in [50,95) and background
// probabilities in [0,20) for the other labels.
func (s *DemoPredictionStrategy) Predict(_ context.Context, _ *features.Set) (models.Prediction, error) {
	rng := rand.New(rand.NewPCG(s.seed, s.seed))
	labels := models.Labels()

	idx := rng.IntN(len(labels))
	confidence := 50 + rng.Float64()*45
	dist := make(models.ClassDistribution, len(labels))
	for i := range dist {
		dist[i] = rng.Float64() * 20
	}
	dist[idx] = confidence

	return models.Prediction{
		Label:        labels[idx],
		Confidence:   confidence,
		Distribution: dist,
		Source:       models.SourceDemo,
		Status:       models.StatusDecided,
	}, nil
}

func (s *DemoPredictionStrategy) Describe(_, _ int) (models.ModelInfo, error) {
	return models.ModelInfo{
		Labels: models.LabelCatalog(),
		Bound:  true,
	}, nil
}

// GetStrategyName returns the strategy name
func (s *DemoPredictionStrategy) GetStrategyName() string {
	return NameDemo
}

func (s *DemoPredictionStrategy) Close() error { return nil }
