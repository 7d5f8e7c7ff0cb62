package strategy

import (
	"context"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/features"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
)

// Strategy names, as accepted by PREDICTION_MODE.
const (
	NameModel = "model"
	NameDemo  = "demo"
)

// PredictionStrategy produces a (label, confidence, distribution) triple for
// one feature set. The strategy is chosen once at startup.
type PredictionStrategy interface {
	Predict(ctx context.Context, set *features.Set) (models.Prediction, error)
	Describe(height, width int) (models.ModelInfo, error)
	GetStrategyName() string
	Close() error
}

// PredictionContext holds the active strategy.
type PredictionContext struct {
	strategy PredictionStrategy
}

// NewPredictionContext creates a new prediction context
func NewPredictionContext(strategy PredictionStrategy) *PredictionContext {
	return &PredictionContext{
		strategy: strategy,
	}
}

// ExecutePrediction runs the active strategy
func (c *PredictionContext) ExecutePrediction(ctx context.Context, set *features.Set) (models.Prediction, error) {
	return c.strategy.Predict(ctx, set)
}

// Describe reports the contract of the active strategy.
func (c *PredictionContext) Describe(height, width int) (models.ModelInfo, error) {
	info, err := c.strategy.Describe(height, width)
	info.Strategy = c.strategy.GetStrategyName()
	return info, err
}

// GetCurrentStrategy returns the current strategy name
func (c *PredictionContext) GetCurrentStrategy() string {
	return c.strategy.GetStrategyName()
}

// Close releases the strategy's resources.
func (c *PredictionContext) Close() error {
	return c.strategy.Close()
}
