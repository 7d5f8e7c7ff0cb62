package analyzer

import (
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
)

// QualityAssessor scores the usability of a raw capture
type QualityAssessor interface {
	Assess(frame *vision.Frame) models.QualityReport
}

// MetricsCalculator handles grayscale metrics computation
type MetricsCalculator interface {
	CalculateBrightness(gray *vision.Plane) float64
	CalculateLaplacianVariance(gray *vision.Plane) float64
	CalculateContrast(gray *vision.Plane) float64
}
