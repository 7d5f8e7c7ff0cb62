package analyzer

import (
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/validation"
	"github.com/sirupsen/logrus"
)

// qualityAssessor computes grayscale metrics on the raw capture and applies
// the permissive threshold policy to them.
type qualityAssessor struct {
	metricsCalculator MetricsCalculator
	qualityValidator  *validation.QualityValidator
}

// NewQualityAssessor creates an assessor with the default thresholds
func NewQualityAssessor() QualityAssessor {
	return &qualityAssessor{
		metricsCalculator: NewMetricsCalculator(),
		qualityValidator:  validation.NewQualityValidator(),
	}
}

// NewQualityAssessorWithThresholds creates an assessor with custom thresholds
func NewQualityAssessorWithThresholds(thresholds validation.QualityThresholds) QualityAssessor {
	return &qualityAssessor{
		metricsCalculator: NewMetricsCalculator(),
		qualityValidator:  validation.NewQualityValidatorWithThresholds(thresholds),
	}
}

// Assess reports on an RGB frame. A frame that fails validation scores as a
// blank image: every metric is zero.
func (qa *qualityAssessor) Assess(frame *vision.Frame) models.QualityReport {
	var metrics validation.QualityMetrics
	if frame.Validate() == nil {
		gray := vision.Gray(frame)
		metrics = validation.QualityMetrics{
			Brightness: qa.metricsCalculator.CalculateBrightness(gray),
			Sharpness:  qa.metricsCalculator.CalculateLaplacianVariance(gray),
			Contrast:   qa.metricsCalculator.CalculateContrast(gray),
		}
	}

	report := qa.qualityValidator.Evaluate(metrics)

	logger.WithFields(logrus.Fields{
		"score":      report.Score,
		"acceptable": report.Acceptable,
		"brightness": metrics.Brightness,
		"sharpness":  metrics.Sharpness,
		"contrast":   metrics.Contrast,
		"issues":     len(report.Issues),
	}).Debug("Quality assessed")

	return report
}
