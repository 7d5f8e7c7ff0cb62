package validation

import (
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
)

// Issue types reported by the quality validator.
const (
	IssueVeryDark        = "very_dark"
	IssueVeryBright      = "very_bright"
	IssueExtremelyBlurry = "extremely_blurry"
	IssueNoContrast      = "no_contrast"
)

// QualityThresholds defines configurable thresholds for quality validation.
// The defaults are permissive: only genuinely degenerate captures are flagged.
type QualityThresholds struct {
	// Flagging
	MinSharpness  float64
	MinBrightness float64
	MaxBrightness float64
	MinContrast   float64

	// Penalties deducted from a starting score of 100
	BlurPenalty       int
	BrightnessPenalty int
	ContrastPenalty   int

	// Acceptability
	AcceptScore      int
	AcceptSharpness  float64
	AcceptBrightness float64
	AcceptContrast   float64
}

// DefaultQualityThresholds returns the default quality thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinSharpness:  10,
		MinBrightness: 15,
		MaxBrightness: 240,
		MinContrast:   5,

		BlurPenalty:       30,
		BrightnessPenalty: 20,
		ContrastPenalty:   20,

		AcceptScore:      35,
		AcceptSharpness:  8,
		AcceptBrightness: 10,
		AcceptContrast:   3,
	}
}

// QualityValidator handles image quality validation logic
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// Thresholds returns the active thresholds.
func (qv *QualityValidator) Thresholds() QualityThresholds {
	return qv.thresholds
}

// QualityMetrics are the grayscale statistics the policy is applied to.
type QualityMetrics struct {
	Brightness float64 // mean gray level
	Sharpness  float64 // Laplacian variance
	Contrast   float64 // gray level standard deviation
}

// ValidateQuality lists the issues found in metrics.
func (qv *QualityValidator) ValidateQuality(metrics QualityMetrics) []models.QualityIssue {
	th := qv.thresholds
	issues := make([]models.QualityIssue, 0, 3)

	if metrics.Brightness < th.MinBrightness {
		issues = append(issues, models.QualityIssue{
			Type:        IssueVeryDark,
			Message:     "Very dark. Take the photo in more light.",
			Severity:    "error",
			ActualValue: metrics.Brightness,
			Threshold:   th.MinBrightness,
		})
	} else if metrics.Brightness > th.MaxBrightness {
		issues = append(issues, models.QualityIssue{
			Type:        IssueVeryBright,
			Message:     "Very bright. Avoid direct sunlight or flash.",
			Severity:    "error",
			ActualValue: metrics.Brightness,
			Threshold:   th.MaxBrightness,
		})
	}

	if metrics.Sharpness < th.MinSharpness {
		issues = append(issues, models.QualityIssue{
			Type:        IssueExtremelyBlurry,
			Message:     "Extremely blurry. Hold the camera steady and focus on the leaf.",
			Severity:    "error",
			ActualValue: metrics.Sharpness,
			Threshold:   th.MinSharpness,
		})
	}

	if metrics.Contrast < th.MinContrast {
		issues = append(issues, models.QualityIssue{
			Type:        IssueNoContrast,
			Message:     "No contrast. The image looks blank.",
			Severity:    "error",
			ActualValue: metrics.Contrast,
			Threshold:   th.MinContrast,
		})
	}

	return issues
}

// Score starts at 100 and deducts a fixed penalty per failing metric, floored at 0.
func (qv *QualityValidator) Score(metrics QualityMetrics) int {
	th := qv.thresholds
	score := 100
	if metrics.Sharpness < th.MinSharpness {
		score -= th.BlurPenalty
	}
	if metrics.Brightness < th.MinBrightness || metrics.Brightness > th.MaxBrightness {
		score -= th.BrightnessPenalty
	}
	if metrics.Contrast < th.MinContrast {
		score -= th.ContrastPenalty
	}
	if score < 0 {
		score = 0
	}
	return score
}

// IsAcceptable applies the acceptance rule to a computed score.
func (qv *QualityValidator) IsAcceptable(score int, metrics QualityMetrics) bool {
	th := qv.thresholds
	return score >= th.AcceptScore &&
		metrics.Sharpness >= th.AcceptSharpness &&
		metrics.Brightness > th.AcceptBrightness &&
		metrics.Contrast > th.AcceptContrast
}

// Evaluate builds the full quality report for metrics.
func (qv *QualityValidator) Evaluate(metrics QualityMetrics) models.QualityReport {
	score := qv.Score(metrics)
	return models.QualityReport{
		Score:      score,
		Issues:     qv.ValidateQuality(metrics),
		Acceptable: qv.IsAcceptable(score, metrics),
		Sharpness:  metrics.Sharpness,
		Brightness: metrics.Brightness,
		Contrast:   metrics.Contrast,
	}
}

// ConvertIssuesToMessages converts quality issues to simple messages
func ConvertIssuesToMessages(issues []models.QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func HasCriticalIssues(issues []models.QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
