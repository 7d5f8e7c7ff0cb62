package models

import "time"

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning", "info"
	ActualValue float64 `json:"actual_value"`
	Threshold   float64 `json:"threshold"`
}

// QualityReport is computed once on the raw image and never recomputed after preprocessing.
type QualityReport struct {
	Score      int            `json:"score"`
	Issues     []QualityIssue `json:"issues"`
	Acceptable bool           `json:"acceptable"`
	Sharpness  float64        `json:"sharpness"`
	Brightness float64        `json:"brightness"`
	Contrast   float64        `json:"contrast"`
}

// HasIssue reports whether an issue of the given type was flagged.
func (r QualityReport) HasIssue(issueType string) bool {
	for _, issue := range r.Issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}

// PlausibilityStatus tags how the leaf gate reached its verdict.
type PlausibilityStatus string

const (
	PlausibilityDecided  PlausibilityStatus = "decided"
	PlausibilityFailOpen PlausibilityStatus = "fail_open"
	PlausibilitySkipped  PlausibilityStatus = "skipped"
)

// PlausibilityReport is the leaf gate verdict. Ratios are percentages.
type PlausibilityReport struct {
	Plausible          bool               `json:"plausible"`
	Status             PlausibilityStatus `json:"status"`
	Reason             string             `json:"reason,omitempty"`
	NonBackgroundRatio float64            `json:"non_background_ratio"`
	PlantRatio         float64            `json:"plant_ratio"`
	EdgeRatio          float64            `json:"edge_ratio"`
	LaplacianVariance  float64            `json:"laplacian_variance"`
	SkinRatio          float64            `json:"skin_ratio"`
	AvgSaturation      float64            `json:"avg_saturation"`
}

// DecisionState is the terminal state of the decision policy.
type DecisionState string

const (
	DecisionAccepted              DecisionState = "accepted"
	DecisionRejectedLowConfidence DecisionState = "rejected_low_confidence"
)

// ConfidenceBand buckets an accepted confidence for display only.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// Decision is the outcome of applying the confidence floor to a prediction.
type Decision struct {
	State      DecisionState  `json:"state"`
	Band       ConfidenceBand `json:"band,omitempty"`
	Message    string         `json:"message"`
	Prediction Prediction     `json:"prediction"`
}

// Accepted reports whether disease information may be surfaced.
func (d Decision) Accepted() bool {
	return d.State == DecisionAccepted
}

// HeatmapImage is an encoded saliency overlay.
type HeatmapImage struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"` // base64
}

// DiagnosisResponse is the full result of one pipeline run.
type DiagnosisResponse struct {
	ID                string    `json:"id"`
	Source            string    `json:"source,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	ProcessingTimeSec float64   `json:"processing_time_sec"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`

	Mode         PredictionSource   `json:"mode"`
	Quality      QualityReport      `json:"quality"`
	Plausibility PlausibilityReport `json:"plausibility"`

	Outcome        DecisionState  `json:"outcome"`
	Message        string         `json:"message"`
	Confidence     float64        `json:"confidence"`
	Label          string         `json:"label,omitempty"`
	DisplayName    string         `json:"display_name,omitempty"`
	Severity       Severity       `json:"severity,omitempty"`
	ConfidenceBand ConfidenceBand `json:"confidence_band,omitempty"`
	Distribution   []LabelScore   `json:"distribution,omitempty"`

	InferenceStatus InferenceStatus `json:"inference_status"`
	InferenceReason string          `json:"inference_reason,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`

	Heatmap *HeatmapImage `json:"heatmap,omitempty"`
}
