package models

import "math"

// ClassDistribution holds one probability in [0,100] per label, in label order.
type ClassDistribution []float64

// FitLength zero-pads or truncates raw to one score per label without
// touching the values. The boolean reports whether the length changed.
func FitLength(raw []float64) ([]float64, bool) {
	out := make([]float64, LabelCount)
	copy(out, raw)
	return out, len(raw) != LabelCount
}

// Reconcile maps raw scores onto the fixed label set. Missing entries are
// zero-padded, extra entries dropped, and every value is clipped to [0,100].
// The boolean reports whether the length had to be adjusted.
func Reconcile(raw []float64) (ClassDistribution, bool) {
	fitted, adjusted := FitLength(raw)
	out := make(ClassDistribution, LabelCount)
	for i, v := range fitted {
		out[i] = ClipPercent(v)
	}
	return out, adjusted
}

// ArgMax returns the index and value of the largest entry. Ties resolve to the first.
func (d ClassDistribution) ArgMax() (int, float64) {
	best, bestVal := 0, math.Inf(-1)
	for i, v := range d {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	if len(d) == 0 {
		return 0, 0
	}
	return best, bestVal
}

// Scores pairs each probability with its label.
func (d ClassDistribution) Scores() []LabelScore {
	labels := Labels()
	out := make([]LabelScore, 0, len(d))
	for i, v := range d {
		if i >= len(labels) {
			break
		}
		out = append(out, LabelScore{Label: labels[i], Probability: v})
	}
	return out
}

// ClipPercent clamps v to [0,100]. NaN becomes 0.
func ClipPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// LabelScore is one entry of a distribution.
type LabelScore struct {
	Label       string  `json:"label" yaml:"label"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// PredictionSource tells genuine inference apart from the synthetic demo predictor.
type PredictionSource string

const (
	SourceModel PredictionSource = "model"
	SourceDemo  PredictionSource = "demo"
)

// InferenceStatus tags how a prediction was produced.
type InferenceStatus string

const (
	// StatusDecided is a genuine classifier result.
	StatusDecided InferenceStatus = "decided"
	// StatusDegraded is a classifier result that needed the output-length shim.
	StatusDegraded InferenceStatus = "degraded"
	// StatusFallback is the neutral distribution returned when inference was unusable.
	StatusFallback InferenceStatus = "fallback"
)

// Prediction is the (label, confidence, distribution) triple plus its provenance.
type Prediction struct {
	Label        string            `json:"label"`
	Confidence   float64           `json:"confidence"`
	Distribution ClassDistribution `json:"distribution"`
	Source       PredictionSource  `json:"source"`
	Status       InferenceStatus   `json:"status"`
	Reason       string            `json:"reason,omitempty"`
	Detail       string            `json:"detail,omitempty"`
}

// Degraded reports whether the prediction did not come from a clean classifier run.
func (p Prediction) Degraded() bool {
	return p.Status != StatusDecided
}

// NeutralFallback is the flat distribution signalling an unusable classifier:
// first label, 25% confidence, 25% everywhere.
func NeutralFallback(reason, detail string) Prediction {
	dist := make(ClassDistribution, LabelCount)
	for i := range dist {
		dist[i] = 25
	}
	return Prediction{
		Label:        Labels()[0],
		Confidence:   25,
		Distribution: dist,
		Source:       SourceModel,
		Status:       StatusFallback,
		Reason:       reason,
		Detail:       detail,
	}
}
