package eval

import (
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// Outcome is the pipeline result for one sample.
type Outcome struct {
	Sample     Sample        `yaml:"sample"`
	Predicted  string        `yaml:"predicted,omitempty"`
	Confidence float64       `yaml:"confidence"`
	Accepted   bool          `yaml:"accepted"`
	Degraded   bool          `yaml:"degraded,omitempty"`
	Error      string        `yaml:"error,omitempty"`
	Latency    time.Duration `yaml:"-"`
}

// Correct reports an accepted prediction that matches the ground truth.
func (o Outcome) Correct() bool {
	return o.Accepted && o.Predicted == o.Sample.Label
}

// Summary aggregates outcomes. Accuracy is measured on accepted results
// only; Coverage is the share of samples the pipeline accepted.
type Summary struct {
	Samples       int     `yaml:"samples"`
	Accepted      int     `yaml:"accepted"`
	Rejected      int     `yaml:"rejected"`
	Degraded      int     `yaml:"degraded"`
	Failed        int     `yaml:"failed"`
	Correct       int     `yaml:"correct"`
	Accuracy      float64 `yaml:"accuracy"`
	Coverage      float64 `yaml:"coverage"`
	MacroF1       float64 `yaml:"macro_f1"`
	MeanLatencyMs float64 `yaml:"mean_latency_ms"`
}

// LabelMetrics are one-vs-rest scores for a label over accepted results.
type LabelMetrics struct {
	Label     string  `yaml:"label"`
	Support   int     `yaml:"support"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
}

// ConfusionMatrix counts accepted results; rows are true labels, columns predictions.
type ConfusionMatrix struct {
	Labels []string `yaml:"labels"`
	Counts [][]int  `yaml:"counts"`
}

// Compute builds the summary, per-label scores and confusion matrix.
func Compute(outcomes []Outcome) (Summary, []LabelMetrics, ConfusionMatrix) {
	labels := models.Labels()
	n := len(labels)
	cm := ConfusionMatrix{Labels: labels, Counts: make([][]int, n)}
	for i := range cm.Counts {
		cm.Counts[i] = make([]int, n)
	}

	var s Summary
	var latencies []float64
	s.Samples = len(outcomes)
	for _, o := range outcomes {
		if o.Error != "" {
			s.Failed++
			continue
		}
		latencies = append(latencies, float64(o.Latency)/float64(time.Millisecond))
		if o.Degraded {
			s.Degraded++
		}
		if !o.Accepted {
			s.Rejected++
			continue
		}
		s.Accepted++
		if o.Correct() {
			s.Correct++
		}
		truth, pred := models.LabelIndex(o.Sample.Label), models.LabelIndex(o.Predicted)
		if truth >= 0 && pred >= 0 {
			cm.Counts[truth][pred]++
		}
	}

	s.Accuracy = ratio(s.Correct, s.Accepted)
	s.Coverage = ratio(s.Accepted, s.Samples)
	if len(latencies) > 0 {
		s.MeanLatencyMs = stat.Mean(latencies, nil)
	}

	perLabel := make([]LabelMetrics, n)
	var f1s []float64
	for i, label := range labels {
		tp := cm.Counts[i][i]
		var rowSum, colSum int
		for j := 0; j < n; j++ {
			rowSum += cm.Counts[i][j]
			colSum += cm.Counts[j][i]
		}
		m := LabelMetrics{
			Label:     label,
			Support:   rowSum,
			Precision: ratio(tp, colSum),
			Recall:    ratio(tp, rowSum),
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		if rowSum > 0 {
			f1s = append(f1s, m.F1)
		}
		perLabel[i] = m
	}
	if len(f1s) > 0 {
		s.MacroF1 = stat.Mean(f1s, nil)
	}

	return s, perLabel, cm
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
