package eval

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportConfig records how a run was made.
type ReportConfig struct {
	Dataset         string  `yaml:"dataset"`
	Strategy        string  `yaml:"strategy"`
	ModelPath       string  `yaml:"model_path,omitempty"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	Workers         int     `yaml:"workers"`
	Timestamp       string  `yaml:"timestamp"`
}

// Report is the YAML evaluation artifact.
type Report struct {
	Config    ReportConfig    `yaml:"config"`
	Summary   Summary         `yaml:"summary"`
	PerLabel  []LabelMetrics  `yaml:"per_label"`
	Confusion ConfusionMatrix `yaml:"confusion"`
	Pool      PoolStats       `yaml:"pool"`
	Failures  []Outcome       `yaml:"failures,omitempty"`
}

// NewReport computes metrics over outcomes.
func NewReport(cfg ReportConfig, outcomes []Outcome, pool PoolStats) *Report {
	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	summary, perLabel, cm := Compute(outcomes)
	r := &Report{
		Config:    cfg,
		Summary:   summary,
		PerLabel:  perLabel,
		Confusion: cm,
		Pool:      pool,
	}
	for _, o := range outcomes {
		if o.Error != "" {
			r.Failures = append(r.Failures, o)
		}
	}
	return r
}

// WriteYAML writes the report to path, creating parent directories.
func (r *Report) WriteYAML(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteSummary prints a short human-readable summary.
func (r *Report) WriteSummary(w io.Writer) {
	s := r.Summary
	fmt.Fprintf(w, "Samples:   %d (accepted %d, rejected %d, degraded %d, failed %d)\n",
		s.Samples, s.Accepted, s.Rejected, s.Degraded, s.Failed)
	fmt.Fprintf(w, "Accuracy:  %.2f%% on accepted\n", s.Accuracy*100)
	fmt.Fprintf(w, "Coverage:  %.2f%%\n", s.Coverage*100)
	fmt.Fprintf(w, "Macro F1:  %.3f\n", s.MacroF1)
	fmt.Fprintf(w, "Latency:   %.1f ms mean\n", s.MeanLatencyMs)
	for _, m := range r.PerLabel {
		if m.Support == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-20s P=%.2f R=%.2f F1=%.2f (n=%d)\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
}
