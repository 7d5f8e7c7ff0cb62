package eval

import (
	"context"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/service"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// Runner diagnoses samples concurrently.
type Runner struct {
	svc     service.DiagnosisService
	workers int
	timeout time.Duration
}

// NewRunner creates a runner. timeout bounds each sample; zero disables it.
func NewRunner(svc service.DiagnosisService, workers int, timeout time.Duration) *Runner {
	return &Runner{svc: svc, workers: workers, timeout: timeout}
}

// Run returns one outcome per sample, in sample order. Samples left
// unprocessed after ctx is cancelled are reported as failed.
func (r *Runner) Run(ctx context.Context, samples []Sample) ([]Outcome, PoolStats) {
	outcomes := make([]Outcome, len(samples))
	pool := NewWorkerPool(r.workers)
	pool.Start()

	for i, s := range samples {
		i, s := i, s
		outcomes[i] = Outcome{Sample: s, Error: "not processed"}
		pool.Submit(func() {
			outcomes[i] = r.diagnose(ctx, s)
		})
	}
	pool.Wait()
	pool.Close()

	stats := pool.GetStats()
	logger.WithFields(logrus.Fields{
		"samples":  len(samples),
		"workers":  stats.Workers,
		"panicked": stats.PanickedJobs,
	}).Info("Evaluation run finished")
	return outcomes, stats
}

func (r *Runner) diagnose(ctx context.Context, s Sample) Outcome {
	out := Outcome{Sample: s}
	if err := ctx.Err(); err != nil {
		out.Error = err.Error()
		return out
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.svc.DiagnoseSource(ctx, s.Path, service.DiagnoseOptions{})
	out.Latency = time.Since(start)
	if err != nil {
		out.Error = err.Error()
		logger.WithError(err).WithField("path", s.Path).Warn("Sample failed")
		return out
	}

	out.Confidence = resp.Confidence
	out.Accepted = resp.Outcome == models.DecisionAccepted
	out.Predicted = resp.Label
	out.Degraded = resp.InferenceStatus != models.StatusDecided
	return out
}
