package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/container"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/eval"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/spf13/cobra"
)

func newEvalCmd(flags *globalFlags) *cobra.Command {
	var (
		datasetPath string
		outPath     string
		workers     int
		limit       int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the pipeline on a labelled dataset",
		Long: `Runs every sample of a labelled dataset through the pipeline and writes a
YAML report with accuracy on accepted results, coverage, per-label
precision/recall/F1 and the confusion matrix.

A dataset is a directory with one subfolder per label, or a .parquet or
.jsonl manifest with "path" and "label" columns.`,
		Example: `  teadoctor eval --dataset data/test
  teadoctor eval --dataset data/test.parquet --workers 8 --out evals/run.yaml
  teadoctor eval --dataset data/test.jsonl --limit 50 --mode demo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			samples, err := eval.LoadDataset(datasetPath, limit)
			if err != nil {
				return err
			}

			c, err := container.NewContainer(cfg, container.Options{AllowLocal: true})
			if err != nil {
				return err
			}
			defer c.Close()

			outcomes, stats := eval.NewRunner(c.Service(), workers, timeout).Run(cmd.Context(), samples)

			report := eval.NewReport(eval.ReportConfig{
				Dataset:         datasetPath,
				Strategy:        cfg.PredictionMode,
				ModelPath:       cfg.ModelPath,
				ConfidenceFloor: cfg.ConfidenceFloor,
				Workers:         stats.Workers,
			}, outcomes, stats)

			if outPath == "" {
				outPath = filepath.Join("evals", fmt.Sprintf("eval_%s.yaml", time.Now().Format("2006-01-02_15-04-05")))
			}
			if err := report.WriteYAML(outPath); err != nil {
				return err
			}
			logger.WithField("path", outPath).Info("Evaluation report written")

			report.WriteSummary(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "Report:    %s\n", outPath)
			return cmd.Context().Err()
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Dataset directory, .parquet or .jsonl manifest (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Report path (default evals/eval_<timestamp>.yaml)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent diagnoses (default number of CPUs)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Evaluate at most this many samples")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Per-sample timeout")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
