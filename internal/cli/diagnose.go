package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/container"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/service"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/spf13/cobra"
)

const (
	formatJSON = "json"
	formatText = "text"
	formatYAML = "yaml"
)

func newDiagnoseCmd(flags *globalFlags) *cobra.Command {
	var (
		heatmapPath   string
		skipLeafCheck bool
		format        string
	)

	cmd := &cobra.Command{
		Use:   "diagnose <image>",
		Short: "Diagnose one image",
		Long: `Runs the full pipeline on one image. The source can be a local path,
a file:// URL, an http(s) URL or an Azure blob.`,
		Example: `  teadoctor diagnose leaf.jpg
  teadoctor diagnose https://example.com/leaf.jpg --format json
  teadoctor diagnose leaf.jpg --heatmap leaf-heatmap.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			c, err := container.NewContainer(cfg, container.Options{AllowLocal: true})
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Service().DiagnoseSource(cmd.Context(), args[0], service.DiagnoseOptions{
				Heatmap:       heatmapPath != "",
				SkipLeafCheck: skipLeafCheck,
			})
			if err != nil {
				return err
			}

			if heatmapPath != "" {
				if err := writeHeatmap(heatmapPath, resp); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			case formatText:
				printDiagnosis(out, resp)
				return nil
			default:
				return fmt.Errorf("unsupported format %q (use %s or %s)", format, formatText, formatJSON)
			}
		},
	}

	cmd.Flags().StringVar(&heatmapPath, "heatmap", "", "Write the saliency overlay PNG to this path")
	cmd.Flags().BoolVar(&skipLeafCheck, "skip-leaf-check", false, "Disable the leaf plausibility check")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")

	return cmd
}

func writeHeatmap(path string, resp *models.DiagnosisResponse) error {
	if resp.Heatmap == nil {
		fmt.Fprintln(os.Stderr, "No heatmap written: the diagnosis was not accepted.")
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(resp.Heatmap.Data)
	if err != nil {
		return fmt.Errorf("failed to decode heatmap: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write heatmap: %w", err)
	}
	return nil
}

func printDiagnosis(w io.Writer, resp *models.DiagnosisResponse) {
	fmt.Fprintf(w, "Image:       %s (%dx%d)\n", resp.Source, resp.Width, resp.Height)
	fmt.Fprintf(w, "Mode:        %s\n", resp.Mode)
	fmt.Fprintf(w, "Quality:     %d/100\n", resp.Quality.Score)
	fmt.Fprintf(w, "Leaf check:  %s (%s)\n", plausibleText(resp.Plausibility), resp.Plausibility.Reason)

	if resp.Outcome == models.DecisionAccepted {
		fmt.Fprintf(w, "Diagnosis:   %s (%s severity)\n", resp.DisplayName, resp.Severity)
		fmt.Fprintf(w, "Confidence:  %.1f%% (%s)\n", resp.Confidence, resp.ConfidenceBand)
		for _, s := range resp.Distribution {
			fmt.Fprintf(w, "  %-20s %6.2f%%\n", s.Label, s.Probability)
		}
	} else {
		fmt.Fprintf(w, "Diagnosis:   none (confidence %.1f%%)\n", resp.Confidence)
	}
	fmt.Fprintf(w, "Message:     %s\n", resp.Message)
	if len(resp.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings:\n  - %s\n", strings.Join(resp.Warnings, "\n  - "))
	}
}

func plausibleText(p models.PlausibilityReport) string {
	switch {
	case p.Status == models.PlausibilitySkipped:
		return "skipped"
	case p.Plausible:
		return "leaf"
	default:
		return "not a leaf"
	}
}
