package cli

import (
	"os"
	"strings"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/config"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	logLevel string
	mode     string
	model    string
}

// NewRootCmd builds the teadoctor command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "teadoctor",
		Short: "Tea leaf disease diagnosis",
		Long: `Teadoctor classifies tea leaf photographs into seven disease and health
categories with a confidence-gated ONNX classifier.

It runs as an HTTP API, diagnoses single images from the command line and
evaluates the pipeline over labelled datasets.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := flags.logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			logger.SetLevel(level)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&flags.mode, "mode", "", "Prediction mode: model or demo (default from PREDICTION_MODE)")
	cmd.PersistentFlags().StringVar(&flags.model, "model", "", "Path to the ONNX classifier (default from MODEL_PATH)")

	cmd.AddCommand(
		newServeCmd(flags),
		newDiagnoseCmd(flags),
		newModelCmd(flags),
		newEvalCmd(flags),
	)

	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.mode != "" {
		os.Setenv("PREDICTION_MODE", strings.ToLower(f.mode))
	}
	if f.model != "" {
		os.Setenv("MODEL_PATH", f.model)
	}
	if f.logLevel != "" {
		os.Setenv("LOG_LEVEL", f.logLevel)
	}
	return config.LoadFromEnv()
}
