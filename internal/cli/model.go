package cli

import (
	"encoding/json"
	"fmt"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/container"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newModelCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "model",
		Short: "Print the classifier tensor contract",
		Long: `Loads the classifier and prints its declared inputs and outputs, the
role each input binds to, the label set and the active strategy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			c, err := container.NewContainer(cfg, container.Options{})
			if err != nil {
				return err
			}
			defer c.Close()

			info, err := c.Service().DescribeModel()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatYAML:
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(info)
			case formatJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			default:
				return fmt.Errorf("unsupported format %q (use %s or %s)", format, formatYAML, formatJSON)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatYAML, "Output format: yaml or json")

	return cmd
}
