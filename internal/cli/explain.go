package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/snackpack/pkg/render"
)

func (c *CLI) explainCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "explain <spec>",
		Short: "Draw the dependency classification as a graph",
		Long: `Explain resolves a spec and draws its direct dependencies, grouped into
the bundled and external sets, as Graphviz DOT or SVG.`,
		Example: `  snackpack explain expo-image --format svg -o expo-image.svg
  snackpack explain lottie-react-native --detailed | dot -Tpng > lottie.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "dot" && format != "svg" {
				return fmt.Errorf("unknown format %q (want dot or svg)", format)
			}
			res, err := c.resolve(cmd, args[0], output != "")
			if err != nil {
				return err
			}

			opts := render.Options{Detailed: detailed}
			if c.config != nil {
				if po, err := c.config.PipelineOptions(); err == nil {
					opts.Core = po.Core
				}
			}
			data := []byte(render.ToDOT(res.Spec.Name, res.Version.Version, res.Classification, opts))
			if format == "svg" {
				if data, err = render.SVG(cmd.Context(), string(data)); err != nil {
					return err
				}
			}

			if output == "" {
				_, err := c.Out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include declared version ranges")
	return cmd
}
