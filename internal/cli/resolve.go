package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/snackpack/pkg/pipeline"
)

// resolveOutput is the JSON document written by `resolve --json`.
type resolveOutput struct {
	Name      string             `json:"name"`
	Version   string             `json:"version"`
	IsLatest  bool               `json:"isLatest"`
	Deep      bool               `json:"deep"`
	Platforms []string           `json:"platforms"`
	Bundled   map[string]string  `json:"bundledDependencies"`
	External  map[string]*string `json:"externalDependencies"`
}

func (c *CLI) resolveCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "resolve <spec>",
		Short: "Show the resolved version and dependency classification",
		Long: `Resolve picks the version a spec selects and shows which dependencies
would be installed and bundled and which would stay external. Only registry
metadata is fetched; nothing is installed.`,
		Example: `  snackpack resolve expo-av@~13
  snackpack resolve react-native-reanimated --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.resolve(cmd, args[0], !jsonOut)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(c.Out, resolveOutput{
					Name:      res.Spec.Name,
					Version:   res.Version.Version,
					IsLatest:  res.Version.IsLatest,
					Deep:      res.Spec.Deep,
					Platforms: res.Spec.Platforms,
					Bundled:   res.Classification.Bundled,
					External:  res.Classification.External,
				})
			}

			printKeyValue("version", res.Version.Version)
			printKeyValue("platforms", joinOrNone(res.Spec.Platforms))
			printKeyValue("bundled", joinOrNone(res.Classification.BundledNames()))
			printKeyValue("external", joinOrNone(res.Classification.ExternalNames()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the result as JSON")
	return cmd
}

// resolve runs the resolve stage behind a spinner when interactive is set.
func (c *CLI) resolve(cmd *cobra.Command, spec string, interactive bool) (*pipeline.Resolution, error) {
	ctx := cmd.Context()
	runner, cleanup, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if !interactive {
		return runner.Resolve(ctx, pipeline.Request{Spec: spec})
	}

	sp := newSpinner(ctx, os.Stderr, "Resolving "+spec)
	sp.Start()
	res, err := runner.Resolve(ctx, pipeline.Request{Spec: spec})
	if err != nil {
		if sp.Cancelled() {
			sp.Stop()
		} else {
			sp.StopWithError("%s", spec)
		}
		return nil, err
	}
	label := res.Spec.Name + "@" + res.Version.Version
	if res.Version.IsLatest {
		label += " " + StyleDim.Render("(latest)")
	}
	sp.StopWithSuccess("%s", label)
	return res, nil
}
