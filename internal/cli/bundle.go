package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
	"github.com/matzehuels/snackpack/pkg/observability"
	"github.com/matzehuels/snackpack/pkg/pipeline"
)

type bundleFlags struct {
	platforms []string
	code      bool
	jsonOut   bool
	output    string
}

// bundleOutput is the JSON document written by `bundle --json`.
type bundleOutput struct {
	*bundleinfo.BundledPackage
	Warnings []bundleinfo.Mismatch `json:"warnings,omitempty"`
	Failed   map[string]string     `json:"failed,omitempty"`
}

func (c *CLI) bundleCommand() *cobra.Command {
	var flags bundleFlags

	cmd := &cobra.Command{
		Use:   "bundle <spec>",
		Short: "Bundle a package for each platform",
		Long: `Bundle resolves a package from the registry, installs its bundled
dependencies and produces one bundle per platform.

A spec is [@scope/]name[@tag][/subpath][?platforms=ios,web]. The tag may be a
dist-tag, an exact version or a semver range and defaults to "latest". A
subpath bundles a deep import instead of the package entry.`,
		Example: `  snackpack bundle lodash
  snackpack bundle @expo/vector-icons@^14/build/Ionicons --platforms web
  snackpack bundle react-native-svg --json -o svg.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBundle(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.platforms, "platforms", "p", nil, "platforms to bundle when the spec names none")
	cmd.Flags().BoolVar(&flags.code, "code", false, "embed bundle source in the JSON output")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "write the result as JSON")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the JSON result to a file")

	return cmd
}

func (c *CLI) runBundle(cmd *cobra.Command, spec string, flags bundleFlags) error {
	ctx := cmd.Context()
	runner, cleanup, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Status lines would corrupt JSON written to stdout.
	quiet := flags.jsonOut && flags.output == ""
	if !quiet {
		observability.SetPipelineHooks(&progressHooks{})
		defer observability.SetPipelineHooks(observability.NoopPipelineHooks{})
	}

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, pipeline.Request{
		Spec:        spec,
		Platforms:   flags.platforms,
		IncludeCode: flags.code,
	})
	if err != nil {
		return err
	}
	prog.done("Bundled " + result.Package.ID())

	out := bundleOutput{
		BundledPackage: result.Package,
		Warnings:       result.Warnings,
		Failed:         result.PlatformErrors(),
	}
	switch {
	case flags.output != "":
		if err := writeJSONFile(flags.output, out); err != nil {
			return err
		}
		printSummary(result)
		printFile(flags.output)
	case flags.jsonOut:
		return writeJSON(c.Out, out)
	default:
		printSummary(result)
	}
	return nil
}

func printSummary(result *pipeline.Result) {
	pkg := result.Package
	printNewline()
	printKeyValue("package", pkg.ID())
	if result.Version.IsLatest {
		printKeyValue("tag", "latest")
	}
	printKeyValue("bundled", joinOrNone(result.Classification.BundledNames()))
	printKeyValue("external", joinOrNone(result.Classification.ExternalNames()))

	for _, platform := range pkg.Platforms() {
		files := pkg.Files[platform]
		size := 0
		for _, info := range files {
			size += info.SizeBytes
		}
		printPlatform(platform, len(files), size)
	}

	for _, platform := range slices.Sorted(maps.Keys(result.Failed)) {
		printError("%s: %s", platform, result.Failed[platform])
	}
	for _, m := range result.Warnings {
		printWarning("%s", m.String())
	}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return StyleDim.Render("none")
	}
	return strings.Join(names, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
