package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/snackpack/pkg/buildinfo"
	"github.com/matzehuels/snackpack/pkg/config"
)

func (c *CLI) configCommand() *cobra.Command {
	var paths bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration snackpack runs with, after the config
file and SNACKPACK_* environment variables are applied, as TOML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if paths {
				for _, p := range config.SearchPaths() {
					fmt.Fprintln(c.Out, p)
				}
				return nil
			}
			if c.config.Path != "" {
				fmt.Fprintf(c.Out, "# loaded from %s\n", c.config.Path)
			} else {
				fmt.Fprintln(c.Out, "# built-in defaults")
			}
			return c.config.Encode(c.Out)
		},
	}

	cmd.Flags().BoolVar(&paths, "paths", false, "list the config file search paths")
	return cmd
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// A broken config file must not hide the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(c.Out, buildinfo.String())
			return err
		},
	}
}
