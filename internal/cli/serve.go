package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/snackpack/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr        string
		maxInFlight int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve bundles over HTTP",
		Long: `Serve runs the HTTP endpoint GET /bundle/{spec}. The listen address
defaults to [server] addr from the config file or SNACKPACK_ADDR.`,
		Example: `  snackpack serve --addr :9000
  curl 'localhost:9000/bundle/lodash@4?platforms=web'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, cleanup, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr == "" {
				addr = c.config.Server.Addr
			}
			srv := server.New(runner, server.Options{Addr: addr, MaxInFlight: maxInFlight}, c.Logger)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().IntVar(&maxInFlight, "max-in-flight", 0, "concurrent bundle requests (0: unlimited)")
	return cmd
}
