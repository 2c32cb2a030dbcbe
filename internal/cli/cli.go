package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/snackpack/pkg/buildinfo"
	"github.com/matzehuels/snackpack/pkg/bundler"
	"github.com/matzehuels/snackpack/pkg/config"
	"github.com/matzehuels/snackpack/pkg/observability"
	"github.com/matzehuels/snackpack/pkg/pipeline"
	"github.com/matzehuels/snackpack/pkg/registry"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "snackpack"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command results (JSON, DOT, tables).
	Out io.Writer

	configPath string
	config     *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), Out: os.Stdout}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Snackpack bundles npm packages for ios, android and web",
		Long:         `Snackpack resolves a package from the registry, installs the dependencies it must carry, and bundles it once per platform, leaving peer and host-provided modules as runtime imports.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./"+config.FileName+")")

	root.AddCommand(c.bundleCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.explainCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig layers .env, the config file and the environment, then wires
// debug logging into the observability hooks.
func (c *CLI) loadConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	c.config = cfg

	hooks := &logHooks{logger: c.Logger}
	observability.SetHTTPHooks(hooks)
	observability.SetLockHooks(hooks)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner connects every collaborator the configuration names. The
// returned cleanup closes the locker and the sink.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, func(), error) {
	cfg := c.config
	if cfg == nil {
		cfg = config.Default()
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, nil, err
	}

	locker, err := cfg.OpenLocker(ctx)
	if err != nil {
		return nil, nil, err
	}
	sink, err := cfg.OpenSink(ctx)
	if err != nil {
		locker.Close()
		return nil, nil, err
	}
	cleanup := func() {
		closeCtx := context.WithoutCancel(ctx)
		if err := errors.Join(locker.Close(), sink.Close(closeCtx)); err != nil {
			c.Logger.Warn("close backends", "err", err)
		}
	}

	runner, err := pipeline.NewRunner(pipeline.Deps{
		Registry:  registry.NewClient(cfg.RegistryOptions()),
		Installer: cfg.Installer(c.Logger),
		Engine:    bundler.NewESBuild(c.Logger),
		Locker:    locker,
		Sink:      sink,
	}, opts, c.Logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return runner, cleanup, nil
}
