// Package install prepares an extracted package and runs the package
// manager over it, so that exactly the bundled dependency set is importable
// from the package directory.
package install

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/resolve"
)

// DefaultCommand installs production dependencies with yarn.
var DefaultCommand = []string{
	"yarn", "install",
	"--production",
	"--non-interactive",
	"--ignore-scripts=false",
	"--ignore-engines",
}

// strippedSections are removed from the manifest before install; the
// bundled set is written back as the only dependency section.
var strippedSections = []string{
	"devDependencies",
	"peerDependencies",
	"optionalDependencies",
	"bundledDependencies",
	"bundleDependencies",
}

// Installer runs a package manager command inside a package directory.
type Installer struct {
	Command []string
	Env     []string
	Logger  *log.Logger
}

// New creates an Installer. A nil or empty command uses [DefaultCommand].
func New(command []string, logger *log.Logger) *Installer {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{Command: command, Logger: logger}
}

// Install rewrites pkgDir's manifest to list only c's bundled dependencies
// and then runs the package manager there. Nothing is run when there is
// nothing to install. Failures carry INSTALL_FAILED.
func (i *Installer) Install(ctx context.Context, pkgDir string, c resolve.Classification) error {
	if err := RewriteManifest(pkgDir, c); err != nil {
		return perrors.Wrap(perrors.ErrCodeInstall, err, "prepare manifest")
	}
	if len(c.Bundled) == 0 {
		i.Logger.Debug("no dependencies to install", "dir", pkgDir)
		return nil
	}

	name, args := i.Command[0], i.Command[1:]
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // configured command
	cmd.Dir = pkgDir
	cmd.Env = append(os.Environ(), i.Env...)

	stdout := newLineWriter(i.Logger, log.DebugLevel)
	stderr := newLineWriter(i.Logger, log.WarnLevel)
	cmd.Stdout, cmd.Stderr = stdout, stderr

	start := time.Now()
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return perrors.Wrap(perrors.ErrCodeInstall, err, "%s exited with code %d", name, exitCode)
	}
	i.Logger.Debug("installed dependencies", "count", len(c.Bundled), "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// RewriteManifest replaces the dependency sections of pkgDir/package.json
// with c's bundled set, leaving every other field untouched.
func RewriteManifest(pkgDir string, c resolve.Classification) error {
	path := filepath.Join(pkgDir, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var manifest map[string]json.RawMessage
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, section := range strippedSections {
		delete(manifest, section)
	}

	deps := c.Bundled
	if deps == nil {
		deps = map[string]string{}
	}
	raw, err := json.Marshal(deps)
	if err != nil {
		return err
	}
	manifest["dependencies"] = raw

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}
