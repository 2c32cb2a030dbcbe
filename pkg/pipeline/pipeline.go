// Package pipeline provides the bundling pipeline for snackpack.
//
// This package implements the complete resolve → install → bundle pipeline
// that the CLI and the HTTP server both run. By centralizing this logic, both
// entry points behave identically.
//
// # Architecture
//
// The pipeline consists of sequential stages followed by one parallel one:
//
//  1. Parse: split the request into name, tag, subpath and platforms
//  2. Resolve: fetch registry metadata, pick a version, classify dependencies
//  3. Install: fetch the tarball into a fresh working directory and install
//     the bundled dependency set
//  4. Build: bundle every requested platform concurrently, extract bundle
//     metadata and cross-check externals
//
// Failures in stages 1-3 abort the request. A platform build failure only
// drops that platform; the request fails when every platform failed.
//
// # Usage
//
//	runner, err := pipeline.NewRunner(pipeline.Deps{
//	    Registry:  registry.NewClient(registry.Options{}),
//	    Installer: install.New(nil, logger),
//	    Engine:    bundler.NewESBuild(logger),
//	}, pipeline.Options{}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := runner.Execute(ctx, pipeline.Request{Spec: "lodash@^4?platforms=web"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	info := result.Package.Files["web"]["bundle.js"]
package pipeline

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
	"github.com/matzehuels/snackpack/pkg/externals"
	"github.com/matzehuels/snackpack/pkg/resolve"
	"github.com/matzehuels/snackpack/pkg/spec"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultWorkers bounds concurrent platform builds per request.
var DefaultWorkers = min(runtime.NumCPU(), 4)

// =============================================================================
// Options - Runner Configuration
// =============================================================================

// Options configures a Runner. They are static for a deployment.
type Options struct {
	// Platforms used when a request names none (default: ios, android, web).
	Platforms []string

	// Workers bounds concurrent platform builds within one request.
	Workers int

	// WorkDir is the base directory for per-request working directories
	// (default: system temp dir).
	WorkDir string

	// DeepScope selects what a deep request changes about classification.
	DeepScope resolve.DeepScope

	// Core is the process-wide set of host-provided modules.
	Core *externals.Core

	// Passthrough rules externalize deep imports of multi-entry libraries.
	Passthrough externals.Rules

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Platforms) == 0 {
		o.Platforms = spec.DefaultPlatforms
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", o.Workers)
	}
	scope, err := resolve.ParseDeepScope(string(o.DeepScope))
	if err != nil {
		return err
	}
	o.DeepScope = scope
	if o.Core == nil {
		o.Core = externals.DefaultCore()
	}
	if o.Passthrough == nil {
		o.Passthrough = externals.DefaultPassthrough()
	}
	o.validated = true
	return nil
}

// =============================================================================
// Request / Result
// =============================================================================

// Request is one bundling request.
type Request struct {
	// Spec is the raw request string: [@scope/]name[@tag][/subpath][?platforms=..]
	Spec string `json:"spec"`

	// Platforms replace the runner's defaults when the spec names none.
	Platforms []string `json:"platforms,omitempty"`

	// IncludeCode embeds each artifact's source in its BundleInfo.
	IncludeCode bool `json:"includeCode,omitempty"`
}

// Resolution is the outcome of the resolve stages.
type Resolution struct {
	Spec           spec.PackageSpec
	Version        resolve.Version
	Classification resolve.Classification
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Resolution

	// Package is the aggregated bundle; it only lists platforms that built.
	Package *bundleinfo.BundledPackage

	// Warnings are external references not covered by core or peers.
	Warnings []bundleinfo.Mismatch

	// Failed maps each platform whose build failed to its error.
	Failed map[string]error

	// Stats contains timing information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ResolveTime time.Duration
	InstallTime time.Duration
	BuildTime   time.Duration
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
