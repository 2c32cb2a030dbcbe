// Package bundler turns an installed package into per-platform bundles.
//
// The [Engine] interface is the narrow contract the pipeline depends on: a
// [Request] goes in, a map of output filename to bytes (plus the externals
// the engine left unresolved in each file) comes out. [ESBuild] implements
// it on top of esbuild's Go API with production settings:
//
//   - minification on, process.env.NODE_ENV and __DEV__ defined away
//   - CommonJS output written to bundle.js
//   - platform-suffixed module resolution (.ios.js, .native.js, ...)
//   - JSX allowed in .js files
//   - images, fonts and video turned into asset descriptor modules
//
// Any error the engine reports fails that platform's build.
package bundler

import (
	"context"
	"maps"
	"slices"

	"github.com/matzehuels/snackpack/pkg/externals"
)

// OutputFile is the file name the entry bundle is written to.
const OutputFile = "bundle.js"

// Request describes one platform build.
type Request struct {
	// Entry is the module to bundle, relative to Root. Empty selects the
	// package's own entry through its main fields.
	Entry string

	// Externals are package names left as runtime requires.
	Externals []string

	// Passthrough rules are consulted for bare imports before Externals.
	Passthrough externals.Rules

	Platform string

	// Root is the installed package directory.
	Root string
}

// Output is the result of one platform build.
type Output struct {
	// Files maps output file names (bundle.js, assets/...) to their bytes.
	Files map[string][]byte

	// Externals maps an output file name to the module references the engine
	// left unresolved in it, sorted. Files the engine did not analyse, such
	// as emitted assets, have no entry.
	Externals map[string][]string
}

// Filenames returns the output file names, sorted.
func (o *Output) Filenames() []string {
	return slices.Sorted(maps.Keys(o.Files))
}

// Engine builds one platform bundle.
type Engine interface {
	Build(ctx context.Context, req Request) (*Output, error)
}
