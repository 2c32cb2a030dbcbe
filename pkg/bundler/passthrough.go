package bundler

import (
	"github.com/evanw/esbuild/pkg/api"

	"github.com/matzehuels/snackpack/pkg/externals"
)

// passthroughPlugin externalizes bare imports matched by an externalizing
// rule. Everything else falls through to esbuild's own resolution and its
// External list.
func passthroughPlugin(rules externals.Rules) api.Plugin {
	return api.Plugin{
		Name: "passthrough",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^[^./]`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if ext, ok := rules.Match(args.Path); ok && ext {
						return api.OnResolveResult{Path: args.Path, External: true}, nil
					}
					return api.OnResolveResult{}, nil
				})
		},
	}
}
