package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/evanw/esbuild/pkg/api"
)

const outDir = "dist"

// ESBuild is the esbuild-backed [Engine].
type ESBuild struct {
	Logger *log.Logger
}

// NewESBuild creates an esbuild engine.
func NewESBuild(logger *log.Logger) *ESBuild {
	if logger == nil {
		logger = log.Default()
	}
	return &ESBuild{Logger: logger}
}

// options returns the esbuild options for req. The caller supplies the
// collector asset artifacts are recorded in.
func (e *ESBuild) options(req Request, entry string, assets *assetCollector) api.BuildOptions {
	platform := api.PlatformNeutral
	if !IsNative(req.Platform) {
		platform = api.PlatformBrowser
	}

	return api.BuildOptions{
		EntryPoints:   []string{"./" + entry},
		AbsWorkingDir: req.Root,
		Outdir:        filepath.Join(req.Root, outDir),
		EntryNames:    strings.TrimSuffix(OutputFile, ".js"),
		AssetNames:    AssetDir + "/[hash]",

		Bundle:   true,
		Write:    false,
		Metafile: true,
		Format:   api.FormatCommonJS,
		Platform: platform,

		MainFields:        MainFields(req.Platform),
		Conditions:        Conditions(req.Platform),
		ResolveExtensions: ResolveExtensions(req.Platform),
		External:          req.Externals,

		Define: map[string]string{
			"process.env.NODE_ENV": `"production"`,
			"__DEV__":              "false",
		},
		Loader: map[string]api.Loader{
			".js":    api.LoaderJSX,
			".woff":  api.LoaderFile,
			".woff2": api.LoaderFile,
		},

		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsNone,
		Charset:           api.CharsetUTF8,
		LogLevel:          api.LogLevelSilent,

		Plugins: []api.Plugin{
			passthroughPlugin(req.Passthrough),
			assetPlugin(req.Platform, assets),
		},
	}
}

// Build bundles req. Cancelling ctx aborts the build.
func (e *ESBuild) Build(ctx context.Context, req Request) (*Output, error) {
	entry := strings.TrimPrefix(filepath.ToSlash(req.Entry), "./")
	if entry == "" {
		var err error
		if entry, err = PackageEntry(req.Root, req.Platform); err != nil {
			return nil, err
		}
	}

	assets := &assetCollector{}
	bctx, cerr := api.Context(e.options(req, entry, assets))
	if cerr != nil {
		return nil, fmt.Errorf("configure build: %w", formatErrors(cerr.Errors))
	}
	defer bctx.Dispose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			bctx.Cancel()
		case <-done:
		}
	}()

	e.Logger.Debug("esbuild", "platform", req.Platform, "entry", entry, "externals", len(req.Externals))
	result := bctx.Rebuild()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, formatErrors(result.Errors)
	}

	imports, err := externalImports(result.Metafile)
	if err != nil {
		return nil, fmt.Errorf("read metafile: %w", err)
	}

	out := &Output{
		Files:     make(map[string][]byte, len(result.OutputFiles)+len(assets.files)),
		Externals: make(map[string][]string),
	}
	outRoot := filepath.Join(req.Root, outDir)
	for _, f := range result.OutputFiles {
		name, err := filepath.Rel(outRoot, f.Path)
		if err != nil {
			return nil, err
		}
		name = filepath.ToSlash(name)
		out.Files[name] = f.Contents

		key, err := filepath.Rel(req.Root, f.Path)
		if err != nil {
			return nil, err
		}
		refs := imports[filepath.ToSlash(key)]
		if refs == nil {
			refs = []string{}
		}
		out.Externals[name] = refs
	}
	for name, data := range assets.files {
		out.Files[name] = data
	}
	return out, nil
}

func formatErrors(msgs []api.Message) error {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	errs := make([]error, 0, len(formatted))
	for _, m := range formatted {
		errs = append(errs, errors.New(strings.TrimSpace(m)))
	}
	if len(errs) == 0 {
		return errors.New("build failed")
	}
	return errors.Join(errs...)
}
