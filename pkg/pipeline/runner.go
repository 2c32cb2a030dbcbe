package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
	"github.com/matzehuels/snackpack/pkg/bundler"
	perrors "github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/lock"
	"github.com/matzehuels/snackpack/pkg/observability"
	"github.com/matzehuels/snackpack/pkg/registry"
	"github.com/matzehuels/snackpack/pkg/resolve"
	"github.com/matzehuels/snackpack/pkg/spec"
	"github.com/matzehuels/snackpack/pkg/store"
	"github.com/matzehuels/snackpack/pkg/workdir"
)

// Registry answers metadata and tarball requests.
type Registry interface {
	FetchMetadata(ctx context.Context, name string) (*registry.Metadata, error)
	FetchTarball(ctx context.Context, m *registry.Manifest, dir string) error
}

// Installer installs the bundled dependency set into a package directory.
type Installer interface {
	Install(ctx context.Context, pkgDir string, c resolve.Classification) error
}

// Deps are the collaborators a Runner drives.
type Deps struct {
	Registry  Registry
	Installer Installer
	Engine    bundler.Engine
	Locker    lock.Locker // default: in-memory
	Sink      store.Sink  // default: discard
}

// Runner executes bundling requests.
//
// The Runner holds no per-request state. Multiple goroutines can safely
// call Execute concurrently; builds of the same package version wait for
// each other through the Locker, up to its timeout.
type Runner struct {
	Deps
	Options Options
	Logger  *log.Logger
}

// NewRunner validates opts and creates a runner.
func NewRunner(deps Deps, opts Options, logger *log.Logger) (*Runner, error) {
	if deps.Registry == nil || deps.Installer == nil || deps.Engine == nil {
		return nil, errors.New("registry, installer and engine are required")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "invalid pipeline options")
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewMemory(0)
	}
	if deps.Sink == nil {
		deps.Sink = store.NewNull()
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Runner{Deps: deps, Options: opts, Logger: logger}, nil
}

// Execute runs the complete resolve → install → bundle pipeline.
func (r *Runner) Execute(ctx context.Context, req Request) (*Result, error) {
	resolveStart := time.Now()
	res, manifest, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{Resolution: *res, Failed: make(map[string]error)}
	result.Stats.ResolveTime = time.Since(resolveStart)

	name, version := res.Spec.Name, res.Version.Version
	logger := r.Logger.With("package", name, "version", version)
	logger.Info("resolved package",
		"tag", res.Spec.Tag,
		"latest", res.Version.IsLatest,
		"bundled", len(res.Classification.Bundled),
		"external", len(res.Classification.External),
		"duration", result.Stats.ResolveTime)

	lease, err := r.acquire(ctx, logger, lock.Key(name, version))
	if err != nil {
		return nil, err
	}
	if lease != nil {
		defer func() {
			if err := lease.Release(ctx); err != nil {
				logger.Warn("release lock", "err", err)
			}
		}()
	}

	dir, err := workdir.Acquire(r.Options.WorkDir, name)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInternal, err, "create working directory")
	}
	defer func() {
		if err := dir.Release(); err != nil {
			logger.Warn("remove working directory", "path", dir.Path, "err", err)
		}
	}()

	installStart := time.Now()
	if err := r.install(ctx, manifest, dir, res); err != nil {
		return nil, err
	}
	result.Stats.InstallTime = time.Since(installStart)
	logger.Info("installed package", "duration", result.Stats.InstallTime)

	buildStart := time.Now()
	r.build(ctx, logger, dir.PackageDir(), req.IncludeCode, result)
	result.Stats.BuildTime = time.Since(buildStart)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(result.Package.Files) == 0 {
		return nil, allFailed(result.Failed)
	}
	logger.Info("bundled package",
		"platforms", result.Package.Platforms(),
		"failed", len(result.Failed),
		"warnings", len(result.Warnings),
		"duration", result.Stats.BuildTime)

	if err := r.Sink.Publish(ctx, result.Package); err != nil {
		logger.Warn("publish result", "err", err)
	}
	return result, nil
}

// acquire takes the in-flight lease for key. The lease only keeps duplicate
// builds from running side by side; each request works in its own directory,
// so a locker that times out or fails is logged and the build goes ahead
// without a lease. Only cancellation of ctx is returned.
func (r *Runner) acquire(ctx context.Context, logger *log.Logger, key string) (lock.Lease, error) {
	lease, err := r.Locker.Acquire(ctx, key)
	if err == nil {
		return lease, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	logger.Warn("building without lock", "key", key, "err", err)
	return nil, nil
}

// Resolve runs only the parse and resolve stages: nothing is downloaded
// beyond registry metadata.
func (r *Runner) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	res, _, err := r.resolve(ctx, req)
	return res, err
}

func (r *Runner) resolve(ctx context.Context, req Request) (*Resolution, *registry.Manifest, error) {
	defaults := req.Platforms
	if len(defaults) == 0 {
		defaults = r.Options.Platforms
	}
	ps, err := spec.Parse(req.Spec, defaults)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range ps.Platforms {
		if !bundler.Supported(p) {
			return nil, nil, perrors.New(perrors.ErrCodeMalformedSpec,
				"unsupported platform %q (supported: %s)", p, strings.Join(bundler.Platforms, ", "))
		}
	}

	meta, err := r.Registry.FetchMetadata(ctx, ps.Name)
	if err != nil {
		return nil, nil, metadataError(ctx, ps.Name, err)
	}

	v, err := resolve.FindVersion(meta, ps.Tag)
	observability.Pipeline().OnResolve(ctx, ps.Name, ps.Tag, v.Version, err)
	if err != nil {
		return nil, nil, err
	}

	cls, err := resolve.Classify(meta, v, resolve.ClassifyOptions{
		Deep:  ps.Deep,
		Scope: r.Options.DeepScope,
		Core:  r.Options.Core,
	})
	if err != nil {
		return nil, nil, err
	}

	return &Resolution{Spec: ps, Version: v, Classification: cls}, meta.Versions[v.Version], nil
}

func metadataError(ctx context.Context, name string, err error) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return perrors.Wrap(perrors.ErrCodePackageNotFound, err, "package %s not found", name)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, registry.ErrNetwork):
		return perrors.Wrap(perrors.ErrCodeNetwork, err, "fetch metadata for %s", name)
	default:
		return perrors.Wrap(perrors.ErrCodeFetch, err, "fetch metadata for %s", name)
	}
}

func (r *Runner) install(ctx context.Context, m *registry.Manifest, dir *workdir.Dir, res *Resolution) error {
	name, version := res.Spec.Name, res.Version.Version
	hooks := observability.Pipeline()
	hooks.OnInstallStart(ctx, name, version)
	start := time.Now()

	err := r.Registry.FetchTarball(ctx, m, dir.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = perrors.Wrap(perrors.ErrCodeFetch, err, "fetch %s@%s", name, version)
		}
	} else if err = r.Installer.Install(ctx, dir.PackageDir(), res.Classification); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if perrors.GetCode(err) == "" {
			err = perrors.Wrap(perrors.ErrCodeInstall, err, "install %s@%s", name, version)
		}
	}

	hooks.OnInstallComplete(ctx, name, version, time.Since(start), err)
	return err
}

// externalsFor is the union of the classifier's external dependencies and
// the core externals, sorted.
func (r *Runner) externalsFor(cls resolve.Classification) []string {
	list := append(cls.ExternalNames(), r.Options.Core.Names()...)
	slices.Sort(list)
	return slices.Compact(list)
}

type platformResult struct {
	files    map[string]bundleinfo.BundleInfo
	warnings []bundleinfo.Mismatch
	err      error
}

// build bundles every requested platform on a bounded worker pool. Each
// platform's outcome lands in its own slot; a failure never cancels siblings.
func (r *Runner) build(ctx context.Context, logger *log.Logger, root string, includeCode bool, result *Result) {
	platforms := result.Spec.Platforms
	exts := r.externalsFor(result.Classification)
	checker := bundleinfo.CrossChecker{
		Package: result.Spec.Name,
		Version: result.Version.Version,
		Core:    r.Options.Core,
		Peers:   result.Classification.External,
	}

	results := make([]platformResult, len(platforms))
	g := new(errgroup.Group)
	g.SetLimit(r.Options.Workers)
	for i, platform := range platforms {
		g.Go(func() error {
			results[i] = r.buildPlatform(ctx, logger, bundler.Request{
				Entry:       result.Spec.Subpath,
				Externals:   exts,
				Passthrough: r.Options.Passthrough,
				Platform:    platform,
				Root:        root,
			}, includeCode, checker)
			return nil
		})
	}
	_ = g.Wait()

	pkg := &bundleinfo.BundledPackage{
		Name:             result.Spec.Name,
		Version:          result.Version.Version,
		PeerDependencies: result.Classification.External,
		Files:            make(map[string]map[string]bundleinfo.BundleInfo),
	}
	for i, platform := range platforms {
		pr := results[i]
		if pr.err != nil {
			result.Failed[platform] = pr.err
			continue
		}
		pkg.Files[platform] = pr.files
		result.Warnings = append(result.Warnings, pr.warnings...)
	}
	result.Package = pkg
}

func (r *Runner) buildPlatform(ctx context.Context, logger *log.Logger, req bundler.Request, includeCode bool, checker bundleinfo.CrossChecker) platformResult {
	hooks := observability.Pipeline()
	hooks.OnPlatformBuildStart(ctx, checker.Package, req.Platform)
	start := time.Now()
	logger = logger.With("platform", req.Platform)

	out, err := r.Engine.Build(ctx, req)
	if err != nil {
		err = perrors.Wrap(perrors.ErrCodePlatformBuild, err, "build %s", req.Platform)
		hooks.OnPlatformBuildComplete(ctx, checker.Package, req.Platform, 0, time.Since(start), err)
		logger.Error("platform build failed", "err", err)
		return platformResult{err: err}
	}

	pr := platformResult{files: make(map[string]bundleinfo.BundleInfo, len(out.Files))}
	size := 0
	for _, filename := range out.Filenames() {
		refs, known := out.Externals[filename]
		if !known {
			refs = nil
		}
		info := bundleinfo.Extract(bundleinfo.Artifact{
			Platform:  req.Platform,
			Filename:  filename,
			Data:      out.Files[filename],
			Externals: refs,
		}, includeCode)
		pr.files[filename] = info
		size += info.SizeBytes

		for _, m := range checker.Check(req.Platform, filename, info.Externals) {
			logger.Warn(m.String())
			hooks.OnExternalMismatch(ctx, m.Package, m.Platform, m.External)
			pr.warnings = append(pr.warnings, m)
		}
	}

	hooks.OnPlatformBuildComplete(ctx, checker.Package, req.Platform, size, time.Since(start), nil)
	logger.Debug("platform built", "files", len(pr.files), "size", size, "duration", time.Since(start))
	return pr
}

// allFailed folds per-platform failures into one PLATFORM_BUILD_FAILED.
func allFailed(failed map[string]error) error {
	platforms := make([]string, 0, len(failed))
	for p := range failed {
		platforms = append(platforms, p)
	}
	slices.Sort(platforms)

	errs := make([]error, 0, len(platforms))
	for _, p := range platforms {
		errs = append(errs, failed[p])
	}
	return perrors.Wrap(perrors.ErrCodePlatformBuild, errors.Join(errs...),
		"all %d requested platforms failed", len(platforms))
}

// PlatformErrors renders failed platforms as messages, for reporting.
func (r *Result) PlatformErrors() map[string]string {
	if len(r.Failed) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.Failed))
	for p, err := range r.Failed {
		out[p] = err.Error()
	}
	return out
}
