package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
	"github.com/matzehuels/snackpack/pkg/bundler"
	perrors "github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/externals"
	"github.com/matzehuels/snackpack/pkg/lock"
	"github.com/matzehuels/snackpack/pkg/registry"
	"github.com/matzehuels/snackpack/pkg/resolve"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeRegistry struct {
	packages    map[string]*registry.Metadata
	metaErr     error
	tarballErr  error
	metaCalls   int
	tarballDirs []string
	mu          sync.Mutex
}

func (f *fakeRegistry) FetchMetadata(_ context.Context, name string) (*registry.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	meta, ok := f.packages[name]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return meta, nil
}

func (f *fakeRegistry) FetchTarball(_ context.Context, m *registry.Manifest, dir string) error {
	f.mu.Lock()
	f.tarballDirs = append(f.tarballDirs, dir)
	f.mu.Unlock()
	if f.tarballErr != nil {
		return f.tarballErr
	}
	pkgDir := registry.PackageDir(dir)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(pkgDir, "package.json"), []byte(`{"name":"`+m.Name+`"}`), 0o644)
}

type fakeInstaller struct {
	mu    sync.Mutex
	err   error
	delay time.Duration
	calls []resolve.Classification
}

func (f *fakeInstaller) Install(_ context.Context, pkgDir string, c resolve.Classification) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	time.Sleep(f.delay)
	if _, err := os.Stat(filepath.Join(pkgDir, "package.json")); err != nil {
		return err
	}
	return f.err
}

// fakeEngine emits one bundle per platform whose externals are fixed by the
// test; platforms listed in fail return an error.
type fakeEngine struct {
	mu        sync.Mutex
	fail      map[string]bool
	externals []string
	requests  []bundler.Request
}

func (f *fakeEngine) Build(_ context.Context, req bundler.Request) (*bundler.Output, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.fail[req.Platform] {
		return nil, errors.New("syntax error in " + req.Platform)
	}
	code := []byte("module.exports=" + `"` + req.Platform + `"` + ";")
	return &bundler.Output{
		Files:     map[string][]byte{bundler.OutputFile: code, "assets/0011.png": {1, 2, 3}},
		Externals: map[string][]string{bundler.OutputFile: slices.Clone(f.externals)},
	}, nil
}

type recordingSink struct {
	mu        sync.Mutex
	published []*bundleinfo.BundledPackage
}

func (s *recordingSink) Publish(_ context.Context, pkg *bundleinfo.BundledPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, pkg)
	return nil
}

func (s *recordingSink) Close(context.Context) error { return nil }

func ptr(s string) *string { return &s }

func testRegistry() *fakeRegistry {
	return &fakeRegistry{packages: map[string]*registry.Metadata{
		"my-lib": {
			Name:     "my-lib",
			DistTags: map[string]string{"latest": "2.0.0"},
			Versions: map[string]*registry.Manifest{
				"1.0.0": {Name: "my-lib", Version: "1.0.0"},
				"1.1.0": {Name: "my-lib", Version: "1.1.0"},
				"2.0.0": {
					Name:             "my-lib",
					Version:          "2.0.0",
					Dependencies:     map[string]string{"color": "^3", "react": "^18"},
					PeerDependencies: map[string]*string{"react-native-svg": ptr("*"), "expo-blur": nil},
				},
			},
		},
	}}
}

type fixture struct {
	runner    *Runner
	registry  *fakeRegistry
	installer *fakeInstaller
	engine    *fakeEngine
	sink      *recordingSink
	workdir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry:  testRegistry(),
		installer: &fakeInstaller{},
		engine:    &fakeEngine{fail: map[string]bool{}, externals: []string{"react"}},
		sink:      &recordingSink{},
		workdir:   t.TempDir(),
	}
	runner, err := NewRunner(Deps{
		Registry:  f.registry,
		Installer: f.installer,
		Engine:    f.engine,
		Sink:      f.sink,
	}, Options{
		WorkDir: f.workdir,
		Core:    externals.NewCore([]string{"react", "react-native"}),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	f.runner = runner
	return f
}

// =============================================================================
// Tests
// =============================================================================

func TestExecute(t *testing.T) {
	f := newFixture(t)

	result, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	pkg := result.Package
	if pkg.Name != "my-lib" || pkg.Version != "2.0.0" || !result.Version.IsLatest {
		t.Errorf("package = %s@%s latest=%v", pkg.Name, pkg.Version, result.Version.IsLatest)
	}
	if got := pkg.Platforms(); !slices.Equal(got, []string{"android", "ios", "web"}) {
		t.Errorf("platforms = %v", got)
	}
	info := pkg.Files["ios"][bundler.OutputFile]
	if info.SizeBytes != len(`module.exports="ios";`) || !slices.Equal(info.Externals, []string{"react"}) {
		t.Errorf("ios bundle info = %+v", info)
	}
	if info.Code != nil {
		t.Error("code embedded without being requested")
	}
	if asset := pkg.Files["ios"]["assets/0011.png"]; asset.SizeBytes != 3 || len(asset.Externals) != 0 {
		t.Errorf("asset info = %+v", asset)
	}
	if r, ok := pkg.PeerDependencies["expo-blur"]; !ok || r != nil {
		t.Error("null peer range should be carried through")
	}
	if len(result.Warnings) != 0 || len(result.Failed) != 0 {
		t.Errorf("unexpected warnings %v / failures %v", result.Warnings, result.Failed)
	}
	if len(f.sink.published) != 1 || f.sink.published[0] != pkg {
		t.Error("result was not published")
	}
}

func TestExecuteInstallsOnlyBundledSet(t *testing.T) {
	f := newFixture(t)
	if _, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib"}); err != nil {
		t.Fatal(err)
	}
	if len(f.installer.calls) != 1 {
		t.Fatalf("install calls = %d", len(f.installer.calls))
	}
	c := f.installer.calls[0]
	if got := c.BundledNames(); !slices.Equal(got, []string{"color"}) {
		t.Errorf("installed = %v, want [color]", got)
	}
	if got := c.ExternalNames(); !slices.Equal(got, []string{"expo-blur", "react", "react-native-svg"}) {
		t.Errorf("external = %v", got)
	}
}

func TestExecuteEngineRequest(t *testing.T) {
	f := newFixture(t)
	if _, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib@2/lib/Icon?platforms=web"}); err != nil {
		t.Fatal(err)
	}
	if len(f.engine.requests) != 1 {
		t.Fatalf("engine requests = %d", len(f.engine.requests))
	}
	req := f.engine.requests[0]
	if req.Entry != "lib/Icon" || req.Platform != "web" {
		t.Errorf("request = %+v", req)
	}
	want := []string{"expo-blur", "react", "react-native", "react-native-svg"}
	if !slices.Equal(req.Externals, want) {
		t.Errorf("externals = %v, want %v", req.Externals, want)
	}
	if len(req.Passthrough) == 0 {
		t.Error("passthrough rules not forwarded")
	}
}

func TestExecutePartialPlatformFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.fail["web"] = true

	result, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib?platforms=ios,android,web"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := result.Package.Platforms(); !slices.Equal(got, []string{"android", "ios"}) {
		t.Errorf("platforms = %v, want [android ios]", got)
	}
	if _, ok := result.Package.Files["web"]; ok {
		t.Error("failed platform must be omitted")
	}
	if !perrors.Is(result.Failed["web"], perrors.ErrCodePlatformBuild) {
		t.Errorf("web failure = %v", result.Failed["web"])
	}
	if msgs := result.PlatformErrors(); len(msgs) != 1 || msgs["web"] == "" {
		t.Errorf("PlatformErrors() = %v", msgs)
	}
}

func TestExecuteAllPlatformsFail(t *testing.T) {
	f := newFixture(t)
	f.engine.fail["ios"] = true

	result, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib?platforms=ios"})
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if !perrors.Is(err, perrors.ErrCodePlatformBuild) {
		t.Fatalf("error = %v, want PLATFORM_BUILD_FAILED", err)
	}
	if len(f.sink.published) != 0 {
		t.Error("failed run must not be published")
	}
}

func TestExecuteExternalMismatch(t *testing.T) {
	f := newFixture(t)
	f.engine.externals = []string{"left-pad", "react", "react-native-svg/Path"}

	result, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib?platforms=ios"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", result.Warnings)
	}
	want := bundleinfo.Mismatch{Package: "my-lib", Version: "2.0.0", Platform: "ios", Filename: bundler.OutputFile, External: "left-pad"}
	if result.Warnings[0] != want {
		t.Errorf("warning = %+v, want %+v", result.Warnings[0], want)
	}
	if len(result.Package.Files["ios"]) == 0 {
		t.Error("mismatch must not fail the build")
	}
}

func TestExecuteIdempotent(t *testing.T) {
	f := newFixture(t)
	f.engine.externals = []string{"react", "color"}

	a, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib@2.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib@2.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range a.Package.Platforms() {
		for name, info := range a.Package.Files[p] {
			other := b.Package.Files[p][name]
			if info.SizeBytes != other.SizeBytes || !slices.Equal(info.Externals, other.Externals) {
				t.Errorf("%s/%s differs: %+v vs %+v", p, name, info, other)
			}
		}
	}
	if f.registry.metaCalls != 2 {
		t.Errorf("metadata fetched %d times, want 2 (no caching)", f.registry.metaCalls)
	}
}

func TestExecuteIncludeCode(t *testing.T) {
	f := newFixture(t)
	result, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib?platforms=web", IncludeCode: true})
	if err != nil {
		t.Fatal(err)
	}
	info := result.Package.Files["web"][bundler.OutputFile]
	if info.Code == nil || *info.Code != `module.exports="web";` {
		t.Errorf("code = %v", info.Code)
	}
}

func TestExecuteRequestPlatformsAsDefault(t *testing.T) {
	f := newFixture(t)
	result, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib", Platforms: []string{"web"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Package.Platforms(); !slices.Equal(got, []string{"web"}) {
		t.Errorf("platforms = %v", got)
	}
}

func TestExecuteReleasesWorkdir(t *testing.T) {
	f := newFixture(t)
	f.engine.fail["ios"] = true

	f.runner.Execute(context.Background(), Request{Spec: "my-lib?platforms=web"})
	f.runner.Execute(context.Background(), Request{Spec: "my-lib?platforms=ios"})

	if len(f.registry.tarballDirs) != 2 || f.registry.tarballDirs[0] == f.registry.tarballDirs[1] {
		t.Errorf("working directories reused: %v", f.registry.tarballDirs)
	}
	entries, err := os.ReadDir(f.workdir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("working directories leaked: %v", entries)
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		setup func(*fixture)
		code  perrors.Code
	}{
		{"malformed spec", "@/x", nil, perrors.ErrCodeMalformedSpec},
		{"unknown platform", "my-lib?platforms=windows,tvos", nil, perrors.ErrCodeMalformedSpec},
		{"unknown package", "nope", nil, perrors.ErrCodePackageNotFound},
		{"unsatisfiable version", "my-lib@^9", nil, perrors.ErrCodeVersionNotFound},
		{"registry down", "my-lib", func(f *fixture) {
			f.registry.metaErr = &registry.RetryableError{Err: registry.ErrNetwork}
		}, perrors.ErrCodeNetwork},
		{"tarball failure", "my-lib", func(f *fixture) {
			f.registry.tarballErr = errors.New("connection reset")
		}, perrors.ErrCodeFetch},
		{"install failure", "my-lib", func(f *fixture) {
			f.installer.err = errors.New("exit status 1")
		}, perrors.ErrCodeInstall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.runner.Execute(context.Background(), Request{Spec: tt.spec})
			if !perrors.Is(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
			if len(f.engine.requests) != 0 {
				t.Error("engine ran after a fatal stage failure")
			}
		})
	}
}

func TestExecuteMalformedSpecSkipsRegistry(t *testing.T) {
	for _, spec := range []string{"", "my-lib?platforms=windows"} {
		f := newFixture(t)
		f.runner.Execute(context.Background(), Request{Spec: spec})
		if f.registry.metaCalls != 0 {
			t.Errorf("registry queried for malformed spec %q", spec)
		}
	}
}

func TestExecuteUnknownRequestPlatform(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib", Platforms: []string{"ios", "tvos"}})
	if !perrors.Is(err, perrors.ErrCodeMalformedSpec) {
		t.Errorf("error = %v, want MALFORMED_SPEC", err)
	}
}

func TestExecuteConcurrentLockTimeout(t *testing.T) {
	f := newFixture(t)
	f.installer.delay = 100 * time.Millisecond
	f.runner.Locker = lock.NewMemory(20 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.runner.Execute(context.Background(), Request{Spec: "my-lib"})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d: %v", i, err)
		}
	}
	if len(f.sink.published) != 2 {
		t.Errorf("published %d results, want 2", len(f.sink.published))
	}
}

type failingLocker struct{}

func (failingLocker) Acquire(context.Context, string) (lock.Lease, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingLocker) Close() error { return nil }

func TestExecuteLockerUnavailable(t *testing.T) {
	f := newFixture(t)
	f.runner.Locker = failingLocker{}
	if _, err := f.runner.Execute(context.Background(), Request{Spec: "my-lib"}); err != nil {
		t.Fatalf("Execute() = %v, want success without a lease", err)
	}
}

func TestExecuteCancelledWhileWaitingForLock(t *testing.T) {
	f := newFixture(t)
	locker := lock.NewMemory(time.Minute)
	f.runner.Locker = locker
	held, err := locker.Acquire(context.Background(), lock.Key("my-lib", "2.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.runner.Execute(ctx, Request{Spec: "my-lib"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
	if len(f.registry.tarballDirs) != 0 {
		t.Error("fetched a tarball after cancellation")
	}
}

func TestExecuteCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.registry.metaErr = context.Canceled
	cancel()
	if _, err := f.runner.Execute(ctx, Request{Spec: "my-lib"}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	res, err := f.runner.Resolve(context.Background(), Request{Spec: "my-lib@^1.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Version.Version != "1.1.0" || res.Version.IsLatest {
		t.Errorf("version = %+v, want 1.1.0 not latest", res.Version)
	}
	if len(f.registry.tarballDirs) != 0 {
		t.Error("Resolve downloaded a tarball")
	}
}

func TestNewRunnerValidation(t *testing.T) {
	deps := Deps{Registry: testRegistry(), Installer: &fakeInstaller{}, Engine: &fakeEngine{}}

	if _, err := NewRunner(Deps{}, Options{}, nil); err == nil {
		t.Error("missing collaborators should fail")
	}
	if _, err := NewRunner(deps, Options{Workers: -1}, nil); !perrors.Is(err, perrors.ErrCodeInvalidConfig) {
		t.Errorf("negative workers error = %v", err)
	}
	if _, err := NewRunner(deps, Options{DeepScope: "everything"}, nil); err == nil {
		t.Error("unknown deep scope should fail")
	}

	r, err := NewRunner(deps, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Options.Workers < 1 || r.Options.Core == nil || r.Options.Passthrough == nil || r.Locker == nil || r.Sink == nil {
		t.Errorf("defaults not applied: %+v", r.Options)
	}
	if !slices.Equal(r.Options.Platforms, []string{"ios", "android", "web"}) {
		t.Errorf("platforms = %v", r.Options.Platforms)
	}
}
