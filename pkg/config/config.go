// Package config loads snackpack's configuration.
//
// Configuration comes from three layers, later ones winning:
//
//  1. Built-in defaults ([Default])
//  2. A TOML file: ./snackpack.toml, then $XDG_CONFIG_HOME/snackpack/config.toml
//  3. SNACKPACK_* environment variables, optionally seeded from a .env file
//
// Example file:
//
//	[registry]
//	url = "https://registry.npmjs.org"
//	timeout = "30s"
//	retries = 2
//
//	[bundle]
//	platforms = ["ios", "android", "web"]
//	workers = 4
//	deep_scope = "optional"
//
//	[[bundle.passthrough]]
//	pattern = '^react-native-gesture-handler/[^/]+$'
//	externalize = true
//
//	[lock]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/snackpack/pkg/bundler"
	"github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/externals"
	"github.com/matzehuels/snackpack/pkg/install"
	"github.com/matzehuels/snackpack/pkg/lock"
	"github.com/matzehuels/snackpack/pkg/pipeline"
	"github.com/matzehuels/snackpack/pkg/registry"
	"github.com/matzehuels/snackpack/pkg/resolve"
	"github.com/matzehuels/snackpack/pkg/spec"
)

// Environment variables that override file settings.
const (
	EnvRegistryURL = "SNACKPACK_REGISTRY_URL"
	EnvWorkDir     = "SNACKPACK_WORKDIR"
	EnvRedisURL    = "SNACKPACK_REDIS_URL"
	EnvMongoURI    = "SNACKPACK_MONGO_URI"
	EnvAddr        = "SNACKPACK_ADDR"
)

// Backend names for [Lock.Backend] and [Store.Backend].
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// FileName is the config file looked up in the working directory.
const FileName = "snackpack.toml"

// Duration is a time.Duration written as a string ("30s", "10m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete snackpack configuration.
type Config struct {
	Registry Registry `toml:"registry"`
	Bundle   Bundle   `toml:"bundle"`
	Install  Install  `toml:"install"`
	Server   Server   `toml:"server"`
	Lock     Lock     `toml:"lock"`
	Store    Store    `toml:"store"`

	// Path is the file the configuration was read from; empty for defaults.
	Path string `toml:"-"`
}

// Registry configures the package registry client.
type Registry struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
	Retries int      `toml:"retries"` // Retries after the first attempt
}

// Bundle configures the pipeline.
type Bundle struct {
	Platforms     []string             `toml:"platforms"`
	Workers       int                  `toml:"workers"`
	WorkDir       string               `toml:"workdir"`
	CoreExternals []string             `toml:"core_externals"`
	Passthrough   []externals.RuleSpec `toml:"passthrough"`
	DeepScope     string               `toml:"deep_scope"`
}

// Install configures the package manager invocation.
type Install struct {
	Command []string `toml:"command"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr string `toml:"addr"`
}

// Lock selects the in-flight locker.
type Lock struct {
	Backend  string   `toml:"backend"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
	Timeout  Duration `toml:"timeout"`
}

// Store selects where finished bundles are published.
type Store struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry: Registry{
			URL:     registry.DefaultURL,
			Timeout: Duration{30 * time.Second},
			Retries: 2,
		},
		Bundle: Bundle{
			Platforms:     slices.Clone(spec.DefaultPlatforms),
			Workers:       pipeline.DefaultWorkers,
			CoreExternals: slices.Clone(externals.DefaultCoreNames),
			Passthrough:   slices.Clone(externals.DefaultRules),
			DeepScope:     string(resolve.DeepScopeOptional),
		},
		Install: Install{Command: slices.Clone(install.DefaultCommand)},
		Server:  Server{Addr: ":8080"},
		Lock: Lock{
			Backend: BackendMemory,
			TTL:     Duration{10 * time.Minute},
			Timeout: Duration{lock.DefaultTimeout},
		},
		Store: Store{
			Backend:    BackendNone,
			Dir:        "bundles",
			Database:   "snackpack",
			Collection: "bundles",
		},
	}
}

// SearchPaths returns the locations probed when no config path is given.
func SearchPaths() []string {
	paths := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "snackpack", "config.toml"))
	}
	return paths
}

// Load reads the config at path on top of [Default]. An empty path probes
// [SearchPaths] and falls back to the defaults when none exists; an explicit
// path must exist. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default: ".env")
// into the process environment. Missing files are ignored and variables
// already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", f)
		}
	}
	return nil
}

// ApplyEnv overrides settings from the environment. A Redis URL switches
// the default memory locker to Redis and a Mongo URI switches a disabled
// store to MongoDB.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvRegistryURL); v != "" {
		c.Registry.URL = v
	}
	if v := getenv(EnvWorkDir); v != "" {
		c.Bundle.WorkDir = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.Lock.RedisURL = v
		if c.Lock.Backend == BackendMemory {
			c.Lock.Backend = BackendRedis
		}
	}
	if v := getenv(EnvMongoURI); v != "" {
		c.Store.MongoURI = v
		if c.Store.Backend == BackendNone {
			c.Store.Backend = BackendMongo
		}
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if u, err := url.Parse(c.Registry.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail("registry.url %q is not an http(s) URL", c.Registry.URL)
	}
	if c.Registry.Timeout.Duration <= 0 {
		fail("registry.timeout must be positive")
	}
	if c.Registry.Retries < 0 {
		fail("registry.retries must not be negative")
	}

	if len(c.Bundle.Platforms) == 0 {
		fail("bundle.platforms must not be empty")
	}
	for _, p := range c.Bundle.Platforms {
		if !bundler.Supported(p) {
			fail("bundle.platforms: unknown platform %q (want one of %s)", p, strings.Join(bundler.Platforms, ", "))
		}
	}
	if c.Bundle.Workers < 1 {
		fail("bundle.workers must be at least 1, got %d", c.Bundle.Workers)
	}
	if _, err := resolve.ParseDeepScope(c.Bundle.DeepScope); err != nil {
		fail("bundle.deep_scope: %v", err)
	}
	if _, err := externals.CompileRules(c.Bundle.Passthrough); err != nil {
		fail("bundle.%v", err)
	}

	if len(c.Install.Command) == 0 {
		fail("install.command must not be empty")
	}

	switch c.Lock.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Lock.RedisURL == "" {
			fail("lock.redis_url is required for the redis backend")
		}
	default:
		fail("lock.backend: unknown backend %q", c.Lock.Backend)
	}

	switch c.Store.Backend {
	case BackendNone:
	case BackendFile:
		if c.Store.Dir == "" {
			fail("store.dir is required for the file backend")
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			fail("store.mongo_uri is required for the mongo backend")
		}
	default:
		fail("store.backend: unknown backend %q", c.Store.Backend)
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
