package config

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/externals"
	"github.com/matzehuels/snackpack/pkg/install"
	"github.com/matzehuels/snackpack/pkg/lock"
	"github.com/matzehuels/snackpack/pkg/pipeline"
	"github.com/matzehuels/snackpack/pkg/registry"
	"github.com/matzehuels/snackpack/pkg/resolve"
	"github.com/matzehuels/snackpack/pkg/store"
)

// RegistryOptions returns the registry client options.
func (c *Config) RegistryOptions() registry.Options {
	return registry.Options{
		BaseURL:  c.Registry.URL,
		Timeout:  c.Registry.Timeout.Duration,
		Attempts: c.Registry.Retries + 1,
	}
}

// PipelineOptions returns the runner options. The core externals set is
// built here once and shared read-only by every request.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	rules, err := externals.CompileRules(c.Bundle.Passthrough)
	if err != nil {
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "bundle.passthrough")
	}
	return pipeline.Options{
		Platforms:   slices.Clone(c.Bundle.Platforms),
		Workers:     c.Bundle.Workers,
		WorkDir:     c.Bundle.WorkDir,
		DeepScope:   resolve.DeepScope(c.Bundle.DeepScope),
		Core:        externals.NewCore(c.Bundle.CoreExternals),
		Passthrough: rules,
	}, nil
}

// Installer returns the configured package manager runner.
func (c *Config) Installer(logger *log.Logger) *install.Installer {
	return install.New(slices.Clone(c.Install.Command), logger)
}

// OpenLocker connects the configured locker.
func (c *Config) OpenLocker(ctx context.Context) (lock.Locker, error) {
	switch c.Lock.Backend {
	case BackendMemory, "":
		return lock.NewMemory(c.Lock.Timeout.Duration), nil
	case BackendRedis:
		l, err := lock.NewRedis(ctx, lock.RedisConfig{
			URL:     c.Lock.RedisURL,
			TTL:     c.Lock.TTL.Duration,
			Timeout: c.Lock.Timeout.Duration,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect redis locker")
		}
		return l, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown lock backend %q", c.Lock.Backend)
}

// OpenSink connects the configured publication sink.
func (c *Config) OpenSink(ctx context.Context) (store.Sink, error) {
	switch c.Store.Backend {
	case BackendNone, "":
		return store.NewNull(), nil
	case BackendFile:
		s, err := store.NewFile(c.Store.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open file store")
		}
		return s, nil
	case BackendMongo:
		s, err := store.NewMongo(ctx, store.MongoConfig{
			URI:        c.Store.MongoURI,
			Database:   c.Store.Database,
			Collection: c.Store.Collection,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect mongo store")
		}
		return s, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
}
