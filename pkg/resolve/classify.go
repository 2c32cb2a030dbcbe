package resolve

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/externals"
	"github.com/matzehuels/snackpack/pkg/registry"
)

// DeepScope selects what a deep request changes about classification.
type DeepScope string

const (
	// DeepScopeOptional forces optional dependencies, otherwise left to the
	// host, into the bundled set.
	DeepScopeOptional DeepScope = "optional"

	// DeepScopeNone leaves classification untouched; deep only moves the entry.
	DeepScopeNone DeepScope = "none"
)

// ParseDeepScope validates a configured scope. Empty means [DeepScopeOptional].
func ParseDeepScope(s string) (DeepScope, error) {
	switch DeepScope(s) {
	case "", DeepScopeOptional:
		return DeepScopeOptional, nil
	case DeepScopeNone:
		return DeepScopeNone, nil
	}
	return "", fmt.Errorf("unknown deep scope %q (want %q or %q)", s, DeepScopeOptional, DeepScopeNone)
}

// Classification partitions a manifest's dependencies.
//
// Bundled maps each dependency to install and inline to its range. External
// maps each dependency the host supplies to its declared range, or nil when
// the manifest declared none. The two key sets are disjoint.
type Classification struct {
	Bundled  map[string]string  `json:"bundledDependencies"`
	External map[string]*string `json:"externalDependencies"`
}

// ClassifyOptions controls [Classify].
type ClassifyOptions struct {
	Deep  bool
	Scope DeepScope
	Core  *externals.Core
}

// Classify partitions the dependencies of meta's manifest for v.
//
// Peer dependencies are always external and win over any other section
// naming the same package. Dependencies the host runtime provides (core
// externals) are external too. Optional dependencies are external unless
// the request is deep under [DeepScopeOptional]. Everything else is bundled.
func Classify(meta *registry.Metadata, v Version, opts ClassifyOptions) (Classification, error) {
	if meta == nil {
		return Classification{}, errors.New(errors.ErrCodePackageNotFound, "no metadata to classify")
	}
	m := meta.Versions[v.Version]
	if m == nil {
		return Classification{}, errors.New(errors.ErrCodeVersionNotFound, "%s has no manifest for %s", meta.Name, v.Version)
	}
	return ClassifyManifest(m, opts), nil
}

// ClassifyManifest applies the [Classify] policy to a single manifest.
func ClassifyManifest(m *registry.Manifest, opts ClassifyOptions) Classification {
	if opts.Scope == "" {
		opts.Scope = DeepScopeOptional
	}
	c := Classification{
		Bundled:  make(map[string]string),
		External: make(map[string]*string),
	}

	for name, r := range m.PeerDependencies {
		c.External[name] = r
	}

	externalize := func(name, r string) {
		c.External[name] = &r
	}

	// Published manifests repeat optional dependencies under dependencies,
	// so optional placement is decided first.
	forceOptional := opts.Deep && opts.Scope == DeepScopeOptional
	for name, r := range m.OptionalDependencies {
		switch {
		case c.has(name):
		case opts.Core.Contains(name), !forceOptional:
			externalize(name, r)
		default:
			c.Bundled[name] = r
		}
	}

	for name, r := range m.Dependencies {
		switch {
		case c.has(name):
		case opts.Core.Contains(name):
			externalize(name, r)
		default:
			c.Bundled[name] = r
		}
	}
	return c
}

func (c Classification) has(name string) bool {
	_, ok := c.Bundled[name]
	return ok || c.IsExternal(name)
}

// IsExternal reports whether name is one of the external dependencies.
func (c Classification) IsExternal(name string) bool {
	_, ok := c.External[name]
	return ok
}

// BundledNames returns the bundled dependency names, sorted.
func (c Classification) BundledNames() []string {
	return slices.Sorted(maps.Keys(c.Bundled))
}

// ExternalNames returns the external dependency names, sorted.
func (c Classification) ExternalNames() []string {
	return slices.Sorted(maps.Keys(c.External))
}
