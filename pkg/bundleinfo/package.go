package bundleinfo

import (
	"maps"
	"slices"
)

// BundledPackage is the terminal result of one bundling run. Its JSON form
// is the contract consumers rely on.
type BundledPackage struct {
	Name             string                           `json:"name"`
	Version          string                           `json:"version"`
	PeerDependencies map[string]*string               `json:"peerDependencies"`
	Files            map[string]map[string]BundleInfo `json:"files"`
}

// Platforms returns the platforms with at least one file, sorted.
func (p *BundledPackage) Platforms() []string {
	return slices.Sorted(maps.Keys(p.Files))
}

// ID is the "name@version" identifier of the package.
func (p *BundledPackage) ID() string {
	return p.Name + "@" + p.Version
}
