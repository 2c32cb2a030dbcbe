package registry

// Metadata is the registry document for one package: every published
// version's manifest plus the dist-tags pointing into them.
type Metadata struct {
	Name     string               `json:"name"`
	DistTags map[string]string    `json:"dist-tags"`
	Versions map[string]*Manifest `json:"versions"`
}

// Latest returns the version the "latest" dist-tag points to.
func (m *Metadata) Latest() string {
	if m == nil {
		return ""
	}
	return m.DistTags["latest"]
}

// Manifest is the per-version package manifest as served by the registry.
//
// Peer dependency ranges are pointers: upstream manifests occasionally
// publish a null range, and that absence is preserved rather than guessed.
type Manifest struct {
	Name                 string             `json:"name"`
	Version              string             `json:"version"`
	Dependencies         map[string]string  `json:"dependencies,omitempty"`
	PeerDependencies     map[string]*string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string  `json:"optionalDependencies,omitempty"`
	Dist                 Dist               `json:"dist"`
}

// Dist locates a version's tarball.
type Dist struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum,omitempty"`
	Integrity string `json:"integrity,omitempty"`
}
