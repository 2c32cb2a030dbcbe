// Package bundleinfo derives the durable description of each bundle
// artifact and cross-checks the externals it relies on against what the
// host and the package's peer dependencies promise to provide.
package bundleinfo

import (
	"path"
	"slices"
	"unicode/utf8"
)

// BundleInfo describes one emitted file of one platform build.
type BundleInfo struct {
	SizeBytes int      `json:"sizeBytes"`
	Externals []string `json:"externals"`
	Code      *string  `json:"code,omitempty"`
}

// Artifact is one raw output file as produced by the bundling engine.
type Artifact struct {
	Platform string
	Filename string
	Data     []byte

	// Externals as reported by the engine. nil means the engine reported
	// nothing for this file and its source is scanned instead.
	Externals []string
}

// Extract computes the BundleInfo of a. When includeCode is set and the
// artifact is valid UTF-8, its text is embedded.
func Extract(a Artifact, includeCode bool) BundleInfo {
	refs := a.Externals
	if refs == nil && isScript(a.Filename) {
		refs = ScanRequires(a.Data)
	}
	refs = slices.Clone(refs)
	slices.Sort(refs)
	refs = slices.Compact(refs)
	if refs == nil {
		refs = []string{}
	}

	info := BundleInfo{SizeBytes: len(a.Data), Externals: refs}
	if includeCode && utf8.Valid(a.Data) {
		code := string(a.Data)
		info.Code = &code
	}
	return info
}

func isScript(name string) bool {
	switch path.Ext(name) {
	case ".js", ".cjs", ".mjs":
		return true
	}
	return false
}
