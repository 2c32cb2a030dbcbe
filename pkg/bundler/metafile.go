package bundler

import (
	"encoding/json"
	"slices"
)

// metafile is the subset of esbuild's metafile read after a build.
type metafile struct {
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileOutput struct {
	Bytes      int              `json:"bytes"`
	Imports    []metafileImport `json:"imports"`
	EntryPoint string           `json:"entryPoint,omitempty"`
}

type metafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// externalImports returns, per output path, the deduplicated sorted list of
// imports esbuild left external.
func externalImports(raw string) (map[string][]string, error) {
	if raw == "" {
		return nil, nil
	}
	var meta metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(meta.Outputs))
	for path, o := range meta.Outputs {
		var refs []string
		for _, imp := range o.Imports {
			if imp.External {
				refs = append(refs, imp.Path)
			}
		}
		slices.Sort(refs)
		out[path] = slices.Compact(refs)
	}
	return out, nil
}
