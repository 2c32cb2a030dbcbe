package bundleinfo

import (
	"fmt"

	"github.com/matzehuels/snackpack/pkg/externals"
)

// Mismatch is an external reference a bundle makes that neither the host
// runtime nor the package's peer dependencies account for. It is a
// diagnostic, never an error.
type Mismatch struct {
	Package  string `json:"package"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Filename string `json:"filename"`
	External string `json:"external"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("Bundle %q contains external %q which is not listed as a peer dependency in package.json",
		fmt.Sprintf("%s@%s/%s-%s", m.Package, m.Version, m.Platform, m.Filename), m.External)
}

// CrossChecker validates artifact externals for one resolved package.
type CrossChecker struct {
	Package string
	Version string
	Core    *externals.Core
	Peers   map[string]*string
}

// Check returns one Mismatch per entry of refs that is neither a core
// external nor a declared peer dependency. Subpath references are judged by
// the package they point into.
func (c CrossChecker) Check(platform, filename string, refs []string) []Mismatch {
	var out []Mismatch
	for _, ref := range refs {
		if c.Core.Contains(ref) || c.isPeer(ref) {
			continue
		}
		out = append(out, Mismatch{
			Package:  c.Package,
			Version:  c.Version,
			Platform: platform,
			Filename: filename,
			External: ref,
		})
	}
	return out
}

func (c CrossChecker) isPeer(ref string) bool {
	if _, ok := c.Peers[ref]; ok {
		return true
	}
	_, ok := c.Peers[externals.PackageName(ref)]
	return ok
}
