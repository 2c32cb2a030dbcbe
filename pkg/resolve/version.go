package resolve

import (
	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/registry"
)

// LatestTag is the dist-tag consulted for [Version.IsLatest].
const LatestTag = "latest"

// Version is a resolved package version.
type Version struct {
	Version  string `json:"version"`
	IsLatest bool   `json:"isLatest"`
}

// FindVersion resolves tag against meta.
//
// A tag naming a dist-tag resolves to the version it pins. Otherwise an
// exact published version wins, and anything else is read as a semver range
// whose highest satisfying version is chosen. An empty tag means "latest".
//
// Fails with PACKAGE_NOT_FOUND when meta holds no versions at all, and with
// VERSION_NOT_FOUND when the package exists but nothing satisfies tag.
func FindVersion(meta *registry.Metadata, tag string) (Version, error) {
	if meta == nil || len(meta.Versions) == 0 {
		name := ""
		if meta != nil {
			name = meta.Name
		}
		return Version{}, errors.New(errors.ErrCodePackageNotFound, "package %q has no published versions", name)
	}
	if tag == "" {
		tag = LatestTag
	}

	latest := meta.Latest()
	found := func(v string) Version {
		return Version{Version: v, IsLatest: v == latest}
	}

	if pinned, ok := meta.DistTags[tag]; ok {
		if _, ok := meta.Versions[pinned]; !ok {
			return Version{}, errors.New(errors.ErrCodeVersionNotFound,
				"dist-tag %q of %s points to unpublished version %s", tag, meta.Name, pinned)
		}
		return found(pinned), nil
	}
	if _, ok := meta.Versions[tag]; ok {
		return found(tag), nil
	}

	constraint, err := semver.NewConstraint(tag)
	if err != nil {
		return Version{}, errors.Wrap(errors.ErrCodeVersionNotFound, err,
			"%q is neither a dist-tag nor a version range of %s", tag, meta.Name)
	}

	var best *semver.Version
	var bestRaw string
	for raw := range meta.Versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil || !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	if best == nil {
		return Version{}, errors.New(errors.ErrCodeVersionNotFound, "no version of %s satisfies %q", meta.Name, tag)
	}
	return found(bestRaw), nil
}
