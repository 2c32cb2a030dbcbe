// Package workdir scopes the ephemeral directory one bundling request works in.
//
// A directory is never shared between requests: each acquisition gets a
// fresh <name>-<uuid> path directly under the configured base, any leftover at that path is
// removed first (best effort), and [Dir.Release] removes it again.
package workdir

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var sanitizer = strings.NewReplacer("@", "", "/", "__", "\\", "__", "..", "_")

// Dir is one request's working directory.
type Dir struct {
	Path string
}

// Acquire creates a fresh working directory for name under base.
// An empty base uses the system temp directory.
func Acquire(base, name string) (*Dir, error) {
	if base == "" {
		base = os.TempDir()
	}
	path := filepath.Join(base, sanitizer.Replace(name)+"-"+uuid.NewString())

	// Stale state from a crashed run must not block this one.
	_ = os.RemoveAll(path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &Dir{Path: path}, nil
}

// PackageDir is where the package source is extracted and installed.
func (d *Dir) PackageDir() string {
	return filepath.Join(d.Path, "package")
}

// Release removes the directory tree. The base directory is left alone.
func (d *Dir) Release() error {
	return os.RemoveAll(d.Path)
}
