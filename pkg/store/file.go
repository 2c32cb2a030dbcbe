package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
)

// File writes each package to <dir>/<name>@<version>.json. Scoped names
// keep their scope as a subdirectory.
type File struct {
	mu  sync.Mutex
	dir string
}

// NewFile creates a file sink rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Path returns the file a package version is written to.
func (f *File) Path(name, version string) string {
	return filepath.Join(f.dir, filepath.FromSlash(name)+"@"+strings.ReplaceAll(version, "/", "_")+".json")
}

func (f *File) Publish(ctx context.Context, pkg *bundleinfo.BundledPackage) error {
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", pkg.ID(), err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.Path(pkg.Name, pkg.Version)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Write then rename so readers never see a partial document.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func (f *File) Close(context.Context) error { return nil }

var _ Sink = (*File)(nil)
