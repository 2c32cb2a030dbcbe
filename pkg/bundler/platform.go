package bundler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Platforms lists the platforms the engine has resolution rules for.
var Platforms = []string{"ios", "android", "web"}

// Supported reports whether platform is one of [Platforms].
func Supported(platform string) bool {
	return slices.Contains(Platforms, platform)
}

var sourceExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".mjs", ".cjs", ".json"}

// IsNative reports whether platform runs on the native host runtime.
func IsNative(platform string) bool {
	return platform == "ios" || platform == "android"
}

// ResolveExtensions returns the extension search order for platform:
// platform-suffixed files first, then .native for native platforms, then
// shared files.
func ResolveExtensions(platform string) []string {
	prefixes := []string{"." + platform}
	if IsNative(platform) {
		prefixes = append(prefixes, ".native")
	}
	exts := make([]string, 0, (len(prefixes)+1)*len(sourceExtensions))
	for _, p := range prefixes {
		for _, e := range sourceExtensions {
			exts = append(exts, p+e)
		}
	}
	return append(exts, sourceExtensions...)
}

// MainFields returns the package.json fields consulted for a package entry.
func MainFields(platform string) []string {
	if IsNative(platform) {
		return []string{"react-native", "module", "main"}
	}
	return []string{"react-native", "browser", "module", "main"}
}

// Conditions returns the package.json "exports" conditions for platform.
func Conditions(platform string) []string {
	if IsNative(platform) {
		return []string{"react-native"}
	}
	return []string{"browser"}
}

// PackageEntry returns the entry module of the package at root for
// platform, relative to root. Only string-valued main fields are
// considered; object-valued "browser" maps are left to the engine.
func PackageEntry(root, platform string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if errors.Is(err, os.ErrNotExist) {
		return "index", nil
	}
	if err != nil {
		return "", err
	}

	var manifest map[string]json.RawMessage
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("parse package.json: %w", err)
	}
	for _, field := range MainFields(platform) {
		var entry string
		if json.Unmarshal(manifest[field], &entry) == nil && strings.TrimSpace(entry) != "" {
			return strings.TrimPrefix(filepath.ToSlash(entry), "./"), nil
		}
	}
	return "index", nil
}
