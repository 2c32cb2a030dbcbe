// Package externals models the modules a bundle never inlines.
//
// Two sources feed every platform build's externals list besides a
// package's own peer dependencies:
//
//   - [Core]: the fixed set of modules the host runtime always provides.
//     It is loaded once at startup and shared read-only by the classifier,
//     the orchestrator and the metadata extractor.
//   - [Rules]: an ordered list of deep-import passthrough rules, so that
//     a request for libraryX/SubModule can be externalized as a whole
//     rather than pulling the entire library into the bundle.
package externals

import (
	"slices"
	"strings"
)

// DefaultCoreNames are the modules a hosting preview runtime provides.
var DefaultCoreNames = []string{
	"@expo/vector-icons",
	"expo",
	"expo-asset",
	"expo-constants",
	"expo-file-system",
	"expo-font",
	"expo-modules-core",
	"react",
	"react-dom",
	"react-native",
	"react-native-web",
}

// Core is an immutable set of always-external module names.
// The zero value and a nil *Core are both empty.
type Core struct {
	names map[string]struct{}
	list  []string
}

// NewCore builds a Core from names. Duplicates and blanks are dropped.
func NewCore(names []string) *Core {
	c := &Core{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := c.names[n]; ok {
			continue
		}
		c.names[n] = struct{}{}
		c.list = append(c.list, n)
	}
	slices.Sort(c.list)
	return c
}

// DefaultCore returns a Core holding [DefaultCoreNames].
func DefaultCore() *Core {
	return NewCore(DefaultCoreNames)
}

// Contains reports whether ref, or the package ref belongs to, is a core
// external. "react-native/Libraries/Image" is covered by "react-native".
func (c *Core) Contains(ref string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.names[ref]; ok {
		return true
	}
	_, ok := c.names[PackageName(ref)]
	return ok
}

// Names returns the sorted core names. The returned slice is a copy.
func (c *Core) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.list)
}

// PackageName returns the package a bare module reference points into:
// "lodash/fp" → "lodash", "@babel/runtime/helpers/x" → "@babel/runtime".
// Relative and absolute references are returned unchanged.
func PackageName(ref string) string {
	if ref == "" || ref[0] == '.' || ref[0] == '/' {
		return ref
	}
	parts := strings.SplitN(ref, "/", 3)
	if strings.HasPrefix(ref, "@") {
		if len(parts) < 2 {
			return ref
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}
