package bundleinfo

import (
	"regexp"
	"slices"
	"strings"
)

var requirePattern = regexp.MustCompile(`\b(?:require|import)\(\s*["'` + "`" + `]([^"'` + "`" + `\s]+)["'` + "`" + `]\s*\)`)

// ScanRequires statically collects the bare module references a CommonJS
// bundle requires at runtime. Relative and absolute paths are skipped.
// The result is sorted and free of duplicates.
func ScanRequires(code []byte) []string {
	var refs []string
	for _, m := range requirePattern.FindAllSubmatch(code, -1) {
		ref := string(m[1])
		if strings.HasPrefix(ref, ".") || strings.HasPrefix(ref, "/") {
			continue
		}
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return slices.Compact(refs)
}
