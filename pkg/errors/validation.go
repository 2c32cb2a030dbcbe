package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength mirrors the registry's own limit on package names.
const maxNameLength = 214

// nameSegmentRegex matches a single npm name segment (scope or id).
var nameSegmentRegex = regexp.MustCompile(`^[A-Za-z0-9~-][A-Za-z0-9._~-]*$`)

// ValidateNameSegment validates a scope or package id segment.
//
// The rules follow the registry:
//   - No empty segments
//   - No leading dot or underscore
//   - Only URL-safe characters (letters, digits, '-', '.', '_', '~')
func ValidateNameSegment(kind, segment string) error {
	if segment == "" {
		return New(ErrCodeMalformedSpec, "%s cannot be empty", kind)
	}
	if !nameSegmentRegex.MatchString(segment) {
		return New(ErrCodeMalformedSpec, "%s contains disallowed characters: %q", kind, segment)
	}
	return nil
}

// ValidatePackageName validates a fully qualified package name
// ("name" or "@scope/name").
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeMalformedSpec, "package name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeMalformedSpec, "package name too long (max %d characters)", maxNameLength)
	}
	scope, id, scoped := strings.Cut(name, "/")
	if !scoped {
		return ValidateNameSegment("package name", name)
	}
	if !strings.HasPrefix(scope, "@") {
		return New(ErrCodeMalformedSpec, "unscoped package name cannot contain '/': %q", name)
	}
	if err := ValidateNameSegment("scope", strings.TrimPrefix(scope, "@")); err != nil {
		return err
	}
	return ValidateNameSegment("package name", id)
}

// ValidateSubpath validates a deep import path within a package.
// It prevents path traversal out of the package directory.
//
// Validation rules:
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateSubpath(path string) error {
	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeMalformedSpec, "subpath too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeMalformedSpec, "subpath contains invalid characters")
		}
	}
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeMalformedSpec, "subpath must be relative")
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return New(ErrCodeMalformedSpec, "subpath cannot contain path traversal sequences (..)")
		}
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeMalformedSpec, "subpath cannot contain backslashes")
	}
	return nil
}

// ValidateTag validates a dist-tag, version or range string.
func ValidateTag(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return New(ErrCodeMalformedSpec, "version tag cannot be empty")
	}
	for _, r := range tag {
		if unicode.IsControl(r) {
			return New(ErrCodeMalformedSpec, "version tag contains invalid characters")
		}
	}
	return nil
}
