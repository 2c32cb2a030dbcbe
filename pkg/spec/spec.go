// Package spec parses package request strings into [PackageSpec] values.
//
// A request has the form
//
//	[/][@scope/]name[@tag][/subpath][?platforms=p1,p2&deep=true]
//
// The tag defaults to "latest". A subpath (or an explicit deep=true query
// parameter) marks the request as deep. When the platforms parameter is
// absent the caller-supplied defaults are used.
//
// [PackageSpec.String] is the matching serializer: Parse(s.String(), nil)
// yields s again for every valid spec.
package spec

import (
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/snackpack/pkg/errors"
)

// DefaultTag is the dist-tag used when a request names no version.
const DefaultTag = "latest"

// DefaultPlatforms are the platforms bundled when a request names none.
var DefaultPlatforms = []string{"ios", "android", "web"}

var platformRegex = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// PackageSpec is a parsed package request.
type PackageSpec struct {
	Name      string   // Qualified name: "id" or "@scope/id"
	Scope     string   // Scope without the leading "@"; empty when unscoped
	ID        string   // Package id without scope
	Tag       string   // Dist-tag, exact version or semver range
	Subpath   string   // Deep import path inside the package, if any
	Deep      bool     // Bundle a deep target rather than the package entry
	Platforms []string // Requested platforms, deduplicated, in request order
}

// Parse parses a request string. defaultPlatforms is used when the request
// carries no platforms parameter.
func Parse(request string, defaultPlatforms []string) (PackageSpec, error) {
	raw, query, _ := strings.Cut(strings.TrimSpace(request), "?")
	raw = strings.TrimPrefix(raw, "/")

	path, err := url.PathUnescape(raw)
	if err != nil {
		return PackageSpec{}, errors.Wrap(errors.ErrCodeMalformedSpec, err, "unescape %q", raw)
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return PackageSpec{}, errors.Wrap(errors.ErrCodeMalformedSpec, err, "parse query %q", query)
	}

	var s PackageSpec
	rest := path
	if strings.HasPrefix(rest, "@") {
		scope, after, ok := strings.Cut(rest[1:], "/")
		if !ok {
			return PackageSpec{}, errors.New(errors.ErrCodeMalformedSpec, "scoped name %q is missing a package id", path)
		}
		if err := errors.ValidateNameSegment("scope", scope); err != nil {
			return PackageSpec{}, err
		}
		s.Scope = scope
		rest = after
	}

	id, tag, subpath := splitRest(rest)
	if err := errors.ValidateNameSegment("package name", id); err != nil {
		return PackageSpec{}, err
	}
	s.ID = id
	s.Name = qualify(s.Scope, id)
	if err := errors.ValidatePackageName(s.Name); err != nil {
		return PackageSpec{}, err
	}

	s.Tag = DefaultTag
	if tag != nil {
		if err := errors.ValidateTag(*tag); err != nil {
			return PackageSpec{}, err
		}
		s.Tag = strings.TrimSpace(*tag)
	}

	if subpath = strings.Trim(subpath, "/"); subpath != "" {
		if err := errors.ValidateSubpath(subpath); err != nil {
			return PackageSpec{}, err
		}
		s.Subpath = subpath
	}
	s.Deep = s.Subpath != "" || queryBool(values.Get("deep"))

	s.Platforms, err = parsePlatforms(values, defaultPlatforms)
	if err != nil {
		return PackageSpec{}, err
	}
	return s, nil
}

// splitRest splits "id[@tag][/subpath]". tag is nil when no "@" follows the id.
func splitRest(rest string) (id string, tag *string, subpath string) {
	i := strings.IndexAny(rest, "@/")
	if i < 0 {
		return rest, nil, ""
	}
	id = rest[:i]
	if rest[i] == '/' {
		return id, nil, rest[i+1:]
	}
	t, sub, _ := strings.Cut(rest[i+1:], "/")
	return id, &t, sub
}

func parsePlatforms(values url.Values, defaults []string) ([]string, error) {
	var requested []string
	for _, v := range values["platforms"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				requested = append(requested, p)
			}
		}
	}
	if len(requested) == 0 {
		requested = defaults
	}

	out := make([]string, 0, len(requested))
	for _, p := range requested {
		if !platformRegex.MatchString(p) {
			return nil, errors.New(errors.ErrCodeMalformedSpec, "invalid platform %q", p)
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeMalformedSpec, "no platforms requested")
	}
	return out, nil
}

func queryBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func qualify(scope, id string) string {
	if scope == "" {
		return id
	}
	return "@" + scope + "/" + id
}

// String serializes the spec back into request form.
func (s PackageSpec) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Tag != "" && s.Tag != DefaultTag {
		b.WriteString("@")
		b.WriteString(url.PathEscape(s.Tag))
	}
	if s.Subpath != "" {
		for _, seg := range strings.Split(s.Subpath, "/") {
			b.WriteString("/")
			b.WriteString(url.PathEscape(seg))
		}
	}
	b.WriteString("?platforms=")
	b.WriteString(strings.Join(s.Platforms, ","))
	if s.Deep && s.Subpath == "" {
		b.WriteString("&deep=true")
	}
	return b.String()
}
