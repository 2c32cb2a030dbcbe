package resolve

import (
	"testing"

	"github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/registry"
)

func testMetadata() *registry.Metadata {
	return &registry.Metadata{
		Name:     "pkg",
		DistTags: map[string]string{"latest": "2.0.0", "next": "3.0.0-beta.1", "stale": "0.9.0"},
		Versions: map[string]*registry.Manifest{
			"1.0.0":        {Version: "1.0.0"},
			"1.1.0":        {Version: "1.1.0"},
			"2.0.0":        {Version: "2.0.0"},
			"3.0.0-beta.1": {Version: "3.0.0-beta.1"},
		},
	}
}

func TestFindVersion(t *testing.T) {
	tests := []struct {
		tag      string
		want     string
		isLatest bool
	}{
		{"^1.0.0", "1.1.0", false},
		{"latest", "2.0.0", true},
		{"", "2.0.0", true},
		{"next", "3.0.0-beta.1", false},
		{"1.0.0", "1.0.0", false},
		{"2.0.0", "2.0.0", true},
		{"~1.0", "1.0.0", false},
		{">=1 <3", "2.0.0", true},
		{"*", "2.0.0", true},
		{"1.x", "1.1.0", false},
		{"3.0.0-beta.1", "3.0.0-beta.1", false},
		{">=3.0.0-alpha", "3.0.0-beta.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := FindVersion(testMetadata(), tt.tag)
			if err != nil {
				t.Fatalf("FindVersion(%q) error: %v", tt.tag, err)
			}
			if got.Version != tt.want || got.IsLatest != tt.isLatest {
				t.Errorf("FindVersion(%q) = %+v, want {%s %v}", tt.tag, got, tt.want, tt.isLatest)
			}
		})
	}
}

func TestFindVersionErrors(t *testing.T) {
	tests := []struct {
		name string
		meta *registry.Metadata
		tag  string
		code errors.Code
	}{
		{"nil metadata", nil, "latest", errors.ErrCodePackageNotFound},
		{"no versions", &registry.Metadata{Name: "x"}, "latest", errors.ErrCodePackageNotFound},
		{"unsatisfiable range", testMetadata(), "^4.0.0", errors.ErrCodeVersionNotFound},
		{"unknown dist-tag", testMetadata(), "canary", errors.ErrCodeVersionNotFound},
		{"dangling dist-tag", testMetadata(), "stale", errors.ErrCodeVersionNotFound},
		{"unknown version", testMetadata(), "1.2.3", errors.ErrCodeVersionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindVersion(tt.meta, tt.tag)
			if !errors.Is(err, tt.code) {
				t.Errorf("FindVersion() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestFindVersionSkipsUnparseable(t *testing.T) {
	meta := &registry.Metadata{
		Name:     "odd",
		DistTags: map[string]string{"latest": "1.0.0"},
		Versions: map[string]*registry.Manifest{"1.0.0": {}, "not-a-version": {}},
	}
	got, err := FindVersion(meta, "*")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != "1.0.0" {
		t.Errorf("got %s, want 1.0.0", got.Version)
	}
}
