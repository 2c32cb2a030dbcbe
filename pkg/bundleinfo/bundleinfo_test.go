package bundleinfo

import (
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/snackpack/pkg/externals"
)

func TestExtract(t *testing.T) {
	code := []byte(`var a=require("react"),b=require("left-pad");`)

	tests := []struct {
		name        string
		artifact    Artifact
		includeCode bool
		externals   []string
		wantCode    bool
	}{
		{
			name:      "engine externals are authoritative",
			artifact:  Artifact{Filename: "bundle.js", Data: code, Externals: []string{"react", "react", "zod"}},
			externals: []string{"react", "zod"},
		},
		{
			name:      "scan when engine reports nothing",
			artifact:  Artifact{Filename: "bundle.js", Data: code},
			externals: []string{"left-pad", "react"},
		},
		{
			name:      "engine reported empty",
			artifact:  Artifact{Filename: "bundle.js", Data: code, Externals: []string{}},
			externals: []string{},
		},
		{
			name:      "binary asset",
			artifact:  Artifact{Filename: "assets/abc.png", Data: []byte{0x89, 'P', 'N', 'G', 0xff}},
			externals: []string{},
		},
		{
			name:        "code included",
			artifact:    Artifact{Filename: "bundle.js", Data: code, Externals: []string{}},
			includeCode: true,
			externals:   []string{},
			wantCode:    true,
		},
		{
			name:        "invalid utf-8 is never embedded",
			artifact:    Artifact{Filename: "assets/abc.png", Data: []byte{0xff, 0xfe}},
			includeCode: true,
			externals:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Extract(tt.artifact, tt.includeCode)
			if info.SizeBytes != len(tt.artifact.Data) {
				t.Errorf("SizeBytes = %d, want %d", info.SizeBytes, len(tt.artifact.Data))
			}
			if !slices.Equal(info.Externals, tt.externals) || info.Externals == nil {
				t.Errorf("Externals = %#v, want %#v", info.Externals, tt.externals)
			}
			if (info.Code != nil) != tt.wantCode {
				t.Errorf("Code present = %v, want %v", info.Code != nil, tt.wantCode)
			}
			if tt.wantCode && *info.Code != string(tt.artifact.Data) {
				t.Error("Code does not match artifact")
			}
		})
	}
}

func TestExtractDoesNotAliasInput(t *testing.T) {
	refs := []string{"b", "a"}
	Extract(Artifact{Filename: "bundle.js", Externals: refs}, false)
	if refs[0] != "b" {
		t.Error("Extract reordered the caller's slice")
	}
}

func TestScanRequires(t *testing.T) {
	code := []byte(`require("react");require('lodash/fp');require( "react" );` +
		`require("./local");require("/abs");import("@scope/pkg/sub");require(dynamic);` +
		"require(`tpl`)")
	want := []string{"@scope/pkg/sub", "lodash/fp", "react", "tpl"}
	if got := ScanRequires(code); !slices.Equal(got, want) {
		t.Errorf("ScanRequires() = %v, want %v", got, want)
	}
}

func TestCrossCheck(t *testing.T) {
	star := "*"
	c := CrossChecker{
		Package: "my-lib",
		Version: "1.0.0",
		Core:    externals.NewCore([]string{"react", "react-native"}),
		Peers:   map[string]*string{"react-native-svg": &star, "expo-blur": nil},
	}

	refs := []string{
		"expo-blur",
		"left-pad",
		"react",
		"react-native/Libraries/Image/AssetRegistry",
		"react-native-svg/lib/Path",
	}
	got := c.Check("ios", "bundle.js", refs)
	if len(got) != 1 {
		t.Fatalf("got %d mismatches, want 1: %v", len(got), got)
	}

	m := got[0]
	want := Mismatch{Package: "my-lib", Version: "1.0.0", Platform: "ios", Filename: "bundle.js", External: "left-pad"}
	if m != want {
		t.Errorf("mismatch = %+v, want %+v", m, want)
	}
	msg := m.String()
	for _, s := range []string{`"my-lib@1.0.0/ios-bundle.js"`, `"left-pad"`, "peer dependency"} {
		if !strings.Contains(msg, s) {
			t.Errorf("String() = %q, missing %s", msg, s)
		}
	}
}

func TestCrossCheckClean(t *testing.T) {
	c := CrossChecker{Core: externals.DefaultCore()}
	if got := c.Check("web", "bundle.js", []string{"react", "expo"}); len(got) != 0 {
		t.Errorf("unexpected mismatches: %v", got)
	}
	if got := c.Check("web", "bundle.js", nil); len(got) != 0 {
		t.Errorf("unexpected mismatches for no refs: %v", got)
	}
}
