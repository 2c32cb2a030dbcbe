package render

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/snackpack/pkg/externals"
	"github.com/matzehuels/snackpack/pkg/resolve"
)

func strPtr(s string) *string { return &s }

func sampleClassification() resolve.Classification {
	return resolve.Classification{
		Bundled:  map[string]string{"color": "^3.0.0", "lodash": "^4.17.0"},
		External: map[string]*string{"react": strPtr("^18"), "react-native-svg": nil},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT("my-lib", "1.2.0", sampleClassification(), Options{
		Core:     externals.NewCore([]string{"react"}),
		Detailed: true,
	})

	for _, want := range []string{
		`"my-lib@1.2.0" [label="my-lib@1.2.0", penwidth=2];`,
		"subgraph cluster_bundled",
		"subgraph cluster_external",
		`"dep:color" [label="color\n^3.0.0", fillcolor=lightblue];`,
		`label="react\n^18\n(core)"`,
		`label="react-native-svg\n(peer)"`,
		`"my-lib@1.2.0" -> "dep:lodash";`,
		`"my-lib@1.2.0" -> "dep:react" [style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
}

func TestToDOTStable(t *testing.T) {
	cls := sampleClassification()
	first := ToDOT("my-lib", "1.2.0", cls, Options{})
	for range 5 {
		if got := ToDOT("my-lib", "1.2.0", cls, Options{}); got != first {
			t.Fatal("DOT output depends on map iteration order")
		}
	}
	if strings.Contains(first, "^3.0.0") {
		t.Error("ranges should only appear in detailed mode")
	}
}

func TestToDOTEmpty(t *testing.T) {
	dot := ToDOT("leaf", "0.0.1", resolve.Classification{}, Options{})
	if strings.Contains(dot, "subgraph") || strings.Contains(dot, "->") {
		t.Errorf("empty classification should draw only the root:\n%s", dot)
	}
}

func TestSVG(t *testing.T) {
	dot := ToDOT("my-lib", "1.2.0", sampleClassification(), Options{})
	svg, err := SVG(context.Background(), dot)
	if err != nil {
		t.Fatalf("SVG() error: %v", err)
	}
	s := string(svg)
	if !strings.HasPrefix(strings.TrimSpace(s[strings.Index(s, "<svg"):]), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("root element not normalized: %.200s", s)
	}
	if !strings.Contains(s, "react-native-svg") {
		t.Error("node label missing from SVG")
	}
}

func TestSVGInvalidDOT(t *testing.T) {
	if _, err := SVG(context.Background(), "digraph {"); err == nil {
		t.Error("expected parse error")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s", got)
	}
	if plain := []byte("<svg><g/></svg>"); string(normalizeViewBox(plain)) != string(plain) {
		t.Error("input without viewBox should pass through")
	}
}
