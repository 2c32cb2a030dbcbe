package render

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/snackpack/pkg/externals"
	"github.com/matzehuels/snackpack/pkg/resolve"
)

// Options configures graph generation.
type Options struct {
	// Core marks external dependencies the host runtime provides.
	Core *externals.Core

	// Detailed adds each dependency's declared range to its label.
	Detailed bool
}

// ToDOT converts a classification to Graphviz DOT source.
func ToDOT(name, version string, cls resolve.Classification, opts Options) string {
	root := name + "@" + version

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  %q [label=%q, penwidth=2];\n", root, root)

	bundled := slices.Sorted(maps.Keys(cls.Bundled))
	if len(bundled) > 0 {
		buf.WriteString("\n  subgraph cluster_bundled {\n")
		buf.WriteString("    label=\"bundled\";\n    style=\"rounded\";\n    color=steelblue;\n")
		for _, dep := range bundled {
			r := cls.Bundled[dep]
			label := fmtLabel(dep, &r, "", opts.Detailed)
			fmt.Fprintf(&buf, "    %q [label=%q, fillcolor=lightblue];\n", nodeID(dep), label)
		}
		buf.WriteString("  }\n")
	}

	external := slices.Sorted(maps.Keys(cls.External))
	if len(external) > 0 {
		buf.WriteString("\n  subgraph cluster_external {\n")
		buf.WriteString("    label=\"external\";\n    style=\"rounded,dashed\";\n    color=grey;\n")
		for _, dep := range external {
			kind := "peer"
			if opts.Core.Contains(dep) {
				kind = "core"
			}
			label := fmtLabel(dep, cls.External[dep], kind, opts.Detailed)
			fmt.Fprintf(&buf, "    %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=whitesmoke];\n", nodeID(dep), label)
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, dep := range bundled {
		fmt.Fprintf(&buf, "  %q -> %q;\n", root, nodeID(dep))
	}
	for _, dep := range external {
		fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", root, nodeID(dep))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeID keeps a dependency distinct from a root of the same name.
func nodeID(dep string) string {
	return "dep:" + dep
}

func fmtLabel(dep string, rng *string, kind string, detailed bool) string {
	parts := []string{dep}
	if detailed && rng != nil && *rng != "" {
		parts = append(parts, *rng)
	}
	if kind != "" {
		parts = append(parts, "("+kind+")")
	}
	return strings.Join(parts, "\n")
}
