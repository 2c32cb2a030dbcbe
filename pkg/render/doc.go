// Package render draws a package's dependency classification as a graph.
//
// The root node is the resolved package. Each direct dependency hangs off it
// inside one of two clusters: bundled dependencies (installed and inlined
// into every platform bundle) and external ones (left as runtime imports).
// External nodes are further marked as peer or core.
//
// Build DOT source first, then render it with Graphviz:
//
//	dot := render.ToDOT(res.Spec.Name, res.Version.Version, res.Classification, render.Options{Core: core})
//	svg, err := render.SVG(ctx, dot)
//
// DOT output needs no native tooling; SVG output goes through the
// WebAssembly build of Graphviz bundled with go-graphviz.
package render
