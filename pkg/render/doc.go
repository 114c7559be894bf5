// Package render draws routings as Graphviz diagrams.
//
// # Overview
//
// [ToDOT] converts one routing to Graphviz DOT source. Nodes sharing a level
// are placed on the same rank, so the diagram reads top to bottom in
// production order. Edges are labelled with their overlap policy.
//
//	dot, err := render.ToDOT(r, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Styling
//
// Finished operations are filled grey, scheduled ones light blue, and
// omitted operations are drawn dashed.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is required.
package render
