package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/routegraph/pkg/routing"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds state, activities and resources to node labels and the
	// transfer span to edge labels.
	Detailed bool
	// Title is drawn above the diagram when set.
	Title string
}

// ToDOT converts a routing to Graphviz DOT source. It fails only when the
// routing is cyclic.
func ToDOT(r *routing.Routing, opts Options) (string, error) {
	levels, err := r.Levels()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", r.ExternalID())
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	byLevel := make(map[int][]string)
	maxLevel := 0
	for _, ln := range levels {
		n := ln.Node
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ExternalID(), strings.Join(nodeAttrs(n, opts.Detailed), ", "))
		byLevel[ln.Level] = append(byLevel[ln.Level], n.ExternalID())
		maxLevel = max(maxLevel, ln.Level)
	}

	buf.WriteString("\n")
	for lvl := 0; lvl <= maxLevel; lvl++ {
		ids := byLevel[lvl]
		if len(ids) < 2 {
			continue
		}
		buf.WriteString("  { rank=same;")
		for _, id := range ids {
			fmt.Fprintf(&buf, " %q;", id)
		}
		buf.WriteString(" }\n")
	}

	buf.WriteString("\n")
	for _, e := range r.Edges() {
		from, to := r.Predecessor(e).ExternalID(), r.Successor(e).ExternalID()
		if label := edgeLabel(e, opts.Detailed); label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", from, to, label)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func nodeAttrs(n *routing.Node, detailed bool) []string {
	op := n.Operation()
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(op, detailed))}
	switch {
	case op.Omitted():
		attrs = append(attrs, "style=\"rounded,dashed\"", "fontcolor=grey40")
	case op.State() == routing.Finished:
		attrs = append(attrs, "fillcolor=lightgrey")
	case op.Scheduled():
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

func nodeLabel(op routing.Operation, detailed bool) string {
	if !detailed {
		return op.ExternalID()
	}
	parts := []string{op.ExternalID(), op.State().String()}
	if acts := op.Activities(); len(acts) > 0 {
		parts = append(parts, strings.Join(acts, ", "))
	}
	var res []string
	for _, r := range op.Resources() {
		res = append(res, r.ID)
	}
	if len(res) > 0 {
		parts = append(parts, strings.Join(res, ", "))
	}
	return strings.Join(parts, "\n")
}

func edgeLabel(e *routing.Edge, detailed bool) string {
	var parts []string
	switch e.Overlap() {
	case routing.OverlapTransferQty:
		parts = append(parts, "qty "+e.TransferQty().String())
	case routing.OverlapTransferSpan:
		parts = append(parts, "start+"+fmtDuration(e.OverlapTransferSpan()))
	case routing.OverlapTransferSpanBeforeStart:
		parts = append(parts, "start-"+fmtDuration(e.OverlapTransferSpan()))
	case routing.OverlapTransferSpanAfterSetup:
		parts = append(parts, "setup+"+fmtDuration(e.OverlapTransferSpan()))
	case routing.OverlapPercentComplete:
		parts = append(parts, fmt.Sprintf("%.0f%%", e.PercentComplete()*100))
	}
	if detailed && e.TransferSpan() > 0 {
		parts = append(parts, "transfer "+fmtDuration(e.TransferSpan()))
	}
	if detailed && e.AutoFinish() != routing.AutoFinishNone {
		parts = append(parts, "auto-finish")
	}
	return strings.Join(parts, "\n")
}

// fmtDuration drops zero minute and second suffixes: 1h0m0s becomes 1h.
func fmtDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}
