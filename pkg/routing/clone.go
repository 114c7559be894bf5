package routing

import (
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// Clone copies the routing onto another owner. Operations are re-resolved by
// external id through ops, nodes receive fresh identifiers, and the clone gets
// a new identity.
//
// Edges are recreated by a depth-first walk that starts at the leaves and
// follows predecessors, visiting every operation once even where paths
// converge. Each node's edge sets are then put back in source order so
// successor positions match and [ValidateUpdate] accepts the pair.
func (r *Routing) Clone(ops OperationResolver) (*Routing, error) {
	c := &Routing{
		id:            uuid.New(),
		externalID:    r.externalID,
		name:          r.name,
		preference:    r.preference,
		autoUse:       r.autoUse,
		releaseOffset: r.releaseOffset,
		validFrom:     r.validFrom,
		validTo:       r.validTo,
		explicitFrom:  r.explicitFrom,
		explicitTo:    r.explicitTo,
		byExt:         make(map[string]int, len(r.nodes)),
		nextNodeID:    1,
	}

	for _, n := range r.nodes {
		op, ok := ops.Operation(n.ExternalID())
		if !ok {
			return nil, errors.Invalid(errors.ErrCodeUnknownOperation, "operation", n.ExternalID(),
				"clone of routing %s: target order has no such operation", r.externalID)
		}
		cn := c.addNode(op)
		cn.anotherPathScheduled = n.anotherPathScheduled
	}

	// src maps a clone edge to the source edge it copies.
	src := make([]int, 0, len(r.edges))
	visited := make(map[uuid.UUID]bool, len(r.nodes))
	stack := make([]int, 0, len(r.nodes))
	for _, leaf := range r.Leaves() {
		stack = append(stack, leaf.index)
	}
	for len(stack) > 0 {
		n := r.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if visited[n.op.Identity()] {
			continue
		}
		visited[n.op.Identity()] = true
		for _, ei := range n.in.edges {
			e := r.edges[ei]
			c.addEdge(c.nodes[e.from], c.nodes[e.to], e.attrs)
			src = append(src, ei)
			if p := r.nodes[e.from]; !visited[p.op.Identity()] {
				stack = append(stack, p.index)
			}
		}
	}

	bySource := func(a, b int) int { return src[a] - src[b] }
	for _, cn := range c.nodes {
		slices.SortFunc(cn.out.edges, bySource)
		slices.SortFunc(cn.in.edges, bySource)
	}
	c.refreshLeaves()
	return c, nil
}
