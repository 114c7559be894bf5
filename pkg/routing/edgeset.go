package routing

import "slices"

// EdgeSet is an ordered set of edges into or out of one node, stored as
// indices into the owning routing's edge arena.
type EdgeSet struct {
	edges []int
}

// Len returns the number of edges in the set.
func (s EdgeSet) Len() int { return len(s.edges) }

// At returns the arena index of the i-th edge.
func (s EdgeSet) At(i int) int { return s.edges[i] }

// Contains reports whether the edge with the given arena index is a member.
func (s EdgeSet) Contains(edge int) bool { return slices.Contains(s.edges, edge) }

// Indices returns a copy of the member edge indices in insertion order.
func (s EdgeSet) Indices() []int { return slices.Clone(s.edges) }

func (s *EdgeSet) add(edge int) { s.edges = append(s.edges, edge) }
