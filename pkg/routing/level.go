package routing

import (
	"sort"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// LeveledNode pairs a node with its level.
type LeveledNode struct {
	Node  *Node
	Level int
}

// Levels assigns every node its level: roots are at level 0 and every other
// node sits one below its deepest predecessor, so a node reached by chains of
// different length takes the longest one.
//
// The result is sorted by level and then by node id, which gives a
// deterministic earliest-to-latest operation order.
//
// # Algorithm
//
// Levels performs a topological traversal (Kahn's algorithm):
//  1. Queue all roots at level 0
//  2. Pop a node; raise each successor to max(its level, current + 1)
//  3. Queue a successor once all of its predecessors were processed
//
// Nodes on a cycle never become ready, so a cycle is reported as an
// ErrCodeCycle error instead of looping. Time complexity is O(V + E).
func (r *Routing) Levels() ([]LeveledNode, error) {
	inDegree := make([]int, len(r.nodes))
	levels := make([]int, len(r.nodes))
	queue := make([]int, 0, len(r.nodes))

	for _, n := range r.nodes {
		inDegree[n.index] = n.in.Len()
		if inDegree[n.index] == 0 {
			queue = append(queue, n.index)
		}
	}

	processed := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		processed++

		for _, ei := range r.nodes[curr].out.edges {
			child := r.edges[ei].to
			if lvl := levels[curr] + 1; lvl > levels[child] {
				levels[child] = lvl
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if processed != len(r.nodes) {
		return nil, errors.New(errors.ErrCodeCycle, "routing %s contains a cycle through %d operations",
			r.externalID, len(r.nodes)-processed)
	}

	out := make([]LeveledNode, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = LeveledNode{Node: n, Level: levels[i]}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Node.id < out[j].Node.id
	})
	return out, nil
}

// LevelOf returns the level of a single node.
func (r *Routing) LevelOf(n *Node) (int, error) {
	r.mustOwn(n)
	levels, err := r.Levels()
	if err != nil {
		return 0, err
	}
	for _, ln := range levels {
		if ln.Node == n {
			return ln.Level, nil
		}
	}
	return 0, nil
}

// LevelOrder returns the nodes in level order. With schedulableOnly set,
// finished and omitted operations are left out.
func (r *Routing) LevelOrder(schedulableOnly bool) ([]*Node, error) {
	levels, err := r.Levels()
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(levels))
	for _, ln := range levels {
		if schedulableOnly && !Schedulable(ln.Node.op) {
			continue
		}
		out = append(out, ln.Node)
	}
	return out, nil
}

// LevelOrderedOperations is LevelOrder projected onto operations.
func (r *Routing) LevelOrderedOperations(schedulableOnly bool) ([]Operation, error) {
	nodes, err := r.LevelOrder(schedulableOnly)
	if err != nil {
		return nil, err
	}
	return NodeSet(nodes).Operations(), nil
}
