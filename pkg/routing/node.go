package routing

import "slices"

// Node is a routing vertex wrapping one operation.
type Node struct {
	index int
	id    int
	op    Operation
	out   EdgeSet
	in    EdgeSet

	// anotherPathScheduled is transient; it suppresses scheduling attempts
	// after a sibling routing of the same order was chosen.
	anotherPathScheduled bool
}

// ID returns the node identifier, unique within its routing.
func (n *Node) ID() int { return n.id }

// Index returns the node's position in its routing's node arena.
func (n *Node) Index() int { return n.index }

// Operation returns the wrapped operation.
func (n *Node) Operation() Operation { return n.op }

// ExternalID returns the external id of the wrapped operation.
func (n *Node) ExternalID() string { return n.op.ExternalID() }

// Out returns the outgoing edges. The set must be treated as read-only.
func (n *Node) Out() EdgeSet { return n.out }

// In returns the incoming edges. The set must be treated as read-only.
func (n *Node) In() EdgeSet { return n.in }

// IsLeaf reports whether the node has no successors.
func (n *Node) IsLeaf() bool { return n.out.Len() == 0 }

// IsRoot reports whether the node has no predecessors.
func (n *Node) IsRoot() bool { return n.in.Len() == 0 }

func (n *Node) AnotherPathScheduled() bool     { return n.anotherPathScheduled }
func (n *Node) SetAnotherPathScheduled(v bool) { n.anotherPathScheduled = v }

// NodeSet is a lightweight ordered list of nodes.
type NodeSet []*Node

// ExternalIDs returns the operation external ids in set order.
func (s NodeSet) ExternalIDs() []string {
	ids := make([]string, len(s))
	for i, n := range s {
		ids[i] = n.ExternalID()
	}
	return ids
}

// Contains reports whether n is a member.
func (s NodeSet) Contains(n *Node) bool { return slices.Contains(s, n) }

// Operations returns the wrapped operations in set order.
func (s NodeSet) Operations() []Operation {
	ops := make([]Operation, len(s))
	for i, n := range s {
		ops[i] = n.op
	}
	return ops
}
