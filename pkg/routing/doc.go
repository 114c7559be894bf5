// Package routing models the alternate operation graphs (routings) of a
// manufacturing order.
//
// # Overview
//
// A manufacturing order carries a set of operations. A [Routing] arranges a
// subset of them into a directed acyclic graph: every [Edge] is a timing
// constraint from a predecessor to a successor, carrying transfer times,
// shelf life, an [OverlapPolicy] and an [AutoFinishPolicy]. An order may hold
// several routings in a [Collection]; a scheduler picks one of them.
//
// # Building
//
// Routings are built from import data with [Build] or [BuildCollection]:
//
//	r, err := routing.Build(routing.PathSpec{
//	    ExternalID: "R1",
//	    Nodes: []routing.NodeSpec{
//	        {Operation: "10", Successors: []routing.SuccessorSpec{{Operation: "20"}}},
//	    },
//	}, order)
//
// Operations are never owned by a routing; nodes reference them through the
// [Operation] interface and are keyed by the operation's external id.
//
// # Scheduling Queries
//
// [Routing.Levels] assigns each node the length of the longest chain from a
// root. [Routing.LevelOrder] yields the deterministic earliest-to-latest
// order schedulers consume. [Edge.ResolveRelease] turns a predecessor's
// timing into the successor's earliest release under the edge's overlap
// policy.
//
// # Reconciliation
//
// ERP systems re-send routings. [StructuralDiff] classifies the difference
// between the live and the imported graph, [ValidateUpdate] decides whether
// the live graph can be patched in place, and [Update] merges attributes
// without touching topology. [Collection.Reconcile] applies all three to a
// whole order.
//
// # Production Feedback
//
// [Routing.AutoFinishPredecessors] finishes predecessors once their
// successors reach the state named by the edge's auto-finish policy,
// cascading until nothing changes.
//
// # Concurrency
//
// Routings and collections are not safe for concurrent use. A single writer
// owns them; readers must be serialized by the caller.
package routing
