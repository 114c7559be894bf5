package routing

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/routegraph/pkg/errors"
)

func TestClone_ConvergingPaths(t *testing.T) {
	// Two paths converge on 40 and share the root 10; every edge must be
	// recreated exactly once.
	ops := newOrder("10", "20", "30", "40")
	spec := diamond("R1")
	spec.Nodes[0].Successors[1].Attrs = EdgeAttrs{TransferSpan: time.Hour}
	r := mustBuild(t, spec, ops)

	target := newOrder("10", "20", "30", "40")
	c, err := r.Clone(target)
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	if c.ID() == r.ID() {
		t.Error("Clone() must assign a new identity")
	}
	if c.EdgeCount() != r.EdgeCount() {
		t.Errorf("EdgeCount() = %d, want %d", c.EdgeCount(), r.EdgeCount())
	}
	for _, n := range c.Nodes() {
		if n.Operation() != Operation(target[n.ExternalID()]) {
			t.Errorf("node %s bound to the source order's operation", n.ExternalID())
		}
	}
	for _, id := range []string{"10", "20", "30"} {
		want := r.Successors(mustNode(t, r, id)).ExternalIDs()
		got := c.Successors(mustNode(t, c, id)).ExternalIDs()
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Successors(%s) mismatch (-want +got):\n%s", id, diff)
		}
	}
	e, _ := c.SuccessorEdge(mustNode(t, c, "10"), "30")
	if e.TransferSpan() != time.Hour {
		t.Errorf("cloned edge TransferSpan() = %v, want 1h", e.TransferSpan())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if !ValidateUpdate(r, c) {
		t.Error("ValidateUpdate(source, clone) = false, want successor positions kept")
	}
}

func TestClone_WalkOrder(t *testing.T) {
	// 10 -> {30, 20}, 20 -> 30: the walk starts at leaf 30 and reaches 10
	// twice, so successor order of 10 must be restored from the source.
	ops := newOrder("10", "20", "30")
	r := mustBuild(t, PathSpec{ExternalID: "R1", Nodes: []NodeSpec{
		{Operation: "10", Successors: []SuccessorSpec{{Operation: "30"}, {Operation: "20"}}},
		{Operation: "20", Successors: []SuccessorSpec{{Operation: "30"}}},
	}}, ops)

	c, err := r.Clone(newOrder("10", "20", "30"))
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	if c.EdgeCount() != 3 {
		t.Fatalf("EdgeCount() = %d, want 3", c.EdgeCount())
	}
	got := c.Successors(mustNode(t, c, "10")).ExternalIDs()
	if diff := cmp.Diff([]string{"30", "20"}, got); diff != "" {
		t.Errorf("Successors(10) mismatch (-want +got):\n%s", diff)
	}
	got = c.Predecessors(mustNode(t, c, "30")).ExternalIDs()
	if diff := cmp.Diff([]string{"10", "20"}, got); diff != "" {
		t.Errorf("Predecessors(30) mismatch (-want +got):\n%s", diff)
	}
	if d := StructuralDiff(r, c); d.RoutingChanged {
		t.Errorf("StructuralDiff(source, clone) = %+v, want no change", d)
	}
}

func TestClone_MissingOperation(t *testing.T) {
	ops := newOrder("10", "20")
	r := mustBuild(t, chain("R1", "10", "20"), ops)

	_, err := r.Clone(newOrder("10"))
	if !errors.Is(err, errors.ErrCodeUnknownOperation) {
		t.Errorf("Clone() error = %v, want UNKNOWN_OPERATION", err)
	}
}
