package routing

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/routegraph/pkg/errors"
)

func mustCollection(t *testing.T, ops OperationResolver, specs ...PathSpec) *Collection {
	t.Helper()
	c, err := BuildCollection("MO-1", specs, ops)
	if err != nil {
		t.Fatalf("BuildCollection() error: %v", err)
	}
	return c
}

func TestCollection_AddAndDefault(t *testing.T) {
	ops := newOrder("10", "20", "30")
	c := mustCollection(t, ops, chain("R1", "10", "20"), chain("R2", "10", "30"))

	if c.Default().ExternalID() != "R1" {
		t.Errorf("Default() = %s, want first routing R1", c.Default().ExternalID())
	}
	if err := c.Add(mustBuild(t, chain("R1", "10"), ops)); !errors.Is(err, errors.ErrCodeDuplicateRouting) {
		t.Errorf("Add(dup) error = %v, want DUPLICATE_ROUTING", err)
	}
	if err := c.SetDefault("R9"); !errors.Is(err, errors.ErrCodeRoutingNotFound) {
		t.Errorf("SetDefault(R9) error = %v, want ROUTING_NOT_FOUND", err)
	}

	spec := chain("R2", "10", "30")
	spec.Default = true
	c = mustCollection(t, ops, chain("R1", "10", "20"), spec)
	if c.Default().ExternalID() != "R2" {
		t.Errorf("Default() = %s, want flagged R2", c.Default().ExternalID())
	}

	if !c.Remove("R2") || c.Default().ExternalID() != "R1" {
		t.Error("Remove(default) should promote the remaining routing")
	}
}

func TestCollection_ActiveAndMarkScheduled(t *testing.T) {
	ops := newOrder("10", "20", "30")
	c := mustCollection(t, ops, chain("R1", "10", "20"), chain("R2", "30"))

	ops["30"].scheduled = true
	if got := c.Active().ExternalID(); got != "R2" {
		t.Errorf("Active() = %s, want R2 holding scheduled operations", got)
	}

	r2, _ := c.Routing("R2")
	if err := c.MarkScheduled(r2.ID()); err != nil {
		t.Fatalf("MarkScheduled() error: %v", err)
	}
	r1, _ := c.Routing("R1")
	for _, n := range r1.Nodes() {
		if !n.AnotherPathScheduled() {
			t.Errorf("R1 node %s not flagged", n.ExternalID())
		}
	}
	for _, n := range r2.Nodes() {
		if n.AnotherPathScheduled() {
			t.Errorf("R2 node %s flagged", n.ExternalID())
		}
	}
	r1.ClearAnotherPathScheduled()
	if mustNode(t, r1, "10").AnotherPathScheduled() {
		t.Error("ClearAnotherPathScheduled() left flag set")
	}
}

func TestCollection_Plants(t *testing.T) {
	ops := newOrder("10", "20")
	ops["10"].resources = []Resource{{ID: "M1", Plant: "B"}}
	ops["20"].resources = []Resource{{ID: "M2", Plant: "A"}, {ID: "M3", Plant: "B"}}
	c := mustCollection(t, ops, chain("R1", "10"), chain("R2", "20"))

	if diff := cmp.Diff([]string{"A", "B"}, c.Plants()); diff != "" {
		t.Errorf("Plants() mismatch (-want +got):\n%s", diff)
	}
	if !c.CanUseResource("M3") || c.CanUseResource("M9") {
		t.Error("CanUseResource() mismatch")
	}
	if !c.CanUsePlant("A") {
		t.Error("CanUsePlant(A) = false, want true")
	}
}

func TestCollection_Reconcile(t *testing.T) {
	ops := newOrder("10", "20", "30", "40")
	live := mustCollection(t, ops, chain("R1", "10", "20", "30"), chain("R2", "10", "40"), chain("R3", "20", "30"))
	r1, _ := live.Routing("R1")
	r1ID := r1.ID()
	ops["30"].scheduled = true

	renamed := chain("R1", "10", "20", "30")
	renamed.Name = "renamed"
	next := mustCollection(t, ops, renamed, chain("R3", "30", "20"), chain("R4", "40"))

	res := live.Reconcile(next, nil)

	want := map[string]Action{
		"R1": ActionPatched,
		"R2": ActionRemoved,
		"R3": ActionReplaced,
		"R4": ActionAdded,
	}
	got := make(map[string]Action)
	for _, o := range res.Outcomes {
		got[o.ExternalID] = o.Action
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Reconcile() actions mismatch (-want +got):\n%s", diff)
	}
	if !res.ScheduleInvalidated {
		t.Error("ScheduleInvalidated = false, want true after reshaping a scheduled routing")
	}
	if !res.Changed() {
		t.Error("Changed() = false, want true")
	}

	patched, _ := live.Routing("R1")
	if patched.ID() != r1ID || patched.Name() != "renamed" {
		t.Errorf("R1 = %s %q, want patched in place", patched.ID(), patched.Name())
	}
	if _, ok := live.Routing("R2"); ok {
		t.Error("R2 should be removed")
	}
	if live.Len() != 3 {
		t.Errorf("Len() = %d, want 3", live.Len())
	}
}

func TestCollection_ReconcileUnchanged(t *testing.T) {
	ops := newOrder("10", "20")
	live := mustCollection(t, ops, chain("R1", "10", "20"))
	next := mustCollection(t, ops, chain("R1", "10", "20"))

	res := live.Reconcile(next, nil)
	if res.Changed() || res.ScheduleInvalidated {
		t.Errorf("Reconcile(identical) = %+v, want no change", res)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Action != ActionUnchanged {
		t.Errorf("Outcomes = %+v, want one unchanged", res.Outcomes)
	}
}

func TestCollection_ReconcileRejectsBadWindow(t *testing.T) {
	ops := newOrder("10", "20")
	base := chain("R1", "10", "20")
	base.ValidTo = ptr(date(10))
	live := mustCollection(t, ops, base)

	bad := chain("R1", "10", "20")
	bad.ValidFrom = ptr(date(15))
	res := live.Reconcile(mustCollection(t, ops, bad), nil)

	if res.Outcomes[0].Action != ActionRejected || !errors.IsValidation(res.Outcomes[0].Err) {
		t.Errorf("Outcome = %+v, want rejected with validation error", res.Outcomes[0])
	}
}

func TestCollection_StateRoundTrip(t *testing.T) {
	ops := newOrder("10", "20", "30", "40")
	spec := diamond("R2")
	spec.Default = true
	c := mustCollection(t, ops, chain("R1", "10", "40"), spec)
	r2, _ := c.Routing("R2")
	mustNode(t, r2, "20").SetAnotherPathScheduled(true)

	restored, err := RestoreCollection("MO-1", c.States(), ops)
	if err != nil {
		t.Fatalf("RestoreCollection() error: %v", err)
	}
	if restored.Default().ExternalID() != "R2" {
		t.Errorf("Default() = %s, want R2", restored.Default().ExternalID())
	}
	rr, _ := restored.Routing("R2")
	if rr.ID() != r2.ID() {
		t.Error("restored routing must keep its identity")
	}
	if d := StructuralDiff(r2, rr); d.RoutingChanged {
		t.Errorf("StructuralDiff(original, restored) = %+v", d)
	}
	if diff := cmp.Diff(r2.State(), rr.State()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollection_ReconcileStoredActivities(t *testing.T) {
	saved := newOrder("10", "20", "30")
	saved["10"].scheduled = true
	saved["10"].activities = []string{"a"}
	live, err := RestoreStored("MO-1", mustCollection(t, saved, chain("R1", "10", "20", "30")).States())
	if err != nil {
		t.Fatalf("RestoreStored() error: %v", err)
	}

	imported := newOrder("10", "20", "30")
	imported["10"].activities = []string{"a", "b"}
	res := live.Reconcile(mustCollection(t, imported, chain("R1", "10", "20", "30")), nil)

	out := res.Outcomes[0]
	if out.Action != ActionPatched || out.Diff.Cause != CauseActivityCountChanged {
		t.Errorf("Outcome = %v %v, want patched with %v", out.Action, out.Diff.Cause, CauseActivityCountChanged)
	}
	if !res.ScheduleInvalidated {
		t.Error("ScheduleInvalidated = false, want true")
	}
	r1, _ := live.Routing("R1")
	for _, n := range r1.Nodes() {
		if n.Operation() != Operation(imported[n.ExternalID()]) {
			t.Errorf("node %s still bound to the stored operation", n.ExternalID())
		}
	}
}

func TestCollection_ReconcileStoredDroppedOperation(t *testing.T) {
	saved := newOrder("10", "20", "30")
	saved["10"].scheduled = true
	states := mustCollection(t, saved, chain("R1", "10", "20", "30")).States()

	imported := newOrder("10", "30")
	if _, err := RestoreCollection("MO-1", states, imported); !errors.Is(err, errors.ErrCodeUnknownOperation) {
		t.Fatalf("RestoreCollection() error = %v, want UNKNOWN_OPERATION", err)
	}
	live, err := RestoreStored("MO-1", states)
	if err != nil {
		t.Fatalf("RestoreStored() error: %v", err)
	}

	res := live.Reconcile(mustCollection(t, imported, chain("R1", "10", "30")), nil)
	out := res.Outcomes[0]
	if out.Action != ActionReplaced || out.Diff.Cause != CauseScheduledSuccessorsChanged {
		t.Errorf("Outcome = %v %v, want replaced with %v", out.Action, out.Diff.Cause, CauseScheduledSuccessorsChanged)
	}
	if !res.ScheduleInvalidated {
		t.Error("ScheduleInvalidated = false, want true")
	}
}

func TestRestore_DanglingEdge(t *testing.T) {
	ops := newOrder("10", "20")
	s := mustBuild(t, chain("R1", "10", "20"), ops).State()
	s.Edges[0].To = 99

	if _, err := Restore(s, ops); !errors.Is(err, errors.ErrCodeCorruptSnapshot) {
		t.Errorf("Restore() error = %v, want CORRUPT_SNAPSHOT", err)
	}
}
