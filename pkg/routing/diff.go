package routing

import (
	"fmt"
	"slices"
)

// ChangeCause classifies the most significant difference found by
// [StructuralDiff].
type ChangeCause int

const (
	CauseNone ChangeCause = iota
	CauseNodeCountChanged
	CauseNodeSetChanged
	CauseSuccessorsChanged
	CauseScheduledNodeRemoved
	CauseScheduledSuccessorsChanged
	CauseActivityCountChanged
	CauseActivitiesChanged
)

var causeText = [...]string{
	CauseNone:                       "no change",
	CauseNodeCountChanged:           "operation count changed",
	CauseNodeSetChanged:             "operation set changed",
	CauseSuccessorsChanged:          "successor set changed",
	CauseScheduledNodeRemoved:       "scheduled operation removed",
	CauseScheduledSuccessorsChanged: "scheduled successor set changed",
	CauseActivityCountChanged:       "scheduled activity count changed",
	CauseActivitiesChanged:          "scheduled activities changed",
}

func (c ChangeCause) String() string {
	if c < CauseNone || c > CauseActivitiesChanged {
		return fmt.Sprintf("ChangeCause(%d)", int(c))
	}
	return causeText[c]
}

// affectsSchedule reports whether the cause invalidates a live schedule.
func (c ChangeCause) affectsSchedule() bool { return c >= CauseScheduledNodeRemoved }

// Diff is the outcome of comparing a live routing with a re-imported one.
type Diff struct {
	// RoutingChanged is set for any structural difference.
	RoutingChanged bool
	// ScheduleChanged is set when a difference touches scheduled operations,
	// so the order must be unscheduled.
	ScheduleChanged bool
	// Cause is the first schedule-affecting cause, or the first structural
	// cause if the schedule is unaffected.
	Cause        ChangeCause
	Descriptions []string
}

func (d *Diff) record(cause ChangeCause, format string, args ...any) {
	d.RoutingChanged = true
	if cause.affectsSchedule() {
		if !d.ScheduleChanged {
			d.Cause = cause
		}
		d.ScheduleChanged = true
	} else if d.Cause == CauseNone {
		d.Cause = cause
	}
	d.Descriptions = append(d.Descriptions, fmt.Sprintf(format, args...))
}

// StructuralDiff compares the live routing old with the re-imported routing
// next node by node, keyed by operation external id. Edge parameters are
// ignored; they are merged by [Update].
//
// Differences are schedule-affecting when they touch an operation that is
// scheduled in old: a removed node, a changed successor set, or, unless the
// node's production data is pinned, a changed activity list.
func StructuralDiff(old, next *Routing) Diff {
	var d Diff

	if old.NodeCount() != next.NodeCount() {
		d.record(CauseNodeCountChanged, "operation count %d -> %d", old.NodeCount(), next.NodeCount())
	}

	for _, on := range old.Nodes() {
		nn, ok := next.Node(on.ExternalID())
		if !ok {
			if on.op.Scheduled() {
				d.record(CauseScheduledNodeRemoved, "scheduled operation %s removed", on.ExternalID())
			} else {
				d.record(CauseNodeSetChanged, "operation %s removed", on.ExternalID())
			}
			continue
		}

		oldSucc := sortedSuccessorIDs(old, on)
		newSucc := sortedSuccessorIDs(next, nn)
		if !slices.Equal(oldSucc, newSucc) {
			if on.op.Scheduled() {
				d.record(CauseScheduledSuccessorsChanged, "operation %s: scheduled successor set changed %v -> %v", on.ExternalID(), oldSucc, newSucc)
			} else {
				d.record(CauseSuccessorsChanged, "operation %s: successor set changed %v -> %v", on.ExternalID(), oldSucc, newSucc)
			}
		}

		if on.op.ProductionPinned() || !on.op.Scheduled() {
			continue
		}
		oldActs, newActs := on.op.Activities(), nn.op.Activities()
		switch {
		case len(oldActs) != len(newActs):
			d.record(CauseActivityCountChanged, "operation %s: activity count %d -> %d", on.ExternalID(), len(oldActs), len(newActs))
		case !slices.Equal(oldActs, newActs):
			d.record(CauseActivitiesChanged, "operation %s: activities %v -> %v", on.ExternalID(), oldActs, newActs)
		}
	}

	for _, nn := range next.Nodes() {
		if _, ok := old.Node(nn.ExternalID()); !ok {
			d.record(CauseNodeSetChanged, "operation %s added", nn.ExternalID())
		}
	}

	return d
}

func sortedSuccessorIDs(r *Routing, n *Node) []string {
	ids := r.Successors(n).ExternalIDs()
	slices.Sort(ids)
	return ids
}
