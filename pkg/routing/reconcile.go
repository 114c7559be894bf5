package routing

import (
	"fmt"
	"slices"
)

// Action is what [Collection.Reconcile] did with one routing.
type Action int

const (
	ActionUnchanged Action = iota
	ActionPatched
	ActionReplaced
	ActionAdded
	ActionRemoved
	ActionRejected
)

var actionNames = [...]string{
	ActionUnchanged: "unchanged",
	ActionPatched:   "patched",
	ActionReplaced:  "replaced",
	ActionAdded:     "added",
	ActionRemoved:   "removed",
	ActionRejected:  "rejected",
}

func (a Action) String() string {
	if a < ActionUnchanged || a > ActionRejected {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// RoutingOutcome reports the reconciliation of one routing.
type RoutingOutcome struct {
	ExternalID string
	Action     Action
	Diff       Diff
	// Err is set for ActionRejected; the live routing was kept as is.
	Err error
}

// ReconcileResult summarizes [Collection.Reconcile].
type ReconcileResult struct {
	Outcomes []RoutingOutcome
	// ScheduleInvalidated is set when any change touched scheduled
	// operations; the order must be unscheduled.
	ScheduleInvalidated bool
}

// Changed reports whether any routing was patched, replaced, added or removed.
func (r ReconcileResult) Changed() bool {
	for _, o := range r.Outcomes {
		if o.Action != ActionUnchanged && o.Action != ActionRejected {
			return true
		}
	}
	return false
}

// Reconcile merges the freshly imported collection next into c.
//
// Each imported routing is diffed against its live counterpart. Where the
// topology is unchanged the live routing is patched in place and keeps its
// identity; otherwise it is replaced by the imported routing. Routings
// missing from next are removed, new ones are appended. A default flagged in
// next takes precedence over the live one. Routings kept in place are
// rebound to the operations of next.
func (c *Collection) Reconcile(next *Collection, tracker ChangeTracker) ReconcileResult {
	var res ReconcileResult
	invalidate := func(d Diff) {
		if d.ScheduleChanged {
			res.ScheduleInvalidated = true
		}
	}

	for _, old := range slices.Clone(c.routings) {
		if _, ok := next.Routing(old.externalID); ok {
			continue
		}
		c.Remove(old.externalID)
		res.Outcomes = append(res.Outcomes, RoutingOutcome{ExternalID: old.externalID, Action: ActionRemoved})
		if old.HasScheduledOperations() {
			res.ScheduleInvalidated = true
		}
	}

	for _, nr := range next.routings {
		i := c.indexOf(nr.externalID)
		if i < 0 {
			c.routings = append(c.routings, nr)
			res.Outcomes = append(res.Outcomes, RoutingOutcome{ExternalID: nr.externalID, Action: ActionAdded})
			continue
		}

		old := c.routings[i]
		d := StructuralDiff(old, nr)
		out := RoutingOutcome{ExternalID: nr.externalID, Diff: d}
		if ValidateUpdate(old, nr) {
			old.rebind(nr)
			changed, err := Update(old, nr, tracker)
			switch {
			case err != nil:
				out.Action, out.Err = ActionRejected, err
			case changed || d.RoutingChanged:
				out.Action = ActionPatched
			}
		} else {
			c.routings[i] = nr
			if c.defaultID == old.id {
				c.defaultID = nr.id
			}
			out.Action = ActionReplaced
		}
		if out.Err == nil {
			invalidate(d)
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	if next.explicitDefault {
		if def := next.Default(); def != nil {
			_ = c.SetDefault(def.externalID)
		}
	}
	if _, ok := c.RoutingByID(c.defaultID); !ok && len(c.routings) > 0 {
		c.defaultID = c.routings[0].id
	}
	return res
}
