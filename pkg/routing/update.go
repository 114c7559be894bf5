package routing

import (
	"time"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// ChangeTracker receives constraint changes detected while a routing is
// patched in place.
type ChangeTracker interface {
	ValidityChanged(r *Routing, field string, old, new time.Time)
	EdgeChanged(r *Routing, pred, succ string, fields []string)
}

// NopTracker discards all change notifications.
type NopTracker struct{}

func (NopTracker) ValidityChanged(*Routing, string, time.Time, time.Time) {}
func (NopTracker) EdgeChanged(*Routing, string, string, []string)         {}

// ValidateUpdate reports whether next can be merged into old in place: both
// routings hold the same operations, and every node has the same successors
// at the same positions, each with the same out-degree.
//
// False is an expected outcome and tells the caller to replace old with next
// wholesale.
func ValidateUpdate(old, next *Routing) bool {
	if old.NodeCount() != next.NodeCount() {
		return false
	}
	for _, nn := range next.nodes {
		on, ok := old.Node(nn.ExternalID())
		if !ok || on.out.Len() != nn.out.Len() {
			return false
		}
		for i := range nn.out.edges {
			os := old.nodes[old.edges[on.out.edges[i]].to]
			ns := next.nodes[next.edges[nn.out.edges[i]].to]
			if os.ExternalID() != ns.ExternalID() || os.out.Len() != ns.out.Len() {
				return false
			}
		}
	}
	return true
}

// Update merges the attributes of next into old and reports whether anything
// materially changed. Topology is never rebuilt; calling Update on routings
// that fail [ValidateUpdate] is a caller bug and panics.
//
// Name, preference and auto-use settings are copied. Validity bounds are
// taken from next only where the import supplied them; the merged window must
// satisfy end > start, otherwise a validation error is returned and old is
// left untouched. Edge parameters are merged per successor; every changed
// edge is validated before old is modified.
func Update(old, next *Routing, tracker ChangeTracker) (bool, error) {
	if !ValidateUpdate(old, next) {
		errors.Precondition("routing %s: update requires identical topology", old.externalID)
	}
	if tracker == nil {
		tracker = NopTracker{}
	}

	newFrom, newTo := old.validFrom, old.validTo
	if next.explicitFrom {
		newFrom = next.validFrom
	}
	if next.explicitTo {
		newTo = next.validTo
	}
	if !newTo.After(newFrom) {
		return false, errors.Invalid(errors.ErrCodeInvalidValidityWindow, "valid_from", newFrom,
			"routing %s: validity start must be before end %s", old.externalID, newTo.Format(time.RFC3339))
	}

	type edgeChange struct {
		edge   *Edge
		pred   string
		succ   string
		attrs  EdgeAttrs
		fields []string
	}
	var edges []edgeChange
	for _, on := range old.nodes {
		nn, _ := next.Node(on.ExternalID())
		for _, ei := range on.out.edges {
			e := old.edges[ei]
			succ := old.nodes[e.to].ExternalID()
			ne, _ := next.SuccessorEdge(nn, succ)
			fields := e.attrs.ChangedFields(ne.attrs)
			if len(fields) == 0 {
				continue
			}
			if err := ne.attrs.Validate(); err != nil {
				return false, err
			}
			edges = append(edges, edgeChange{edge: e, pred: on.ExternalID(), succ: succ, attrs: ne.attrs, fields: fields})
		}
	}

	changed := old.name != next.name ||
		old.preference != next.preference ||
		old.autoUse != next.autoUse ||
		old.releaseOffset != next.releaseOffset
	old.name = next.name
	old.preference = next.preference
	old.autoUse = next.autoUse
	old.releaseOffset = next.releaseOffset

	if !newFrom.Equal(old.validFrom) {
		tracker.ValidityChanged(old, "valid_from", old.validFrom, newFrom)
		old.validFrom = newFrom
		changed = true
	}
	if !newTo.Equal(old.validTo) {
		tracker.ValidityChanged(old, "valid_to", old.validTo, newTo)
		old.validTo = newTo
		changed = true
	}
	old.explicitFrom = old.explicitFrom || next.explicitFrom
	old.explicitTo = old.explicitTo || next.explicitTo

	for _, ec := range edges {
		ec.edge.attrs = ec.attrs
		tracker.EdgeChanged(old, ec.pred, ec.succ, ec.fields)
		changed = true
	}
	return changed, nil
}

// rebind points every node of r at the operation with the same external id
// in next.
func (r *Routing) rebind(next *Routing) {
	for _, n := range r.nodes {
		if nn, ok := next.Node(n.ExternalID()); ok {
			n.op = nn.op
		}
	}
}
