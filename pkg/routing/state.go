package routing

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// State is the persistable form of a routing. Edges refer to their
// endpoints by per-routing node id, never by arena position.
type State struct {
	ID            uuid.UUID
	ExternalID    string
	Name          string
	Preference    int
	AutoUse       AutoUse
	ReleaseOffset time.Duration
	ValidFrom     time.Time
	ValidTo       time.Time
	ExplicitFrom  bool
	ExplicitTo    bool
	Default       bool
	Nodes         []NodeState
	Edges         []EdgeState
}

// NodeState is the persistable form of a node. Scheduled, Activities and
// ProductionPinned record the operation as it was when the state was
// captured; a re-import is diffed against them.
type NodeState struct {
	ID                   int
	Operation            string
	AnotherPathScheduled bool

	Scheduled        bool
	Activities       []string
	ProductionPinned bool
}

// EdgeState is the persistable form of an edge.
type EdgeState struct {
	From  int
	To    int
	Attrs EdgeAttrs
}

// State captures r for persistence. Nodes and edges are listed in arena
// order.
func (r *Routing) State() State {
	s := State{
		ID:            r.id,
		ExternalID:    r.externalID,
		Name:          r.name,
		Preference:    r.preference,
		AutoUse:       r.autoUse,
		ReleaseOffset: r.releaseOffset,
		ValidFrom:     r.validFrom,
		ValidTo:       r.validTo,
		ExplicitFrom:  r.explicitFrom,
		ExplicitTo:    r.explicitTo,
		Nodes:         make([]NodeState, 0, len(r.nodes)),
		Edges:         make([]EdgeState, 0, len(r.edges)),
	}
	for _, n := range r.nodes {
		ns := NodeState{
			ID:                   n.id,
			Operation:            n.ExternalID(),
			AnotherPathScheduled: n.anotherPathScheduled,
			Scheduled:            n.op.Scheduled(),
			ProductionPinned:     n.op.ProductionPinned(),
		}
		if acts := n.op.Activities(); len(acts) > 0 {
			ns.Activities = slices.Clone(acts)
		}
		s.Nodes = append(s.Nodes, ns)
	}
	for _, e := range r.edges {
		s.Edges = append(s.Edges, EdgeState{From: r.nodes[e.from].id, To: r.nodes[e.to].id, Attrs: e.attrs})
	}
	return s
}

// Restore rebuilds a routing from its persisted form, binding nodes to the
// operations resolved through ops. Node ids and the routing identity are
// preserved. Edge endpoints are resolved by node id once all nodes exist,
// and the result is checked with [Routing.Validate].
func Restore(s State, ops OperationResolver) (*Routing, error) {
	if err := errors.ValidateExternalID("routing", s.ExternalID); err != nil {
		return nil, err
	}
	if !s.ValidTo.After(s.ValidFrom) {
		return nil, errors.Invalid(errors.ErrCodeInvalidValidityWindow, "valid_to", s.ValidTo,
			"routing %s: validity end must be after start", s.ExternalID)
	}
	r := &Routing{
		id:            s.ID,
		externalID:    s.ExternalID,
		name:          s.Name,
		preference:    s.Preference,
		autoUse:       s.AutoUse,
		releaseOffset: s.ReleaseOffset,
		validFrom:     s.ValidFrom,
		validTo:       s.ValidTo,
		explicitFrom:  s.ExplicitFrom,
		explicitTo:    s.ExplicitTo,
		byExt:         make(map[string]int, len(s.Nodes)),
		nextNodeID:    1,
	}
	if r.id == uuid.Nil {
		r.id = uuid.New()
	}

	byID := make(map[int]*Node, len(s.Nodes))
	for _, ns := range s.Nodes {
		if _, dup := byID[ns.ID]; dup {
			return nil, errors.New(errors.ErrCodeCorruptSnapshot, "routing %s: node id %d appears twice", s.ExternalID, ns.ID)
		}
		if _, dup := r.byExt[ns.Operation]; dup {
			return nil, errors.Invalid(errors.ErrCodeDuplicateNode, "operation", ns.Operation, "routing %s: operation appears twice", s.ExternalID)
		}
		op, ok := ops.Operation(ns.Operation)
		if !ok {
			return nil, errors.Invalid(errors.ErrCodeUnknownOperation, "operation", ns.Operation,
				"routing %s references an operation the order does not have", s.ExternalID)
		}
		n := r.addNode(op)
		n.id = ns.ID
		n.anotherPathScheduled = ns.AnotherPathScheduled
		byID[ns.ID] = n
		r.nextNodeID = max(r.nextNodeID, ns.ID+1)
	}

	for _, es := range s.Edges {
		from, ok := byID[es.From]
		if !ok {
			return nil, errors.New(errors.ErrCodeCorruptSnapshot, "routing %s: edge source node %d does not exist", s.ExternalID, es.From)
		}
		to, ok := byID[es.To]
		if !ok {
			return nil, errors.New(errors.ErrCodeCorruptSnapshot, "routing %s: edge target node %d does not exist", s.ExternalID, es.To)
		}
		if err := r.checkEdge(from, to, es.Attrs); err != nil {
			return nil, err
		}
		r.addEdge(from, to, es.Attrs)
	}

	r.refreshLeaves()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// States captures every routing of the collection; the default routing is
// flagged.
func (c *Collection) States() []State {
	def := c.Default()
	out := make([]State, 0, len(c.routings))
	for _, r := range c.routings {
		s := r.State()
		s.Default = r == def && c.explicitDefault
		out = append(out, s)
	}
	return out
}

// RestoreCollection rebuilds a collection from persisted routings.
func RestoreCollection(orderID string, states []State, ops OperationResolver) (*Collection, error) {
	c := NewCollection(orderID)
	var def string
	for _, s := range states {
		r, err := Restore(s, ops)
		if err != nil {
			return nil, err
		}
		if err := c.Add(r); err != nil {
			return nil, err
		}
		if s.Default && def == "" {
			def = s.ExternalID
		}
	}
	if def != "" {
		if err := c.SetDefault(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RestoreStored rebuilds a collection whose nodes are bound to the operation
// facts recorded in states rather than to live operations. It needs no
// order, so a snapshot stays usable after operations were dropped. The
// result is the old side of [Collection.Reconcile], which rebinds every
// routing it keeps to the imported operations.
func RestoreStored(orderID string, states []State) (*Collection, error) {
	ops := make(storedOperations)
	for _, s := range states {
		for _, ns := range s.Nodes {
			if _, ok := ops[ns.Operation]; !ok {
				ops[ns.Operation] = &storedOperation{
					id:         uuid.New(),
					ext:        ns.Operation,
					scheduled:  ns.Scheduled,
					pinned:     ns.ProductionPinned,
					activities: ns.Activities,
				}
			}
		}
	}
	return RestoreCollection(orderID, states, ops)
}

// storedOperation is an operation known only from a snapshot.
type storedOperation struct {
	id         uuid.UUID
	ext        string
	scheduled  bool
	pinned     bool
	activities []string
}

func (o *storedOperation) ExternalID() string     { return o.ext }
func (o *storedOperation) Identity() uuid.UUID    { return o.id }
func (o *storedOperation) State() ProductionState { return Unstarted }
func (o *storedOperation) Omitted() bool          { return false }
func (o *storedOperation) Scheduled() bool        { return o.scheduled }
func (o *storedOperation) ProductionPinned() bool { return o.pinned }
func (o *storedOperation) Activities() []string   { return o.activities }
func (o *storedOperation) Products() []string     { return nil }
func (o *storedOperation) Resources() []Resource  { return nil }
func (o *storedOperation) Timing() Timing         { return Timing{} }
func (o *storedOperation) AutoFinish()            {}

type storedOperations map[string]*storedOperation

func (s storedOperations) Operation(externalID string) (Operation, bool) {
	op, ok := s[externalID]
	if !ok {
		return nil, false
	}
	return op, true
}
