package routing

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/routegraph/pkg/errors"
)

var (
	// MinTime is the default validity start of a routing.
	MinTime = time.Time{}
	// MaxTime is the default validity end of a routing.
	MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// AutoUse controls when a scheduler may pick a routing on its own.
type AutoUse int

const (
	// AutoUseRegular makes the routing eligible whenever it is valid.
	AutoUseRegular AutoUse = iota
	// AutoUseIfCurrent makes the routing eligible only while the release
	// date falls inside its validity window.
	AutoUseIfCurrent
	// AutoUseReleaseOffset releases the routing a fixed offset after the
	// latest release of the order's default routing.
	AutoUseReleaseOffset
)

var autoUseNames = [...]string{
	AutoUseRegular:       "regular",
	AutoUseIfCurrent:     "if-current",
	AutoUseReleaseOffset: "release-offset",
}

func (a AutoUse) String() string {
	if a < AutoUseRegular || a > AutoUseReleaseOffset {
		return "unknown"
	}
	return autoUseNames[a]
}

// ParseAutoUse parses the names returned by [AutoUse.String].
func ParseAutoUse(s string) (AutoUse, error) {
	if s == "" {
		return AutoUseRegular, nil
	}
	for i, name := range autoUseNames {
		if name == s {
			return AutoUse(i), nil
		}
	}
	return AutoUseRegular, errors.Invalid(errors.ErrCodeInvalidInput, "auto_use", s, "unknown auto-use policy")
}

func (a AutoUse) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AutoUse) UnmarshalText(b []byte) error {
	v, err := ParseAutoUse(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Routing is one candidate operation graph (alternate path) of a
// manufacturing order.
//
// Nodes and edges live in arenas owned by the routing and refer to each other
// by index. Nodes are keyed by the external id of their operation and are
// never removed individually; a changed topology replaces the whole routing.
//
// The zero value is not usable - use [New], [Build] or [NewSingle].
// Routing is not safe for concurrent use; callers hold the owning
// scenario's lock while mutating it.
type Routing struct {
	id            uuid.UUID
	externalID    string
	name          string
	preference    int
	autoUse       AutoUse
	releaseOffset time.Duration
	validFrom     time.Time
	validTo       time.Time
	// explicitFrom and explicitTo record which window bounds came from the
	// import rather than from defaults.
	explicitFrom bool
	explicitTo   bool

	nodes      []*Node
	edges      []*Edge
	byExt      map[string]int
	leaves     NodeSet
	nextNodeID int
}

// New creates an empty routing with a fresh identity and the default
// validity window [MinTime, MaxTime).
func New(externalID, name string) *Routing {
	return &Routing{
		id:         uuid.New(),
		externalID: externalID,
		name:       name,
		validFrom:  MinTime,
		validTo:    MaxTime,
		byExt:      make(map[string]int),
		nextNodeID: 1,
	}
}

// NewSingle bootstraps a routing holding a single operation.
func NewSingle(externalID string, op Operation) *Routing {
	r := New(externalID, externalID)
	r.addNode(op)
	r.refreshLeaves()
	return r
}

func (r *Routing) ID() uuid.UUID                { return r.id }
func (r *Routing) ExternalID() string           { return r.externalID }
func (r *Routing) Name() string                 { return r.name }
func (r *Routing) Preference() int              { return r.preference }
func (r *Routing) AutoUse() AutoUse             { return r.autoUse }
func (r *Routing) ReleaseOffset() time.Duration { return r.releaseOffset }

// ValidFrom returns the inclusive start of the validity window.
func (r *Routing) ValidFrom() time.Time { return r.validFrom }

// ValidTo returns the exclusive end of the validity window.
func (r *Routing) ValidTo() time.Time { return r.validTo }

// ValidAt reports whether t lies inside [ValidFrom, ValidTo).
func (r *Routing) ValidAt(t time.Time) bool {
	return !t.Before(r.validFrom) && t.Before(r.validTo)
}

func (r *Routing) SetName(name string) { r.name = name }
func (r *Routing) SetPreference(p int) { r.preference = p }

// SetAutoUse sets the auto-use policy and its release offset.
func (r *Routing) SetAutoUse(a AutoUse, offset time.Duration) error {
	if err := errors.ValidateNonNegative(errors.ErrCodeInvalidInput, "release_offset", offset); err != nil {
		return err
	}
	r.autoUse = a
	r.releaseOffset = offset
	return nil
}

// SetValidity applies the given window bounds. A nil bound keeps the current
// value. The resulting window must satisfy end > start; otherwise nothing is
// changed and a validation error is returned.
func (r *Routing) SetValidity(from, to *time.Time) error {
	newFrom, newTo := r.validFrom, r.validTo
	if from != nil {
		newFrom = *from
	}
	if to != nil {
		newTo = *to
	}
	if !newTo.After(newFrom) {
		return errors.Invalid(errors.ErrCodeInvalidValidityWindow, "valid_to", newTo,
			"validity end must be after start %s", newFrom.Format(time.RFC3339))
	}
	r.validFrom, r.validTo = newFrom, newTo
	if from != nil {
		r.explicitFrom = true
	}
	if to != nil {
		r.explicitTo = true
	}
	return nil
}

// NodeCount returns the number of nodes.
func (r *Routing) NodeCount() int { return len(r.nodes) }

// EdgeCount returns the number of edges.
func (r *Routing) EdgeCount() int { return len(r.edges) }

// Node returns the node wrapping the operation with the given external id.
func (r *Routing) Node(externalID string) (*Node, bool) {
	i, ok := r.byExt[externalID]
	if !ok {
		return nil, false
	}
	return r.nodes[i], true
}

// NodeAt returns the node at arena index i.
func (r *Routing) NodeAt(i int) *Node { return r.nodes[i] }

// NodeByID returns the node with the given per-routing identifier.
func (r *Routing) NodeByID(id int) (*Node, bool) {
	for _, n := range r.nodes {
		if n.id == id {
			return n, true
		}
	}
	return nil, false
}

// Nodes returns all nodes ordered by operation external id.
func (r *Routing) Nodes() NodeSet {
	keys := make([]string, 0, len(r.byExt))
	for k := range r.byExt {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(NodeSet, len(keys))
	for i, k := range keys {
		out[i] = r.nodes[r.byExt[k]]
	}
	return out
}

// Edge returns the edge at arena index i.
func (r *Routing) Edge(i int) *Edge { return r.edges[i] }

// Edges returns all edges in creation order. The edges are live; use
// [Edge.Update] to change their parameters.
func (r *Routing) Edges() []*Edge { return slices.Clone(r.edges) }

// Predecessor returns the source node of e.
func (r *Routing) Predecessor(e *Edge) *Node { return r.nodes[e.from] }

// Successor returns the target node of e.
func (r *Routing) Successor(e *Edge) *Node { return r.nodes[e.to] }

// Successors returns the successor nodes of n in edge order.
func (r *Routing) Successors(n *Node) NodeSet {
	r.mustOwn(n)
	out := make(NodeSet, n.out.Len())
	for i, e := range n.out.edges {
		out[i] = r.nodes[r.edges[e].to]
	}
	return out
}

// Predecessors returns the predecessor nodes of n in edge order.
func (r *Routing) Predecessors(n *Node) NodeSet {
	r.mustOwn(n)
	out := make(NodeSet, n.in.Len())
	for i, e := range n.in.edges {
		out[i] = r.nodes[r.edges[e].from]
	}
	return out
}

// SuccessorEdge finds the outgoing edge of n whose successor wraps the
// operation with the given external id.
func (r *Routing) SuccessorEdge(n *Node, externalID string) (*Edge, bool) {
	r.mustOwn(n)
	for _, i := range n.out.edges {
		e := r.edges[i]
		if r.nodes[e.to].ExternalID() == externalID {
			return e, true
		}
	}
	return nil, false
}

// PredecessorEdge finds the incoming edge of n whose predecessor wraps the
// operation with the given external id.
func (r *Routing) PredecessorEdge(n *Node, externalID string) (*Edge, bool) {
	r.mustOwn(n)
	for _, i := range n.in.edges {
		e := r.edges[i]
		if r.nodes[e.from].ExternalID() == externalID {
			return e, true
		}
	}
	return nil, false
}

// AddNode adds a node for op. It returns ErrCodeDuplicateNode if a node for
// the same external id already exists.
func (r *Routing) AddNode(op Operation) (*Node, error) {
	if _, exists := r.byExt[op.ExternalID()]; exists {
		return nil, errors.Invalid(errors.ErrCodeDuplicateNode, "operation", op.ExternalID(), "operation already part of routing %s", r.externalID)
	}
	n := r.addNode(op)
	r.refreshLeaves()
	return n, nil
}

// AddEdge connects from to to. Both nodes must belong to r; passing a foreign
// node panics. Self loops, duplicate edges and edges that would close a cycle
// are rejected before any change is made.
func (r *Routing) AddEdge(from, to *Node, attrs EdgeAttrs) (*Edge, error) {
	r.mustOwn(from)
	r.mustOwn(to)
	if err := r.checkEdge(from, to, attrs); err != nil {
		return nil, err
	}
	e := r.addEdge(from, to, attrs)
	r.refreshLeaves()
	return e, nil
}

func (r *Routing) checkEdge(from, to *Node, attrs EdgeAttrs) error {
	if from == to {
		return errors.Invalid(errors.ErrCodeSelfLoop, "operation", from.ExternalID(), "edge cannot connect an operation to itself")
	}
	if _, dup := r.SuccessorEdge(from, to.ExternalID()); dup {
		return errors.Invalid(errors.ErrCodeInvalidEdge, "successor", to.ExternalID(), "duplicate edge from %s", from.ExternalID())
	}
	if err := attrs.Validate(); err != nil {
		return err
	}
	if r.IsPredecessorOf(to, from) {
		return errors.Invalid(errors.ErrCodeCycle, "successor", to.ExternalID(), "edge from %s would introduce a cycle", from.ExternalID())
	}
	return nil
}

func (r *Routing) addNode(op Operation) *Node {
	n := &Node{index: len(r.nodes), id: r.nextNodeID, op: op}
	r.nextNodeID++
	r.nodes = append(r.nodes, n)
	r.byExt[op.ExternalID()] = n.index
	return n
}

func (r *Routing) addEdge(from, to *Node, attrs EdgeAttrs) *Edge {
	e := &Edge{index: len(r.edges), from: from.index, to: to.index, attrs: attrs}
	r.edges = append(r.edges, e)
	from.out.add(e.index)
	to.in.add(e.index)
	return e
}

// Leaves returns the nodes without successors, ordered by arena index.
// The set is cached and refreshed on every structural change, so Leaves
// never writes and is safe for concurrent readers.
func (r *Routing) Leaves() NodeSet {
	return slices.Clone(r.leaves)
}

func (r *Routing) refreshLeaves() {
	r.leaves = r.leaves[:0]
	for _, n := range r.nodes {
		if n.IsLeaf() {
			r.leaves = append(r.leaves, n)
		}
	}
}

// Roots returns the nodes without predecessors, ordered by arena index.
// Unlike leaves, roots are computed on every call.
func (r *Routing) Roots() NodeSet {
	var roots NodeSet
	for _, n := range r.nodes {
		if n.IsRoot() {
			roots = append(roots, n)
		}
	}
	return roots
}

// IsPredecessorOf reports whether candidate is a direct or transitive
// predecessor of of. A node is not its own predecessor.
func (r *Routing) IsPredecessorOf(candidate, of *Node) bool {
	r.mustOwn(candidate)
	r.mustOwn(of)
	found := false
	r.walkPredecessors(of, func(n *Node) bool {
		if n == candidate {
			found = true
			return false
		}
		return true
	})
	return found
}

// Ancestors returns every transitive predecessor of n, nearest first.
func (r *Routing) Ancestors(n *Node) NodeSet {
	r.mustOwn(n)
	var out NodeSet
	r.walkPredecessors(n, func(p *Node) bool {
		out = append(out, p)
		return true
	})
	return out
}

// walkPredecessors visits the transitive predecessors of start breadth-first,
// each once. visit returns false to stop the walk.
func (r *Routing) walkPredecessors(start *Node, visit func(*Node) bool) {
	seen := make([]bool, len(r.nodes))
	seen[start.index] = true
	queue := []int{start.index}
	for len(queue) > 0 {
		curr := r.nodes[queue[0]]
		queue = queue[1:]
		for _, ei := range curr.in.edges {
			p := r.edges[ei].from
			if seen[p] {
				continue
			}
			seen[p] = true
			if !visit(r.nodes[p]) {
				return
			}
			queue = append(queue, p)
		}
	}
}

// PrimaryProduct returns the first product found walking from the leaves
// backwards through predecessors. ok is false if no operation of the routing
// produces anything.
func (r *Routing) PrimaryProduct() (product string, ok bool) {
	for _, leaf := range r.Leaves() {
		if ps := leaf.op.Products(); len(ps) > 0 {
			return ps[0], true
		}
	}
	for _, leaf := range r.Leaves() {
		r.walkPredecessors(leaf, func(n *Node) bool {
			if ps := n.op.Products(); len(ps) > 0 {
				product, ok = ps[0], true
				return false
			}
			return true
		})
		if ok {
			return product, true
		}
	}
	return "", false
}

// CanUseResource reports whether any operation of the routing is eligible to
// run on the resource.
func (r *Routing) CanUseResource(resourceID string) bool {
	for _, n := range r.nodes {
		for _, res := range n.op.Resources() {
			if res.ID == resourceID {
				return true
			}
		}
	}
	return false
}

// CanUsePlant reports whether any operation may run on a resource of plant.
func (r *Routing) CanUsePlant(plant string) bool {
	for _, n := range r.nodes {
		for _, res := range n.op.Resources() {
			if res.Plant == plant {
				return true
			}
		}
	}
	return false
}

// HasScheduledOperations reports whether any operation is currently scheduled.
func (r *Routing) HasScheduledOperations() bool {
	for _, n := range r.nodes {
		if n.op.Scheduled() {
			return true
		}
	}
	return false
}

// ClearAnotherPathScheduled resets the transient sibling-scheduled flag on
// all nodes.
func (r *Routing) ClearAnotherPathScheduled() {
	for _, n := range r.nodes {
		n.anotherPathScheduled = false
	}
}

// Validate checks graph integrity: edge endpoints resolve inside the routing,
// both edge sets register every edge, no self loops, and no cycles.
func (r *Routing) Validate() error {
	for _, e := range r.edges {
		if e.from < 0 || e.from >= len(r.nodes) || e.to < 0 || e.to >= len(r.nodes) {
			return errors.New(errors.ErrCodeCorruptSnapshot, "edge %d references a node outside routing %s", e.index, r.externalID)
		}
		if e.from == e.to {
			return errors.Invalid(errors.ErrCodeSelfLoop, "operation", r.nodes[e.from].ExternalID(), "edge cannot connect an operation to itself")
		}
		if !r.nodes[e.from].out.Contains(e.index) || !r.nodes[e.to].in.Contains(e.index) {
			return errors.New(errors.ErrCodeCorruptSnapshot, "edge %d is not registered on both endpoints", e.index)
		}
	}
	_, err := r.Levels()
	return err
}

// mustOwn panics if n does not belong to r.
func (r *Routing) mustOwn(n *Node) {
	if n == nil || n.index < 0 || n.index >= len(r.nodes) || r.nodes[n.index] != n {
		errors.Precondition("node is not part of routing %s", r.externalID)
	}
}
