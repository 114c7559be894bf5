package routing

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeOp struct {
	id         uuid.UUID
	ext        string
	state      ProductionState
	omitted    bool
	scheduled  bool
	pinned     bool
	activities []string
	products   []string
	resources  []Resource
	timing     Timing
}

func (o *fakeOp) ExternalID() string     { return o.ext }
func (o *fakeOp) Identity() uuid.UUID    { return o.id }
func (o *fakeOp) State() ProductionState { return o.state }
func (o *fakeOp) Omitted() bool          { return o.omitted }
func (o *fakeOp) Scheduled() bool        { return o.scheduled }
func (o *fakeOp) ProductionPinned() bool { return o.pinned }
func (o *fakeOp) Activities() []string   { return o.activities }
func (o *fakeOp) Products() []string     { return o.products }
func (o *fakeOp) Resources() []Resource  { return o.resources }
func (o *fakeOp) Timing() Timing         { return o.timing }
func (o *fakeOp) AutoFinish()            { o.state = Finished }

type fakeOrder map[string]*fakeOp

func newOrder(ids ...string) fakeOrder {
	o := make(fakeOrder, len(ids))
	for _, id := range ids {
		o[id] = &fakeOp{id: uuid.New(), ext: id}
	}
	return o
}

func (o fakeOrder) Operation(id string) (Operation, bool) {
	op, ok := o[id]
	if !ok {
		return nil, false
	}
	return op, true
}

// chain returns a spec linking the operations in sequence.
func chain(ext string, ids ...string) PathSpec {
	s := PathSpec{ExternalID: ext}
	for i, id := range ids {
		ns := NodeSpec{Operation: id}
		if i+1 < len(ids) {
			ns.Successors = []SuccessorSpec{{Operation: ids[i+1]}}
		}
		s.Nodes = append(s.Nodes, ns)
	}
	return s
}

// diamond is 10 -> {20, 30} -> 40.
func diamond(ext string) PathSpec {
	return PathSpec{
		ExternalID: ext,
		Nodes: []NodeSpec{
			{Operation: "10", Successors: []SuccessorSpec{{Operation: "20"}, {Operation: "30"}}},
			{Operation: "20", Successors: []SuccessorSpec{{Operation: "40"}}},
			{Operation: "30", Successors: []SuccessorSpec{{Operation: "40"}}},
		},
	}
}

func mustBuild(t *testing.T, spec PathSpec, ops OperationResolver) *Routing {
	t.Helper()
	r, err := Build(spec, ops)
	if err != nil {
		t.Fatalf("Build(%s) error: %v", spec.ExternalID, err)
	}
	return r
}

func mustNode(t *testing.T, r *Routing, id string) *Node {
	t.Helper()
	n, ok := r.Node(id)
	if !ok {
		t.Fatalf("Node(%q) not found", id)
	}
	return n
}

func date(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }
