// Package order holds manufacturing orders and their operations.
//
// An [Order] owns its [Operation] values and resolves them by external id,
// so routings built with package routing can bind to them.
package order

import (
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// OperationSpec is the import description of an operation.
type OperationSpec struct {
	ExternalID       string
	State            routing.ProductionState
	Omitted          bool
	ProductionPinned bool
	Activities       []string
	Products         []string
	Resources        []routing.Resource
	Timing           routing.Timing
}

// Validate checks s.
func (s OperationSpec) Validate() error {
	if err := errors.ValidateExternalID("operation", s.ExternalID); err != nil {
		return err
	}
	t := s.Timing
	if !t.ScheduledStart.IsZero() && !t.ScheduledEnd.IsZero() && t.ScheduledEnd.Before(t.ScheduledStart) {
		return errors.Invalid(errors.ErrCodeInvalidInput, "scheduled_end", t.ScheduledEnd,
			"operation %s ends before it starts", s.ExternalID)
	}
	return nil
}

// Operation is a unit of work of an order. It implements
// [routing.Operation].
type Operation struct {
	id         uuid.UUID
	externalID string
	state      routing.ProductionState
	omitted    bool
	pinned     bool
	activities []string
	products   []string
	resources  []routing.Resource
	timing     routing.Timing
}

// NewOperation creates an operation with a fresh identity.
func NewOperation(s OperationSpec) *Operation {
	return &Operation{
		id:         uuid.New(),
		externalID: s.ExternalID,
		state:      s.State,
		omitted:    s.Omitted,
		pinned:     s.ProductionPinned,
		activities: slices.Clone(s.Activities),
		products:   slices.Clone(s.Products),
		resources:  slices.Clone(s.Resources),
		timing:     s.Timing,
	}
}

func (o *Operation) ExternalID() string             { return o.externalID }
func (o *Operation) Identity() uuid.UUID            { return o.id }
func (o *Operation) State() routing.ProductionState { return o.state }
func (o *Operation) Omitted() bool                  { return o.omitted }
func (o *Operation) Scheduled() bool                { return o.timing.IsScheduled() }
func (o *Operation) ProductionPinned() bool         { return o.pinned }
func (o *Operation) Activities() []string           { return o.activities }
func (o *Operation) Products() []string             { return o.products }
func (o *Operation) Resources() []routing.Resource  { return o.resources }
func (o *Operation) Timing() routing.Timing         { return o.timing }

// AutoFinish marks the operation finished.
func (o *Operation) AutoFinish() { o.state = routing.Finished }

// SetState records production feedback. States never move backwards.
func (o *Operation) SetState(s routing.ProductionState) error {
	if s < o.state {
		return errors.Invalid(errors.ErrCodeInvalidInput, "state", s.String(),
			"operation %s cannot move back from %s", o.externalID, o.state)
	}
	o.state = s
	return nil
}

// Schedule replaces the scheduling facts.
func (o *Operation) Schedule(t routing.Timing) { o.timing = t }

// Unschedule clears all scheduled instants, keeping reported progress.
func (o *Operation) Unschedule() {
	o.timing = routing.Timing{
		ReportedProcessingStart: o.timing.ReportedProcessingStart,
		Running:                 o.timing.Running,
		TimeBasedProgress:       o.timing.TimeBasedProgress,
		Split:                   o.timing.Split,
	}
}

// Spec returns the import form of the operation's current data.
func (o *Operation) Spec() OperationSpec {
	return OperationSpec{
		ExternalID:       o.externalID,
		State:            o.state,
		Omitted:          o.omitted,
		ProductionPinned: o.pinned,
		Activities:       slices.Clone(o.activities),
		Products:         slices.Clone(o.products),
		Resources:        slices.Clone(o.resources),
		Timing:           o.timing,
	}
}

var _ routing.Operation = (*Operation)(nil)

// Order is a manufacturing order: its operations and its routings.
type Order struct {
	externalID string
	ops        map[string]*Operation
	routings   *routing.Collection
}

// New creates an order from operation specs. Duplicate operation ids are
// rejected.
func New(externalID string, specs []OperationSpec) (*Order, error) {
	if err := errors.ValidateExternalID("order", externalID); err != nil {
		return nil, err
	}
	o := &Order{
		externalID: externalID,
		ops:        make(map[string]*Operation, len(specs)),
		routings:   routing.NewCollection(externalID),
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := o.ops[s.ExternalID]; dup {
			return nil, errors.Invalid(errors.ErrCodeDuplicateNode, "operation", s.ExternalID,
				"order %s lists the operation twice", externalID)
		}
		o.ops[s.ExternalID] = NewOperation(s)
	}
	return o, nil
}

// ExternalID returns the order id.
func (o *Order) ExternalID() string { return o.externalID }

// Operation implements [routing.OperationResolver].
func (o *Order) Operation(externalID string) (routing.Operation, bool) {
	op, ok := o.ops[externalID]
	if !ok {
		return nil, false
	}
	return op, true
}

// Op returns the concrete operation.
func (o *Order) Op(externalID string) (*Operation, bool) {
	op, ok := o.ops[externalID]
	return op, ok
}

// Operations returns all operations sorted by external id.
func (o *Order) Operations() []*Operation {
	out := make([]*Operation, 0, len(o.ops))
	for _, op := range o.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].externalID < out[j].externalID })
	return out
}

// Routings returns the order's routing collection.
func (o *Order) Routings() *routing.Collection { return o.routings }

// SetRoutings replaces the routing collection.
func (o *Order) SetRoutings(c *routing.Collection) { o.routings = c }

// BuildRoutings builds the collection from path specs against this order's
// operations and installs it.
func (o *Order) BuildRoutings(specs []routing.PathSpec) error {
	c, err := routing.BuildCollection(o.externalID, specs, o)
	if err != nil {
		return err
	}
	o.routings = c
	return nil
}

// Unschedule clears the schedule of every operation.
func (o *Order) Unschedule() {
	for _, op := range o.ops {
		op.Unschedule()
	}
}

// ReportState records production feedback for one operation and runs the
// auto-finish cascade. It returns the operations finished by the cascade.
func (o *Order) ReportState(externalID string, s routing.ProductionState) ([]routing.Operation, error) {
	op, ok := o.ops[externalID]
	if !ok {
		return nil, errors.Invalid(errors.ErrCodeUnknownOperation, "operation", externalID,
			"order %s has no such operation", o.externalID)
	}
	if err := op.SetState(s); err != nil {
		return nil, err
	}
	return o.routings.AutoFinishPredecessors(), nil
}
