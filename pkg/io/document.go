package io

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// Document is the import description of one order.
type Document struct {
	Order      string      `json:"order" yaml:"order" toml:"order"`
	Operations []Operation `json:"operations" yaml:"operations" toml:"operations"`
	Routings   []Routing   `json:"routings" yaml:"routings" toml:"routings"`
}

// Operation describes one operation of the order.
type Operation struct {
	ID         string                  `json:"id" yaml:"id" toml:"id"`
	State      routing.ProductionState `json:"state,omitempty" yaml:"state,omitempty" toml:"state,omitempty"`
	Omitted    bool                    `json:"omitted,omitempty" yaml:"omitted,omitempty" toml:"omitted,omitempty"`
	Pinned     bool                    `json:"pinned,omitempty" yaml:"pinned,omitempty" toml:"pinned,omitempty"`
	Activities []string                `json:"activities,omitempty" yaml:"activities,omitempty" toml:"activities,omitempty"`
	Products   []string                `json:"products,omitempty" yaml:"products,omitempty" toml:"products,omitempty"`
	Resources  []Resource              `json:"resources,omitempty" yaml:"resources,omitempty" toml:"resources,omitempty"`
	Timing     *Timing                 `json:"timing,omitempty" yaml:"timing,omitempty" toml:"timing,omitempty"`
}

// Resource is a machine an operation may run on.
type Resource struct {
	ID    string `json:"id" yaml:"id" toml:"id"`
	Plant string `json:"plant,omitempty" yaml:"plant,omitempty" toml:"plant,omitempty"`
}

// Timing holds the scheduled and reported instants of an operation.
type Timing struct {
	Start                   *time.Time `json:"start,omitempty" yaml:"start,omitempty" toml:"start,omitempty"`
	ProcessingStart         *time.Time `json:"processing_start,omitempty" yaml:"processing_start,omitempty" toml:"processing_start,omitempty"`
	ProcessingEnd           *time.Time `json:"processing_end,omitempty" yaml:"processing_end,omitempty" toml:"processing_end,omitempty"`
	End                     *time.Time `json:"end,omitempty" yaml:"end,omitempty" toml:"end,omitempty"`
	ReportedProcessingStart *time.Time `json:"reported_processing_start,omitempty" yaml:"reported_processing_start,omitempty" toml:"reported_processing_start,omitempty"`
	Running                 bool       `json:"running,omitempty" yaml:"running,omitempty" toml:"running,omitempty"`
	TimeBased               bool       `json:"time_based,omitempty" yaml:"time_based,omitempty" toml:"time_based,omitempty"`
	Split                   bool       `json:"split,omitempty" yaml:"split,omitempty" toml:"split,omitempty"`
}

// Routing describes one routing and its nodes.
type Routing struct {
	ID            string          `json:"id" yaml:"id" toml:"id"`
	Name          string          `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Preference    int             `json:"preference,omitempty" yaml:"preference,omitempty" toml:"preference,omitempty"`
	AutoUse       routing.AutoUse `json:"auto_use,omitempty" yaml:"auto_use,omitempty" toml:"auto_use,omitempty"`
	ReleaseOffset Duration        `json:"release_offset,omitempty" yaml:"release_offset,omitempty" toml:"release_offset,omitempty"`
	ValidFrom     *time.Time      `json:"valid_from,omitempty" yaml:"valid_from,omitempty" toml:"valid_from,omitempty"`
	ValidTo       *time.Time      `json:"valid_to,omitempty" yaml:"valid_to,omitempty" toml:"valid_to,omitempty"`
	Default       bool            `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Nodes         []Node          `json:"nodes" yaml:"nodes" toml:"nodes"`
}

// Node lists the successors of one operation within a routing.
type Node struct {
	Operation  string `json:"operation" yaml:"operation" toml:"operation"`
	Successors []Edge `json:"successors,omitempty" yaml:"successors,omitempty" toml:"successors,omitempty"`
}

// Edge is a precedence constraint to the successor operation To.
type Edge struct {
	To                            string                   `json:"to" yaml:"to" toml:"to"`
	UsageQtyPerCycle              decimal.Decimal          `json:"usage_qty_per_cycle,omitzero" yaml:"usage_qty_per_cycle,omitempty" toml:"usage_qty_per_cycle,omitempty"`
	TransferSpan                  Duration                 `json:"transfer_span,omitempty" yaml:"transfer_span,omitempty" toml:"transfer_span,omitempty"`
	MaxDelay                      Duration                 `json:"max_delay,omitempty" yaml:"max_delay,omitempty" toml:"max_delay,omitempty"`
	Overlap                       routing.OverlapPolicy    `json:"overlap,omitempty" yaml:"overlap,omitempty" toml:"overlap,omitempty"`
	OverlapTransferQty            decimal.Decimal          `json:"overlap_transfer_qty,omitzero" yaml:"overlap_transfer_qty,omitempty" toml:"overlap_transfer_qty,omitempty"`
	OverlapTransferSpan           Duration                 `json:"overlap_transfer_span,omitempty" yaml:"overlap_transfer_span,omitempty" toml:"overlap_transfer_span,omitempty"`
	OverlapPercentComplete        float64                  `json:"overlap_percent_complete,omitempty" yaml:"overlap_percent_complete,omitempty" toml:"overlap_percent_complete,omitempty"`
	OverlapSetups                 bool                     `json:"overlap_setups,omitempty" yaml:"overlap_setups,omitempty" toml:"overlap_setups,omitempty"`
	AutoFinish                    routing.AutoFinishPolicy `json:"auto_finish,omitempty" yaml:"auto_finish,omitempty" toml:"auto_finish,omitempty"`
	AllowManualConnectorViolation bool                     `json:"allow_manual_connector_violation,omitempty" yaml:"allow_manual_connector_violation,omitempty" toml:"allow_manual_connector_violation,omitempty"`
	TransferStart                 routing.TransferPoint    `json:"transfer_start,omitempty" yaml:"transfer_start,omitempty" toml:"transfer_start,omitempty"`
	TransferEnd                   routing.TransferPoint    `json:"transfer_end,omitempty" yaml:"transfer_end,omitempty" toml:"transfer_end,omitempty"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return errors.Invalid(errors.ErrCodeInvalidFormat, "duration", string(b), "invalid duration")
	}
	*d = Duration(v)
	return nil
}

// OperationSpecs converts the operations of the document.
func (d *Document) OperationSpecs() []order.OperationSpec {
	specs := make([]order.OperationSpec, len(d.Operations))
	for i, op := range d.Operations {
		s := order.OperationSpec{
			ExternalID:       op.ID,
			State:            op.State,
			Omitted:          op.Omitted,
			ProductionPinned: op.Pinned,
			Activities:       op.Activities,
			Products:         op.Products,
		}
		for _, r := range op.Resources {
			s.Resources = append(s.Resources, routing.Resource{ID: r.ID, Plant: r.Plant})
		}
		if t := op.Timing; t != nil {
			s.Timing = routing.Timing{
				ScheduledStart:           value(t.Start),
				ScheduledProcessingStart: value(t.ProcessingStart),
				ScheduledProcessingEnd:   value(t.ProcessingEnd),
				ScheduledEnd:             value(t.End),
				ReportedProcessingStart:  value(t.ReportedProcessingStart),
				Running:                  t.Running,
				TimeBasedProgress:        t.TimeBased,
				Split:                    t.Split,
			}
		}
		specs[i] = s
	}
	return specs
}

// PathSpecs converts the routings of the document.
func (d *Document) PathSpecs() []routing.PathSpec {
	specs := make([]routing.PathSpec, len(d.Routings))
	for i, r := range d.Routings {
		s := routing.PathSpec{
			ExternalID:    r.ID,
			Name:          r.Name,
			Preference:    r.Preference,
			AutoUse:       r.AutoUse,
			ReleaseOffset: time.Duration(r.ReleaseOffset),
			ValidFrom:     r.ValidFrom,
			ValidTo:       r.ValidTo,
			Default:       r.Default,
		}
		for _, n := range r.Nodes {
			ns := routing.NodeSpec{Operation: n.Operation}
			for _, e := range n.Successors {
				ns.Successors = append(ns.Successors, routing.SuccessorSpec{Operation: e.To, Attrs: e.attrs()})
			}
			s.Nodes = append(s.Nodes, ns)
		}
		specs[i] = s
	}
	return specs
}

func (e Edge) attrs() routing.EdgeAttrs {
	return routing.EdgeAttrs{
		UsageQtyPerCycle:              e.UsageQtyPerCycle,
		TransferSpan:                  time.Duration(e.TransferSpan),
		MaxDelay:                      time.Duration(e.MaxDelay),
		Overlap:                       e.Overlap,
		OverlapTransferQty:            e.OverlapTransferQty,
		OverlapTransferSpan:           time.Duration(e.OverlapTransferSpan),
		OverlapPercentComplete:        e.OverlapPercentComplete,
		OverlapSetups:                 e.OverlapSetups,
		AutoFinish:                    e.AutoFinish,
		AllowManualConnectorViolation: e.AllowManualConnectorViolation,
		TransferStart:                 e.TransferStart,
		TransferEnd:                   e.TransferEnd,
	}
}

// Build creates the order with its operations and routings.
func (d *Document) Build() (*order.Order, error) {
	if err := errors.ValidateExternalID("order", d.Order); err != nil {
		return nil, err
	}
	o, err := order.New(d.Order, d.OperationSpecs())
	if err != nil {
		return nil, err
	}
	if err := o.BuildRoutings(d.PathSpecs()); err != nil {
		return nil, err
	}
	return o, nil
}

// FromOrder describes an order as a document.
func FromOrder(o *order.Order) *Document {
	d := &Document{Order: o.ExternalID()}
	for _, op := range o.Operations() {
		d.Operations = append(d.Operations, fromSpec(op.Spec()))
	}
	if o.Routings() == nil {
		return d
	}
	def := o.Routings().Default()
	for _, r := range o.Routings().Routings() {
		d.Routings = append(d.Routings, fromRouting(r, r == def))
	}
	return d
}

func fromSpec(s order.OperationSpec) Operation {
	op := Operation{
		ID:         s.ExternalID,
		State:      s.State,
		Omitted:    s.Omitted,
		Pinned:     s.ProductionPinned,
		Activities: s.Activities,
		Products:   s.Products,
	}
	for _, r := range s.Resources {
		op.Resources = append(op.Resources, Resource{ID: r.ID, Plant: r.Plant})
	}
	if t := s.Timing; t != (routing.Timing{}) {
		op.Timing = &Timing{
			Start:                   pointer(t.ScheduledStart),
			ProcessingStart:         pointer(t.ScheduledProcessingStart),
			ProcessingEnd:           pointer(t.ScheduledProcessingEnd),
			End:                     pointer(t.ScheduledEnd),
			ReportedProcessingStart: pointer(t.ReportedProcessingStart),
			Running:                 t.Running,
			TimeBased:               t.TimeBasedProgress,
			Split:                   t.Split,
		}
	}
	return op
}

func fromRouting(r *routing.Routing, isDefault bool) Routing {
	out := Routing{
		ID:            r.ExternalID(),
		Name:          r.Name(),
		Preference:    r.Preference(),
		AutoUse:       r.AutoUse(),
		ReleaseOffset: Duration(r.ReleaseOffset()),
		Default:       isDefault,
	}
	if !r.ValidFrom().Equal(routing.MinTime) {
		out.ValidFrom = pointer(r.ValidFrom())
	}
	if !r.ValidTo().Equal(routing.MaxTime) {
		out.ValidTo = pointer(r.ValidTo())
	}
	for _, n := range r.Nodes() {
		node := Node{Operation: n.ExternalID()}
		for _, ei := range n.Out().Indices() {
			e := r.Edge(ei)
			a := e.Attrs()
			node.Successors = append(node.Successors, Edge{
				To:                            r.Successor(e).ExternalID(),
				UsageQtyPerCycle:              a.UsageQtyPerCycle,
				TransferSpan:                  Duration(a.TransferSpan),
				MaxDelay:                      Duration(a.MaxDelay),
				Overlap:                       a.Overlap,
				OverlapTransferQty:            a.OverlapTransferQty,
				OverlapTransferSpan:           Duration(a.OverlapTransferSpan),
				OverlapPercentComplete:        a.OverlapPercentComplete,
				OverlapSetups:                 a.OverlapSetups,
				AutoFinish:                    a.AutoFinish,
				AllowManualConnectorViolation: a.AllowManualConnectorViolation,
				TransferStart:                 a.TransferStart,
				TransferEnd:                   a.TransferEnd,
			})
		}
		out.Nodes = append(out.Nodes, node)
	}
	return out
}

func value(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func pointer(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
