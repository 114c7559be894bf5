package snapshot

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// Version is a snapshot schema revision.
type Version int

const (
	V1 Version = iota + 1
	V2
	V3

	// Current is the version written by Marshal.
	Current = V3
)

// Header is the metadata of a snapshot.
type Header struct {
	Version Version   `bson:"version"`
	Order   string    `bson:"order"`
	SavedAt time.Time `bson:"saved_at"`
}

type document struct {
	Version  Version      `bson:"version"`
	Order    string       `bson:"order"`
	SavedAt  time.Time    `bson:"saved_at"`
	Routings []routingDoc `bson:"routings"`
}

type routingDoc struct {
	ID              string    `bson:"id"`
	ExternalID      string    `bson:"external_id"`
	Name            string    `bson:"name"`
	Preference      int       `bson:"preference"`
	AutoUse         string    `bson:"auto_use"`
	ReleaseOffsetNS int64     `bson:"release_offset_ns"`
	ValidFrom       time.Time `bson:"valid_from"`
	ValidTo         time.Time `bson:"valid_to"`
	ExplicitFrom    bool      `bson:"explicit_from"`
	ExplicitTo      bool      `bson:"explicit_to"`
	Default         bool      `bson:"default"`
	Nodes           []nodeDoc `bson:"nodes"`
	Edges           []edgeDoc `bson:"edges"`
}

type nodeDoc struct {
	ID                   int    `bson:"id"`
	Operation            string `bson:"operation"`
	AnotherPathScheduled bool   `bson:"another_path_scheduled"`

	// Operation facts at save time. Absent before they were recorded,
	// which reads as unscheduled.
	Scheduled        bool     `bson:"scheduled,omitempty"`
	Activities       []string `bson:"activities,omitempty"`
	ProductionPinned bool     `bson:"production_pinned,omitempty"`
}

type edgeDoc struct {
	From                          int    `bson:"from"`
	To                            int    `bson:"to"`
	UsageQtyPerCycle              string `bson:"usage_qty_per_cycle"`
	TransferSpanNS                int64  `bson:"transfer_span_ns"`
	MaxDelayNS                    int64  `bson:"max_delay_ns"`
	Overlap                       string `bson:"overlap"`
	OverlapTransferQty            string `bson:"overlap_transfer_qty"`
	OverlapSetups                 bool   `bson:"overlap_setups"`
	AutoFinish                    string `bson:"auto_finish"`
	AllowManualConnectorViolation bool   `bson:"allow_manual_connector_violation"`

	// Since V2.
	OverlapTransferSpanNS  *int64   `bson:"overlap_transfer_span_ns,omitempty"`
	OverlapPercentComplete *float64 `bson:"overlap_percent_complete,omitempty"`

	// Since V3.
	TransferStart *string `bson:"transfer_start,omitempty"`
	TransferEnd   *string `bson:"transfer_end,omitempty"`
}

// Marshal encodes the collection as a current-version snapshot.
func Marshal(c *routing.Collection) ([]byte, error) {
	doc := document{
		Version: Current,
		Order:   c.OrderID(),
		SavedAt: time.Now().UTC(),
	}
	for _, s := range c.States() {
		doc.Routings = append(doc.Routings, encodeRouting(s))
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot for order %s", c.OrderID())
	}
	return data, nil
}

// ReadHeader decodes only the snapshot metadata.
func ReadHeader(data []byte) (Header, error) {
	var h Header
	if err := bson.Unmarshal(data, &h); err != nil {
		return Header{}, errors.Wrap(errors.ErrCodeCorruptSnapshot, err, "decode snapshot header")
	}
	return h, nil
}

// Unmarshal decodes a snapshot of any known version and rebinds its
// routings to the operations resolved by ops.
func Unmarshal(data []byte, ops routing.OperationResolver) (*routing.Collection, error) {
	orderID, states, err := decode(data)
	if err != nil {
		return nil, err
	}
	return routing.RestoreCollection(orderID, states, ops)
}

// UnmarshalStored decodes a snapshot bound to the operation facts it
// recorded. See [routing.RestoreStored].
func UnmarshalStored(data []byte) (*routing.Collection, error) {
	orderID, states, err := decode(data)
	if err != nil {
		return nil, err
	}
	c, err := routing.RestoreStored(orderID, states)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptSnapshot, err, "restore snapshot of order %s", orderID)
	}
	return c, nil
}

func decode(data []byte) (string, []routing.State, error) {
	var doc document
	if err := bson.Unmarshal(data, &doc); err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeCorruptSnapshot, err, "decode snapshot")
	}
	if err := upgrade(&doc); err != nil {
		return "", nil, err
	}

	states := make([]routing.State, 0, len(doc.Routings))
	for _, rd := range doc.Routings {
		s, err := decodeRouting(rd)
		if err != nil {
			return "", nil, errors.Wrap(errors.ErrCodeCorruptSnapshot, err, "routing %s", rd.ExternalID)
		}
		states = append(states, s)
	}
	return doc.Order, states, nil
}

func encodeRouting(s routing.State) routingDoc {
	rd := routingDoc{
		ID:              s.ID.String(),
		ExternalID:      s.ExternalID,
		Name:            s.Name,
		Preference:      s.Preference,
		AutoUse:         s.AutoUse.String(),
		ReleaseOffsetNS: int64(s.ReleaseOffset),
		ValidFrom:       s.ValidFrom,
		ValidTo:         s.ValidTo,
		ExplicitFrom:    s.ExplicitFrom,
		ExplicitTo:      s.ExplicitTo,
		Default:         s.Default,
	}
	for _, n := range s.Nodes {
		rd.Nodes = append(rd.Nodes, nodeDoc{
			ID:                   n.ID,
			Operation:            n.Operation,
			AnotherPathScheduled: n.AnotherPathScheduled,
			Scheduled:            n.Scheduled,
			Activities:           n.Activities,
			ProductionPinned:     n.ProductionPinned,
		})
	}
	for _, e := range s.Edges {
		a := e.Attrs
		span := int64(a.OverlapTransferSpan)
		pct := a.OverlapPercentComplete
		start, end := a.TransferStart.String(), a.TransferEnd.String()
		rd.Edges = append(rd.Edges, edgeDoc{
			From:                          e.From,
			To:                            e.To,
			UsageQtyPerCycle:              a.UsageQtyPerCycle.String(),
			TransferSpanNS:                int64(a.TransferSpan),
			MaxDelayNS:                    int64(a.MaxDelay),
			Overlap:                       a.Overlap.String(),
			OverlapTransferQty:            a.OverlapTransferQty.String(),
			OverlapSetups:                 a.OverlapSetups,
			AutoFinish:                    a.AutoFinish.String(),
			AllowManualConnectorViolation: a.AllowManualConnectorViolation,
			OverlapTransferSpanNS:         &span,
			OverlapPercentComplete:        &pct,
			TransferStart:                 &start,
			TransferEnd:                   &end,
		})
	}
	return rd
}

func decodeRouting(rd routingDoc) (routing.State, error) {
	s := routing.State{
		ExternalID:    rd.ExternalID,
		Name:          rd.Name,
		Preference:    rd.Preference,
		ReleaseOffset: time.Duration(rd.ReleaseOffsetNS),
		ValidFrom:     rd.ValidFrom.UTC(),
		ValidTo:       rd.ValidTo.UTC(),
		ExplicitFrom:  rd.ExplicitFrom,
		ExplicitTo:    rd.ExplicitTo,
		Default:       rd.Default,
	}
	if rd.ID != "" {
		id, err := uuid.Parse(rd.ID)
		if err != nil {
			return routing.State{}, err
		}
		s.ID = id
	}
	au, err := routing.ParseAutoUse(rd.AutoUse)
	if err != nil {
		return routing.State{}, err
	}
	s.AutoUse = au

	for _, nd := range rd.Nodes {
		s.Nodes = append(s.Nodes, routing.NodeState{
			ID:                   nd.ID,
			Operation:            nd.Operation,
			AnotherPathScheduled: nd.AnotherPathScheduled,
			Scheduled:            nd.Scheduled,
			Activities:           nd.Activities,
			ProductionPinned:     nd.ProductionPinned,
		})
	}
	for _, ed := range rd.Edges {
		attrs, err := decodeAttrs(ed)
		if err != nil {
			return routing.State{}, err
		}
		s.Edges = append(s.Edges, routing.EdgeState{From: ed.From, To: ed.To, Attrs: attrs})
	}
	return s, nil
}

func decodeAttrs(ed edgeDoc) (routing.EdgeAttrs, error) {
	var (
		a   routing.EdgeAttrs
		err error
	)
	if a.UsageQtyPerCycle, err = parseDecimal(ed.UsageQtyPerCycle); err != nil {
		return a, err
	}
	if a.OverlapTransferQty, err = parseDecimal(ed.OverlapTransferQty); err != nil {
		return a, err
	}
	if a.Overlap, err = routing.ParseOverlapPolicy(ed.Overlap); err != nil {
		return a, err
	}
	if a.AutoFinish, err = routing.ParseAutoFinishPolicy(ed.AutoFinish); err != nil {
		return a, err
	}
	if a.TransferStart, err = routing.ParseTransferPoint(deref(ed.TransferStart)); err != nil {
		return a, err
	}
	if a.TransferEnd, err = routing.ParseTransferPoint(deref(ed.TransferEnd)); err != nil {
		return a, err
	}
	a.TransferSpan = time.Duration(ed.TransferSpanNS)
	a.MaxDelay = time.Duration(ed.MaxDelayNS)
	a.OverlapSetups = ed.OverlapSetups
	a.AllowManualConnectorViolation = ed.AllowManualConnectorViolation
	if ed.OverlapTransferSpanNS != nil {
		a.OverlapTransferSpan = time.Duration(*ed.OverlapTransferSpanNS)
	}
	if ed.OverlapPercentComplete != nil {
		a.OverlapPercentComplete = *ed.OverlapPercentComplete
	}
	return a, a.Validate()
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
