package snapshot

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/routing"
)

func newOrder(t *testing.T, ids ...string) *order.Order {
	t.Helper()
	specs := make([]order.OperationSpec, len(ids))
	for i, id := range ids {
		specs[i] = order.OperationSpec{ExternalID: id}
	}
	o, err := order.New("MO-1", specs)
	if err != nil {
		t.Fatalf("order.New() error: %v", err)
	}
	return o
}

func TestMarshalRoundTrip(t *testing.T) {
	o := newOrder(t, "10", "20", "30")
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := o.BuildRoutings([]routing.PathSpec{
		{
			ExternalID:    "R1",
			Preference:    2,
			AutoUse:       routing.AutoUseReleaseOffset,
			ReleaseOffset: 4 * time.Hour,
			ValidFrom:     &from,
			Nodes: []routing.NodeSpec{
				{Operation: "10", Successors: []routing.SuccessorSpec{{Operation: "20", Attrs: routing.EdgeAttrs{
					UsageQtyPerCycle:       decimal.RequireFromString("2.5"),
					TransferSpan:           time.Hour,
					Overlap:                routing.OverlapPercentComplete,
					OverlapPercentComplete: 0.4,
					AutoFinish:             routing.AutoFinishOnSuccessorFinish,
					TransferStart:          routing.TransferEndOfRun,
					TransferEnd:            routing.TransferEndOfSetup,
				}}}},
				{Operation: "20", Successors: []routing.SuccessorSpec{{Operation: "30"}}},
			},
		},
		{ExternalID: "R2", Default: true, Nodes: []routing.NodeSpec{{Operation: "30"}}},
	})
	if err != nil {
		t.Fatalf("BuildRoutings() error: %v", err)
	}

	data, err := Marshal(o.Routings())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	h, err := ReadHeader(data)
	if err != nil {
		t.Fatalf("ReadHeader() error: %v", err)
	}
	if h.Version != Current || h.Order != "MO-1" {
		t.Errorf("ReadHeader() = %+v, want current version for MO-1", h)
	}

	got, err := Unmarshal(data, o)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if diff := cmp.Diff(o.Routings().States(), got.States()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.Default().ExternalID() != "R2" {
		t.Errorf("Default() = %s, want R2", got.Default().ExternalID())
	}
}

func legacyEdge(overlap string) bson.M {
	return bson.M{
		"from":                 1,
		"to":                   2,
		"usage_qty_per_cycle":  "1",
		"transfer_span_ns":     int64(time.Minute),
		"overlap":              overlap,
		"overlap_transfer_qty": "5",
	}
}

func legacyDoc(version int, edge bson.M) []byte {
	data, err := bson.Marshal(bson.M{
		"version": version,
		"order":   "MO-1",
		"routings": bson.A{bson.M{
			"id":          "6f1c2b7e-8a53-4c36-9d57-1f0e5d7c9a11",
			"external_id": "R1",
			"auto_use":    "regular",
			"valid_from":  time.Time{},
			"valid_to":    routing.MaxTime,
			"nodes": bson.A{
				bson.M{"id": 1, "operation": "10"},
				bson.M{"id": 2, "operation": "20"},
			},
			"edges": bson.A{edge},
		}},
	})
	if err != nil {
		panic(err)
	}
	return data
}

func TestUnmarshal_Upgrades(t *testing.T) {
	tests := []struct {
		name      string
		version   int
		edge      bson.M
		wantStart routing.TransferPoint
		wantEnd   routing.TransferPoint
		wantSpan  time.Duration
	}{
		{
			name:    "v1 transfer qty",
			version: 1,
			edge:    legacyEdge("transfer-qty"),
		},
		{
			name:    "v2 without transfer points",
			version: 2,
			edge:    legacyEdge("none"),
		},
		{
			name:    "v2 span",
			version: 2,
			edge: func() bson.M {
				e := legacyEdge("transfer-span")
				e["overlap_transfer_span_ns"] = int64(30 * time.Minute)
				return e
			}(),
			wantSpan: 30 * time.Minute,
		},
		{
			name:    "v3 explicit points",
			version: 3,
			edge: func() bson.M {
				e := legacyEdge("none")
				e["transfer_start"] = "end-of-run"
				e["transfer_end"] = "end-of-setup"
				return e
			}(),
			wantStart: routing.TransferEndOfRun,
			wantEnd:   routing.TransferEndOfSetup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrder(t, "10", "20")
			c, err := Unmarshal(legacyDoc(tt.version, tt.edge), o)
			if err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			r, ok := c.Routing("R1")
			if !ok {
				t.Fatal("Routing(R1) missing")
			}
			e := r.Edge(0)
			if start, end := e.TransferPoints(); start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("transfer points = (%v, %v), want (%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
			if e.Attrs().OverlapTransferSpan != tt.wantSpan {
				t.Errorf("overlap span = %v, want %v", e.Attrs().OverlapTransferSpan, tt.wantSpan)
			}
			if e.TransferSpan() != time.Minute {
				t.Errorf("TransferSpan() = %v, want 1m", e.TransferSpan())
			}
			if r.ID().String() != "6f1c2b7e-8a53-4c36-9d57-1f0e5d7c9a11" {
				t.Errorf("ID() = %s, want stored identity", r.ID())
			}
		})
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code errors.Code
	}{
		{"garbage", []byte("not bson"), errors.ErrCodeCorruptSnapshot},
		{"future version", legacyDoc(9, legacyEdge("none")), errors.ErrCodeUnsupportedSchema},
		{"missing version", legacyDoc(0, legacyEdge("none")), errors.ErrCodeUnsupportedSchema},
		{"v1 with span policy", legacyDoc(1, legacyEdge("transfer-span")), errors.ErrCodeCorruptSnapshot},
		{"bad quantity", legacyDoc(3, func() bson.M {
			e := legacyEdge("none")
			e["usage_qty_per_cycle"] = "lots"
			return e
		}()), errors.ErrCodeCorruptSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data, newOrder(t, "10", "20"))
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Unmarshal() code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestUnmarshal_UnknownOperation(t *testing.T) {
	_, err := Unmarshal(legacyDoc(3, legacyEdge("none")), newOrder(t, "10"))
	if !errors.Is(err, errors.ErrCodeUnknownOperation) {
		t.Errorf("Unmarshal() error = %v, want UNKNOWN_OPERATION", err)
	}
}

func TestUnmarshalStored_OperationFacts(t *testing.T) {
	start := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	o, err := order.New("MO-1", []order.OperationSpec{
		{ExternalID: "10", Activities: []string{"setup", "run"}, Timing: routing.Timing{ScheduledStart: start}},
		{ExternalID: "20", ProductionPinned: true},
	})
	if err != nil {
		t.Fatalf("order.New() error: %v", err)
	}
	if err := o.BuildRoutings([]routing.PathSpec{{ExternalID: "R1", Nodes: []routing.NodeSpec{
		{Operation: "10", Successors: []routing.SuccessorSpec{{Operation: "20"}}},
	}}}); err != nil {
		t.Fatalf("BuildRoutings() error: %v", err)
	}
	data, err := Marshal(o.Routings())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	// Bound to the recorded facts, the snapshot needs none of the order's
	// operations.
	c, err := UnmarshalStored(data)
	if err != nil {
		t.Fatalf("UnmarshalStored() error: %v", err)
	}
	r, _ := c.Routing("R1")
	n10, _ := r.Node("10")
	n20, _ := r.Node("20")
	if !n10.Operation().Scheduled() || n20.Operation().Scheduled() {
		t.Error("scheduled flags not restored")
	}
	if diff := cmp.Diff([]string{"setup", "run"}, n10.Operation().Activities()); diff != "" {
		t.Errorf("activities mismatch (-want +got):\n%s", diff)
	}
	if !n20.Operation().ProductionPinned() {
		t.Error("production pin not restored")
	}
}

func TestUnmarshalStored_Errors(t *testing.T) {
	if _, err := UnmarshalStored([]byte("not bson")); !errors.Is(err, errors.ErrCodeCorruptSnapshot) {
		t.Errorf("UnmarshalStored(garbage) error = %v, want CORRUPT_SNAPSHOT", err)
	}
	if _, err := UnmarshalStored(legacyDoc(9, legacyEdge("none"))); !errors.Is(err, errors.ErrCodeUnsupportedSchema) {
		t.Errorf("UnmarshalStored(future) error = %v, want UNSUPPORTED_SCHEMA", err)
	}
}
