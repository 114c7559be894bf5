package io

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/routing"
)

const yamlDoc = `
order: MO-4711
operations:
  - id: "10"
    state: run-started
    resources: [{id: SAW-1, plant: P1}]
    timing:
      start: 2024-03-04T08:00:00Z
      processing_start: 2024-03-04T09:00:00Z
      processing_end: 2024-03-04T11:00:00Z
      end: 2024-03-04T12:00:00Z
  - id: "20"
routings:
  - id: standard
    default: true
    release_offset: 2h
    nodes:
      - operation: "10"
        successors:
          - to: "20"
            transfer_span: 30m
            overlap: transfer-qty
            overlap_transfer_qty: "25"
            auto_finish: successor-finish
      - operation: "20"
`

const jsonDoc = `{
  "order": "MO-4711",
  "operations": [
    {
      "id": "10",
      "state": "run-started",
      "resources": [{"id": "SAW-1", "plant": "P1"}],
      "timing": {
        "start": "2024-03-04T08:00:00Z",
        "processing_start": "2024-03-04T09:00:00Z",
        "processing_end": "2024-03-04T11:00:00Z",
        "end": "2024-03-04T12:00:00Z"
      }
    },
    {"id": "20"}
  ],
  "routings": [
    {
      "id": "standard",
      "default": true,
      "release_offset": "2h",
      "nodes": [
        {"operation": "10", "successors": [
          {"to": "20", "transfer_span": "30m", "overlap": "transfer-qty", "overlap_transfer_qty": 25, "auto_finish": "successor-finish"}
        ]},
        {"operation": "20"}
      ]
    }
  ]
}`

const tomlDoc = `
order = "MO-4711"

[[operations]]
id = "10"
state = "run-started"
resources = [{ id = "SAW-1", plant = "P1" }]

[operations.timing]
start = 2024-03-04T08:00:00Z
processing_start = 2024-03-04T09:00:00Z
processing_end = 2024-03-04T11:00:00Z
end = 2024-03-04T12:00:00Z

[[operations]]
id = "20"

[[routings]]
id = "standard"
default = true
release_offset = "2h"

[[routings.nodes]]
operation = "10"

[[routings.nodes.successors]]
to = "20"
transfer_span = "30m"
overlap = "transfer-qty"
overlap_transfer_qty = "25"
auto_finish = "successor-finish"

[[routings.nodes]]
operation = "20"
`

func TestRead_FormatsAgree(t *testing.T) {
	want, err := Read(strings.NewReader(yamlDoc), YAML)
	if err != nil {
		t.Fatalf("Read(yaml) error: %v", err)
	}
	for _, tt := range []struct {
		format Format
		input  string
	}{
		{JSON, jsonDoc},
		{TOML, tomlDoc},
	} {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Read() mismatch (-yaml +%s):\n%s", tt.format, diff)
			}
		})
	}
}

func TestDocument_Build(t *testing.T) {
	doc, err := Read(strings.NewReader(yamlDoc), YAML)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	o, err := doc.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	op, ok := o.Op("10")
	if !ok {
		t.Fatal("operation 10 missing")
	}
	if op.State() != routing.RunStarted || !op.Scheduled() {
		t.Errorf("operation 10 = %v scheduled=%v, want run-started and scheduled", op.State(), op.Scheduled())
	}

	r := o.Routings().Default()
	if r.ExternalID() != "standard" || r.ReleaseOffset() != 2*time.Hour {
		t.Errorf("default routing = %s offset %v, want standard offset 2h", r.ExternalID(), r.ReleaseOffset())
	}
	e := r.Edge(0)
	if e.Overlap() != routing.OverlapTransferQty || e.TransferQty().String() != "25" {
		t.Errorf("edge overlap = %v qty %v, want transfer-qty 25", e.Overlap(), e.TransferQty())
	}
	if e.TransferSpan() != 30*time.Minute {
		t.Errorf("TransferSpan() = %v, want 30m", e.TransferSpan())
	}
	if e.AutoFinish() != routing.AutoFinishOnSuccessorFinish {
		t.Errorf("AutoFinish() = %v, want successor-finish", e.AutoFinish())
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
		code   errors.Code
	}{
		{"json unknown field", JSON, `{"order": "MO-1", "oprations": []}`, errors.ErrCodeInvalidFormat},
		{"yaml unknown field", YAML, "order: MO-1\nrouting: []\n", errors.ErrCodeInvalidFormat},
		{"toml unknown field", TOML, "order = \"MO-1\"\ncolour = \"red\"\n", errors.ErrCodeInvalidFormat},
		{"bad duration", YAML, "order: MO-1\nroutings: [{id: r, release_offset: soon, nodes: []}]\n", errors.ErrCodeInvalidFormat},
		{"bad state", JSON, `{"order": "MO-1", "operations": [{"id": "10", "state": "paused"}]}`, errors.ErrCodeInvalidInput},
		{"malformed", JSON, `{"order":`, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), tt.format)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Read() code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestDocument_BuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		code errors.Code
	}{
		{"missing order", Document{}, errors.ErrCodeInvalidInput},
		{
			name: "unknown operation",
			doc:  Document{Order: "MO-1", Routings: []Routing{{ID: "r", Nodes: []Node{{Operation: "99"}}}}},
			code: errors.ErrCodeUnknownOperation,
		},
		{
			name: "duplicate operation",
			doc:  Document{Order: "MO-1", Operations: []Operation{{ID: "10"}, {ID: "10"}}},
			code: errors.ErrCodeDuplicateNode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Build()
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Build() code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestFromOrder_RoundTrip(t *testing.T) {
	doc, err := Read(strings.NewReader(yamlDoc), YAML)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	o, err := doc.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	exported := FromOrder(o)

	for _, f := range []Format{JSON, YAML, TOML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, exported, f); err != nil {
				t.Fatalf("Write() error: %v", err)
			}
			got, err := Read(&buf, f)
			if err != nil {
				t.Fatalf("Read() error: %v\n%s", err, buf.String())
			}
			if diff := cmp.Diff(exported, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	doc, _ := Read(strings.NewReader(jsonDoc), JSON)
	path := filepath.Join(t.TempDir(), "order.yaml")
	if err := WriteFile(doc, path); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if got.Order != "MO-4711" || len(got.Routings) != 1 {
		t.Errorf("ReadFile() = %+v, want MO-4711 with one routing", got)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want FILE_NOT_FOUND", err)
	}
	if _, err := ReadFile("order.txt"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ReadFile(.txt) error = %v, want INVALID_FORMAT", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.json", JSON},
		{"a.YAML", YAML},
		{"dir/a.yml", YAML},
		{"a.toml", TOML},
	}
	for _, tt := range tests {
		if got, err := FormatFromPath(tt.path); err != nil || got != tt.want {
			t.Errorf("FormatFromPath(%q) = %v, %v, want %v", tt.path, got, err, tt.want)
		}
	}
}
