// Package io reads and writes import documents for manufacturing orders.
//
// # Overview
//
// An import document describes one order: its operations with their
// production state and scheduling facts, and the routings connecting them.
// The same structure is accepted as JSON, YAML or TOML; [FormatFromPath]
// picks the codec by file extension.
//
//	order: MO-4711
//	operations:
//	  - id: "10"
//	    resources: [{id: SAW-1, plant: P1}]
//	  - id: "20"
//	routings:
//	  - id: standard
//	    default: true
//	    nodes:
//	      - operation: "10"
//	        successors:
//	          - to: "20"
//	            transfer_span: 30m
//	            overlap: transfer-qty
//	            overlap_transfer_qty: "25"
//	      - operation: "20"
//
// # Fields
//
// Durations are Go duration strings ("90m", "1h30m"). Quantities are
// decimal strings or numbers. Enumerations use their lower-case names, for
// example "percent-complete" or "successor-run-start".
//
// Unknown fields are rejected in every format so that typos surface as
// errors instead of silently falling back to defaults.
//
// # Conversion
//
// [Document.Build] creates an [order.Order] with its routing collection.
// [FromOrder] goes the other way, so an order can be exported and imported
// again.
//
// [order.Order]: github.com/matzehuels/routegraph/pkg/order.Order
package io
