// Package pkg provides the core libraries of routegraph.
//
// # Overview
//
// Routegraph models the routings of manufacturing orders: each order carries
// one or more alternate routings, and each routing is a directed acyclic
// graph of operations whose edges describe how material flows from one
// operation to the next and when a successor may start.
//
// # Architecture
//
// The typical data flow of an import:
//
//	ERP document (JSON, YAML, TOML)
//	         ↓
//	    [io] package (decode, build order and routings)
//	         ↓
//	    [routing] package (reconcile with the live collection)
//	         ↓
//	    [snapshot] package (BSON encoding)
//	         ↓
//	    [store] package (file, redis, postgres, mongo)
//
// [pipeline] runs these steps for the CLI and the HTTP API alike.
//
// # Main Packages
//
// [routing] - Nodes, edges and edge sets of a routing, path building from
// sparse ERP specs, level order, overlap release timing, structural diff,
// in-place updates, the auto-finish cascade and the per-order collection.
//
// [order] - Orders and their operations: production state, schedule timing
// and the operation lookup routings are built against.
//
// [io] - The document format shared by the CLI and the API.
//
// [snapshot] - Versioned BSON snapshots of a routing collection.
//
// [store] - Snapshot stores. [config] selects the backend.
//
// [render] - Graphviz DOT and SVG output of a routing.
//
// [observability] - Hooks for import, store and HTTP events, with a
// Prometheus implementation in observability/prom.
//
// [errors] - Coded errors shared by all packages.
//
// # Quick Start
//
//	doc, _ := io.ReadFile("MO-4711.yaml")
//	o, _ := doc.Build()
//	levels, _ := o.Routings().Default().Levels()
//	for _, ln := range levels {
//	    fmt.Println(ln.Level, ln.Node.ExternalID())
//	}
//
// # Testing
//
//	go test ./pkg/...
//	go test ./pkg/routing/...
//
// [routing]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/routing
// [order]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/order
// [io]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/io
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/snapshot
// [store]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/config
// [render]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/render
// [observability]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/errors
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/routegraph/pkg/pipeline
package pkg
