// Package pipeline imports order documents into the routing store.
//
// An import runs these steps:
//
//  1. Build: create the order and its routing collection from the document
//  2. Load: restore the stored snapshot of the order, if any
//  3. Reconcile: merge the imported routings into the stored ones
//  4. Cascade: finish predecessors whose successors report progress
//  5. Save: write the reconciled collection back as a snapshot
//
// Routings that keep their topology are patched in place and keep their
// identity across imports; everything else is replaced. A stored snapshot
// that no longer fits the order (for example because an operation was
// deleted in the ERP system) is discarded and the import starts from
// scratch.
//
// # Usage
//
//	runner := pipeline.NewRunner(st, nil, logger)
//	doc, err := io.ReadFile("MO-4711.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := runner.Import(ctx, doc, pipeline.Options{})
//	for _, o := range result.Reconcile.Outcomes {
//	    fmt.Println(o.ExternalID, o.Action)
//	}
package pipeline

import (
	"time"

	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// Options controls a single import.
type Options struct {
	// DryRun reconciles without saving the snapshot.
	DryRun bool
	// Fresh ignores the stored snapshot.
	Fresh bool
	// KeepSchedule leaves operation timing untouched even when the
	// reconciliation invalidated the schedule.
	KeepSchedule bool
}

// Result is the outcome of an import.
type Result struct {
	Order     *order.Order
	Reconcile routing.ReconcileResult

	// Restored is set when a stored snapshot was merged.
	Restored bool
	// Discarded is set when a stored snapshot existed but could not be
	// decoded.
	Discarded bool
	// AutoFinished lists the operations finished by the cascade.
	AutoFinished []string
	// Unscheduled is set when the order's schedule was cleared.
	Unscheduled bool

	Stats Stats
}

// Stats reports timing and size of an import.
type Stats struct {
	Duration      time.Duration
	SnapshotBytes int
	SnapshotHash  string
}
