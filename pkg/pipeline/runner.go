package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/routegraph/pkg/errors"
	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/observability"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/routing"
	"github.com/matzehuels/routegraph/pkg/snapshot"
	"github.com/matzehuels/routegraph/pkg/store"
)

// Runner imports documents against a snapshot store.
//
// Imports are serialized: the routing graphs of an order have a single
// writer, and the Runner is it.
type Runner struct {
	Store  store.Store
	Keyer  store.Keyer
	Logger *log.Logger
	// Backend labels store events, e.g. "file" or "redis".
	Backend string
	// TTL is passed to Store.Set; zero keeps snapshots forever.
	TTL time.Duration

	mu sync.Mutex
}

// NewRunner creates a runner with the given store and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If s is nil, a NullStore is used (nothing is persisted).
func NewRunner(s store.Store, keyer store.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = store.NewDefaultKeyer()
	}
	if s == nil {
		s = store.NewNullStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Store:   s,
		Keyer:   keyer,
		Logger:  logger,
		Backend: "default",
	}
}

// Import builds the document, merges it into the stored snapshot of its
// order and saves the result.
func (r *Runner) Import(ctx context.Context, doc *docio.Document, opts Options) (res *Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	hooks := observability.Import()
	hooks.OnImportStart(ctx, doc.Order)
	defer func() {
		n := 0
		if res != nil {
			n = len(res.Reconcile.Outcomes)
			res.Stats.Duration = time.Since(start)
		}
		hooks.OnImportComplete(ctx, doc.Order, n, time.Since(start), err)
	}()

	o, err := doc.Build()
	if err != nil {
		return nil, err
	}
	res = &Result{Order: o}
	logger := r.Logger.With("order", o.ExternalID())

	live := routing.NewCollection(o.ExternalID())
	if !opts.Fresh {
		stored, err := r.loadStored(ctx, o.ExternalID())
		switch {
		case err != nil && fatal(err):
			return nil, err
		case err != nil:
			logger.Warn("discarding stored snapshot", "err", err)
			res.Discarded = true
		case stored != nil:
			live = stored
			res.Restored = true
		}
	}

	res.Reconcile = live.Reconcile(o.Routings(), logTracker{logger: logger, order: o.ExternalID()})
	o.SetRoutings(live)
	for _, out := range res.Reconcile.Outcomes {
		hooks.OnRoutingReconciled(ctx, o.ExternalID(), out.ExternalID, out.Action.String())
		if out.Err != nil {
			logger.Warn("routing update rejected", "routing", out.ExternalID, "err", out.Err)
			continue
		}
		logger.Debug("reconciled routing", "routing", out.ExternalID, "action", out.Action)
	}

	if res.Reconcile.ScheduleInvalidated {
		hooks.OnScheduleInvalidated(ctx, o.ExternalID())
		if !opts.KeepSchedule {
			o.Unschedule()
			for _, rt := range live.Routings() {
				rt.ClearAnotherPathScheduled()
			}
			res.Unscheduled = true
		}
		logger.Warn("routing changes invalidate the schedule", "unscheduled", res.Unscheduled)
	}

	for _, op := range live.AutoFinishPredecessors() {
		res.AutoFinished = append(res.AutoFinished, op.ExternalID())
	}
	if len(res.AutoFinished) > 0 {
		hooks.OnAutoFinish(ctx, o.ExternalID(), len(res.AutoFinished))
		logger.Info("auto-finished operations", "operations", res.AutoFinished)
	}

	data, err := snapshot.Marshal(live)
	if err != nil {
		return nil, err
	}
	res.Stats.SnapshotBytes = len(data)
	res.Stats.SnapshotHash = store.Hash(data)

	if !opts.DryRun {
		if err := r.save(ctx, o.ExternalID(), data); err != nil {
			return nil, err
		}
	}

	logger.Info("imported order",
		"routings", live.Len(),
		"changed", res.Reconcile.Changed(),
		"restored", res.Restored,
		"bytes", len(data))
	return res, nil
}

// Load restores the stored collection of an order against the operations
// of doc without reconciling. It returns a NOT_FOUND error when nothing is
// stored.
func (r *Runner) Load(ctx context.Context, doc *docio.Document) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := doc.Build()
	if err != nil {
		return nil, err
	}
	data, ok, err := r.read(ctx, o.ExternalID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no snapshot stored for order %s", o.ExternalID())
	}
	c, err := snapshot.Unmarshal(data, o)
	if err != nil {
		return nil, err
	}
	o.SetRoutings(c)
	return o, nil
}

// Save writes the routings of o as its snapshot outside of an import.
// Operation state is not part of a snapshot.
func (r *Runner) Save(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := snapshot.Marshal(o.Routings())
	if err != nil {
		return err
	}
	return r.save(ctx, o.ExternalID(), data)
}

// Delete removes the stored snapshot of an order.
func (r *Runner) Delete(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.Store.Delete(ctx, r.Keyer.SnapshotKey(orderID)); err != nil {
		observability.Store().OnStoreError(ctx, r.Backend, "delete", err)
		return errors.Wrap(errors.ErrCodeStore, err, "delete snapshot of order %s", orderID)
	}
	return nil
}

// loadStored returns the stored collection bound to the operation facts
// it recorded, so operations dropped since the last import still take part
// in the diff. It returns nil, nil on a store miss.
func (r *Runner) loadStored(ctx context.Context, orderID string) (*routing.Collection, error) {
	data, ok, err := r.read(ctx, orderID)
	if err != nil || !ok {
		return nil, err
	}
	return snapshot.UnmarshalStored(data)
}

func (r *Runner) read(ctx context.Context, orderID string) ([]byte, bool, error) {
	hooks := observability.Store()
	data, ok, err := r.Store.Get(ctx, r.Keyer.SnapshotKey(orderID))
	if err != nil {
		hooks.OnStoreError(ctx, r.Backend, "get", err)
		return nil, false, errors.Wrap(errors.ErrCodeStore, err, "load snapshot of order %s", orderID)
	}
	if !ok {
		hooks.OnStoreMiss(ctx, r.Backend)
		return nil, false, nil
	}
	hooks.OnStoreHit(ctx, r.Backend)
	return data, true, nil
}

func (r *Runner) save(ctx context.Context, orderID string, data []byte) error {
	if err := r.Store.Set(ctx, r.Keyer.SnapshotKey(orderID), data, r.TTL); err != nil {
		observability.Store().OnStoreError(ctx, r.Backend, "set", err)
		return errors.Wrap(errors.ErrCodeStore, err, "save snapshot of order %s", orderID)
	}
	observability.Store().OnStoreSet(ctx, r.Backend, len(data))
	return nil
}

// fatal reports whether a load failure must abort the import. Store
// failures and snapshots written by a newer schema abort; a corrupt
// snapshot is discarded and replaced.
func fatal(err error) bool {
	return errors.Is(err, errors.ErrCodeStore) || errors.Is(err, errors.ErrCodeUnsupportedSchema)
}
