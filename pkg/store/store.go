// Package store persists routing snapshots by key.
//
// A [Store] holds opaque byte values; the snapshot codec in
// [github.com/matzehuels/routegraph/pkg/snapshot] produces and consumes them.
// Backends:
//
//   - [NullStore] keeps nothing; every import starts from scratch.
//   - [FileStore] writes one file per key below a directory (CLI default).
//   - store/redis, store/postgres and store/mongo share snapshots between
//     processes.
//
// Keys are produced by a [Keyer] so that tenants can be isolated with
// [NewScopedKeyer].
package store

import (
	"context"
	"time"
)

// Store is a key/value store for snapshot bytes.
type Store interface {
	// Get returns the value for key. A missing or expired key is a miss
	// (ok == false), not an error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set stores data under key. A ttl of zero keeps the value forever.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates store keys.
type Keyer interface {
	// SnapshotKey is the key of the routing snapshot of an order.
	SnapshotKey(order string) string
}

// DefaultKeyer generates unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SnapshotKey returns "snapshot:<order>".
func (DefaultKeyer) SnapshotKey(order string) string { return "snapshot:" + order }

// ScopedKeyer prefixes every key of an inner keyer, e.g. per plant or tenant.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer uses the
// default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SnapshotKey(order string) string {
	return k.prefix + k.inner.SnapshotKey(order)
}
