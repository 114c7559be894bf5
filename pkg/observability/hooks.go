// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; main decides which
// backend receives them. The defaults are no-ops, so packages can be used
// without any instrumentation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetImportHooks(prom.New(prometheus.DefaultRegisterer))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Import().OnImportStart(ctx, order)
//	// ... reconcile ...
//	observability.Import().OnImportComplete(ctx, order, routings, duration, err)
//
// The Prometheus implementation lives in the prom subpackage.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Import Hooks
// =============================================================================

// ImportHooks receives events from the import pipeline.
type ImportHooks interface {
	OnImportStart(ctx context.Context, order string)
	OnImportComplete(ctx context.Context, order string, routings int, duration time.Duration, err error)

	// OnRoutingReconciled records the outcome of one routing, e.g. "patched".
	OnRoutingReconciled(ctx context.Context, order, routing, action string)
	// OnScheduleInvalidated records an import that discarded the schedule.
	OnScheduleInvalidated(ctx context.Context, order string)
	// OnAutoFinish records operations finished by the auto-finish cascade.
	OnAutoFinish(ctx context.Context, order string, finished int)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from snapshot stores.
type StoreHooks interface {
	OnStoreHit(ctx context.Context, backend string)
	OnStoreMiss(ctx context.Context, backend string)
	OnStoreSet(ctx context.Context, backend string, size int)
	OnStoreError(ctx context.Context, backend, op string, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request. route is the matched pattern.
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopImportHooks is a no-op implementation of ImportHooks.
type NoopImportHooks struct{}

func (NoopImportHooks) OnImportStart(context.Context, string) {}
func (NoopImportHooks) OnImportComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopImportHooks) OnRoutingReconciled(context.Context, string, string, string) {}
func (NoopImportHooks) OnScheduleInvalidated(context.Context, string)               {}
func (NoopImportHooks) OnAutoFinish(context.Context, string, int)                   {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreHit(context.Context, string)                  {}
func (NoopStoreHooks) OnStoreMiss(context.Context, string)                 {}
func (NoopStoreHooks) OnStoreSet(context.Context, string, int)             {}
func (NoopStoreHooks) OnStoreError(context.Context, string, string, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	importHooks ImportHooks = NoopImportHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetImportHooks registers custom import hooks.
// This should be called once at application startup before any import.
func SetImportHooks(h ImportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		importHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Import returns the registered import hooks.
func Import() ImportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return importHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	importHooks = NoopImportHooks{}
	storeHooks = NoopStoreHooks{}
	httpHooks = NoopHTTPHooks{}
}
