// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/routegraph/pkg/observability"
)

// Hooks records import, store and HTTP events as Prometheus metrics.
type Hooks struct {
	ImportsTotal           *prometheus.CounterVec
	ImportDuration         prometheus.Histogram
	RoutingsReconciled     *prometheus.CounterVec
	SchedulesInvalidated   prometheus.Counter
	OperationsAutoFinished prometheus.Counter

	StoreRequests *prometheus.CounterVec
	StoreBytes    *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		ImportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegraph_imports_total",
			Help: "Total number of order imports, labelled by status.",
		}, []string{"status"}),

		ImportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "routegraph_import_duration_ms",
			Help:    "Import and reconcile latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),

		RoutingsReconciled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegraph_routings_reconciled_total",
			Help: "Total number of reconciled routings, labelled by action.",
		}, []string{"action"}),

		SchedulesInvalidated: f.NewCounter(prometheus.CounterOpts{
			Name: "routegraph_schedules_invalidated_total",
			Help: "Total number of imports whose changes discarded the schedule.",
		}),

		OperationsAutoFinished: f.NewCounter(prometheus.CounterOpts{
			Name: "routegraph_operations_auto_finished_total",
			Help: "Total number of operations finished by the auto-finish cascade.",
		}),

		StoreRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegraph_store_requests_total",
			Help: "Total number of snapshot store lookups, labelled by backend and result.",
		}, []string{"backend", "result"}),

		StoreBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegraph_store_written_bytes_total",
			Help: "Total snapshot bytes written, labelled by backend.",
		}, []string{"backend"}),

		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegraph_store_errors_total",
			Help: "Total number of failed store operations, labelled by backend and operation.",
		}, []string{"backend", "op"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegraph_http_requests_total",
			Help: "Total number of API requests, labelled by method, route and status.",
		}, []string{"method", "route", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "routegraph_http_request_duration_ms",
			Help:    "API request latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"method", "route"}),
	}
}

// Register installs h as the import, store and HTTP hooks.
func (h *Hooks) Register() {
	observability.SetImportHooks(h)
	observability.SetStoreHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *Hooks) OnImportStart(context.Context, string) {}

func (h *Hooks) OnImportComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.ImportsTotal.WithLabelValues(status).Inc()
	h.ImportDuration.Observe(float64(d.Microseconds()) / 1000)
}

func (h *Hooks) OnRoutingReconciled(_ context.Context, _, _, action string) {
	h.RoutingsReconciled.WithLabelValues(action).Inc()
}

func (h *Hooks) OnScheduleInvalidated(context.Context, string) { h.SchedulesInvalidated.Inc() }

func (h *Hooks) OnAutoFinish(_ context.Context, _ string, finished int) {
	h.OperationsAutoFinished.Add(float64(finished))
}

func (h *Hooks) OnStoreHit(_ context.Context, backend string) {
	h.StoreRequests.WithLabelValues(backend, "hit").Inc()
}

func (h *Hooks) OnStoreMiss(_ context.Context, backend string) {
	h.StoreRequests.WithLabelValues(backend, "miss").Inc()
}

func (h *Hooks) OnStoreSet(_ context.Context, backend string, size int) {
	h.StoreBytes.WithLabelValues(backend).Add(float64(size))
}

func (h *Hooks) OnStoreError(_ context.Context, backend, op string, _ error) {
	h.StoreErrors.WithLabelValues(backend, op).Inc()
}

func (h *Hooks) OnRequest(context.Context, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.HTTPDuration.WithLabelValues(method, route).Observe(float64(d.Microseconds()) / 1000)
}

var (
	_ observability.ImportHooks = (*Hooks)(nil)
	_ observability.StoreHooks  = (*Hooks)(nil)
	_ observability.HTTPHooks   = (*Hooks)(nil)
)
