// Package server exposes imported orders and their routings over HTTP.
package server

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/pipeline"
)

// maxBodyBytes bounds import documents.
const maxBodyBytes = 8 << 20

// Server serves the routing API. Imported orders are kept in memory; their
// routing snapshots are persisted by the runner's store.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger

	mu     sync.RWMutex
	orders map[string]*order.Order
}

// New creates a server importing through runner.
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		runner: runner,
		logger: logger,
		orders: make(map[string]*order.Order),
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", s.handleListOrders)
		r.Route("/{order}", func(r chi.Router) {
			r.Post("/import", s.handleImport)
			r.Delete("/", s.handleDeleteOrder)
			r.Post("/operations/{operation}/state", s.handleReportState)
			r.Get("/routings", s.handleListRoutings)
			r.Route("/routings/{routing}", func(r chi.Router) {
				r.Get("/levels", s.handleLevels)
				r.Get("/leaves", s.handleLeaves)
				r.Get("/roots", s.handleRoots)
				r.Get("/dot", s.handleDOT)
				r.Get("/svg", s.handleSVG)
			})
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Orders returns the ids of the imported orders, sorted.
func (s *Server) Orders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
