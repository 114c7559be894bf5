package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/routegraph/pkg/errors"
	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/pipeline"
	"github.com/matzehuels/routegraph/pkg/render"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// =============================================================================
// Response Types
// =============================================================================

type routingSummary struct {
	ID         string     `json:"id"`
	UUID       string     `json:"uuid"`
	Name       string     `json:"name"`
	Preference int        `json:"preference"`
	AutoUse    string     `json:"auto_use"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidTo    *time.Time `json:"valid_to,omitempty"`
	Default    bool       `json:"default"`
	Active     bool       `json:"active"`
	Nodes      int        `json:"nodes"`
	Edges      int        `json:"edges"`
}

type levelEntry struct {
	Operation string `json:"operation"`
	Level     int    `json:"level"`
	State     string `json:"state"`
	Scheduled bool   `json:"scheduled"`
}

type outcomeEntry struct {
	Routing      string   `json:"routing"`
	Action       string   `json:"action"`
	Cause        string   `json:"cause,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type importResponse struct {
	Order               string         `json:"order"`
	Outcomes            []outcomeEntry `json:"outcomes"`
	ScheduleInvalidated bool           `json:"schedule_invalidated"`
	Unscheduled         bool           `json:"unscheduled"`
	Restored            bool           `json:"restored"`
	AutoFinished        []string       `json:"auto_finished,omitempty"`
	SnapshotHash        string         `json:"snapshot_hash"`
}

type stateRequest struct {
	State routing.ProductionState `json:"state"`
}

type stateResponse struct {
	Operation    string   `json:"operation"`
	State        string   `json:"state"`
	AutoFinished []string `json:"auto_finished"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"orders": s.Orders()})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order")
	format, err := requestFormat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	doc, err := docio.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes), format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if doc.Order == "" {
		doc.Order = orderID
	}
	if doc.Order != orderID {
		s.writeError(w, errors.Invalid(errors.ErrCodeInvalidInput, "order", doc.Order,
			"document describes a different order than %s", orderID))
		return
	}

	opts := pipeline.Options{
		DryRun:       queryBool(r, "dry_run"),
		Fresh:        queryBool(r, "fresh"),
		KeepSchedule: queryBool(r, "keep_schedule"),
	}
	res, err := s.runner.Import(r.Context(), doc, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !opts.DryRun {
		s.mu.Lock()
		s.orders[orderID] = res.Order
		s.mu.Unlock()
	}

	resp := importResponse{
		Order:               orderID,
		Outcomes:            make([]outcomeEntry, 0, len(res.Reconcile.Outcomes)),
		ScheduleInvalidated: res.Reconcile.ScheduleInvalidated,
		Unscheduled:         res.Unscheduled,
		Restored:            res.Restored,
		AutoFinished:        res.AutoFinished,
		SnapshotHash:        res.Stats.SnapshotHash,
	}
	for _, o := range res.Reconcile.Outcomes {
		e := outcomeEntry{Routing: o.ExternalID, Action: o.Action.String(), Descriptions: o.Diff.Descriptions}
		if o.Diff.RoutingChanged {
			e.Cause = o.Diff.Cause.String()
		}
		if o.Err != nil {
			e.Error = errors.UserMessage(o.Err)
		}
		resp.Outcomes = append(resp.Outcomes, e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order")
	if err := s.runner.Delete(r.Context(), orderID); err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.Lock()
	delete(s.orders, orderID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.lookupLocked(chi.URLParam(r, "order"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	opID := chi.URLParam(r, "operation")
	finished, err := o.ReportState(opID, req.State)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.runner.Save(r.Context(), o); err != nil {
		s.writeError(w, err)
		return
	}

	resp := stateResponse{Operation: opID, State: req.State.String(), AutoFinished: make([]string, 0, len(finished))}
	for _, op := range finished {
		resp.AutoFinished = append(resp.AutoFinished, op.ExternalID())
	}
	if len(finished) > 0 {
		s.logger.Info("auto-finished operations", "order", o.ExternalID(), "operations", resp.AutoFinished)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRoutings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, err := s.lookupLocked(chi.URLParam(r, "order"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	c := o.Routings()
	def, active := c.Default(), c.Active()
	out := make([]routingSummary, 0, c.Len())
	for _, rt := range c.Routings() {
		sum := routingSummary{
			ID:         rt.ExternalID(),
			UUID:       rt.ID().String(),
			Name:       rt.Name(),
			Preference: rt.Preference(),
			AutoUse:    rt.AutoUse().String(),
			Default:    rt == def,
			Active:     rt == active,
			Nodes:      rt.NodeCount(),
			Edges:      rt.EdgeCount(),
		}
		if from := rt.ValidFrom(); !from.Equal(routing.MinTime) {
			sum.ValidFrom = &from
		}
		if to := rt.ValidTo(); !to.Equal(routing.MaxTime) {
			sum.ValidTo = &to
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o.ExternalID(), "routings": out})
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	s.withRouting(w, r, func(rt *routing.Routing) {
		levels, err := rt.Levels()
		if err != nil {
			s.writeError(w, err)
			return
		}
		schedulable := queryBool(r, "schedulable")
		out := make([]levelEntry, 0, len(levels))
		for _, ln := range levels {
			op := ln.Node.Operation()
			if schedulable && !routing.Schedulable(op) {
				continue
			}
			out = append(out, levelEntry{
				Operation: op.ExternalID(),
				Level:     ln.Level,
				State:     op.State().String(),
				Scheduled: op.Scheduled(),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"routing": rt.ExternalID(), "levels": out})
	})
}

func (s *Server) handleLeaves(w http.ResponseWriter, r *http.Request) {
	s.withRouting(w, r, func(rt *routing.Routing) {
		writeJSON(w, http.StatusOK, map[string]any{"routing": rt.ExternalID(), "leaves": rt.Leaves().ExternalIDs()})
	})
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	s.withRouting(w, r, func(rt *routing.Routing) {
		writeJSON(w, http.StatusOK, map[string]any{"routing": rt.ExternalID(), "roots": rt.Roots().ExternalIDs()})
	})
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	s.withRouting(w, r, func(rt *routing.Routing) {
		dot, err := render.ToDOT(rt, render.Options{Detailed: queryBool(r, "detailed")})
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
	})
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	s.withRouting(w, r, func(rt *routing.Routing) {
		dot, err := render.ToDOT(rt, render.Options{Detailed: queryBool(r, "detailed")})
		if err != nil {
			s.writeError(w, err)
			return
		}
		svg, err := render.RenderSVG(r.Context(), dot)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	})
}

// =============================================================================
// Helpers
// =============================================================================

// withRouting resolves the {order} and {routing} parameters under the read
// lock and calls fn while the lock is held.
func (s *Server) withRouting(w http.ResponseWriter, r *http.Request, fn func(*routing.Routing)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, err := s.lookupLocked(chi.URLParam(r, "order"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := chi.URLParam(r, "routing")
	var rt *routing.Routing
	if id == "default" {
		rt = o.Routings().Default()
	} else {
		rt, _ = o.Routings().Routing(id)
	}
	if rt == nil {
		s.writeError(w, errors.Invalid(errors.ErrCodeRoutingNotFound, "routing", id,
			"order %s has no such routing", o.ExternalID()))
		return
	}
	fn(rt)
}

func (s *Server) lookupLocked(orderID string) (*order.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "order %s has not been imported", orderID)
	}
	return o, nil
}

// requestFormat picks the document codec from ?format= or the Content-Type
// header, defaulting to JSON.
func requestFormat(r *http.Request) (docio.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return docio.ParseFormat(f)
	}
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "yaml"):
		return docio.YAML, nil
	case strings.Contains(ct, "toml"):
		return docio.TOML, nil
	}
	return docio.JSON, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.IsValidation(err) {
			return err
		}
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body")
	}
	return nil
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
