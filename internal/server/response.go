package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/routegraph/pkg/errors"
)

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
	Field string      `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= 500 {
		s.logger.Error("request failed", "err", err)
	}
	resp := errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)}
	var e *errors.Error
	if errors.As(err, &e) {
		resp.Field = e.Field
	}
	writeJSON(w, status, resp)
}

func statusOf(err error) int {
	switch code := errors.GetCode(err); {
	case code == errors.ErrCodeNotFound, code == errors.ErrCodeRoutingNotFound:
		return http.StatusNotFound
	case code == errors.ErrCodeStore, code == errors.ErrCodeNetwork:
		return http.StatusServiceUnavailable
	case code == errors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	case errors.IsValidation(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
