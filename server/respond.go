package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// writeError maps domain errors onto HTTP statuses. Backend failures
// surface as 502 so callers can tell "the bakery API is down" apart
// from storefront bugs.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidQuantity), errors.Is(err, core.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyCart):
		status = http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrRequestFailed),
		errors.Is(err, core.ErrConnectionFailed),
		errors.Is(err, core.ErrMaxRetriesExceeded),
		errors.Is(err, core.ErrCircuitBreakerOpen):
		status = http.StatusBadGateway
	case errors.Is(err, core.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &core.StoreError{
			Op:      "server.decode",
			Message: "invalid request body",
			Err:     core.ErrInvalidRequest,
		}
	}
	return nil
}
