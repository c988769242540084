package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/odds"
	"github.com/yourusername/podium/internal/ranker"
	"github.com/yourusername/podium/internal/simulation"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, simulation.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidRaceID),
		errors.Is(err, odds.ErrInvalidOdds):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNoScores):
		return http.StatusNotFound
	case errors.Is(err, ranker.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ranker.ErrRankerUnavailable), errors.Is(err, ranker.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("API request failed")
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
