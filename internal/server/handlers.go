package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/results"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth reports liveness.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSimulationStatus reports where the run is.
// GET /api/simulation/status
func (s *Server) handleSimulationStatus(w http.ResponseWriter, r *http.Request) {
	if s.sim == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no simulation configured")
		return
	}
	s.writeJSON(w, http.StatusOK, s.sim.Status())
}

// handleSimulationEvents returns the most recent lifecycle events.
// GET /api/simulation/events?limit=50
func (s *Server) handleSimulationEvents(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no event recorder configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.recorder.Recent(limit))
}

// handleResultsYears lists the simulated years with stored results.
// GET /api/results/years
func (s *Server) handleResultsYears(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no results store configured")
		return
	}
	years, err := s.results.Years()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list result years")
		s.writeError(w, http.StatusInternalServerError, "failed to list years")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]int{"years": years})
}

// handleResultsYear returns one year's summary.
// GET /api/results/years/{year}
func (s *Server) handleResultsYear(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	if s.results == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no results store configured")
		return
	}
	summary, err := s.results.Year(year)
	if errors.Is(err, results.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "no results for year")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Int("year", year).Msg("Failed to load year results")
		s.writeError(w, http.StatusInternalServerError, "failed to load year")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleResultsCommands returns the commands emitted in one year.
// GET /api/results/years/{year}/commands
func (s *Server) handleResultsCommands(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	if s.results == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no results store configured")
		return
	}
	commands, err := s.results.Commands(year)
	if err != nil {
		s.log.Error().Err(err).Int("year", year).Msg("Failed to load commands")
		s.writeError(w, http.StatusInternalServerError, "failed to load commands")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"year": year, "commands": commands})
}

func (s *Server) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "year must be an integer")
		return 0, false
	}
	return year, true
}
