// Package server exposes the aggregate to the dashboard frontend as a
// small JSON API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"boundary-tracker/internal/domain"
	"boundary-tracker/internal/service"

	"github.com/rs/zerolog"
)

type BoundaryServer struct {
	ingestSvc *service.IngestService
	statsSvc  *service.StatsService
	logger    zerolog.Logger
}

func NewBoundaryServer(ingestSvc *service.IngestService, statsSvc *service.StatsService, logger zerolog.Logger) *BoundaryServer {
	return &BoundaryServer{ingestSvc: ingestSvc, statsSvc: statsSvc, logger: logger}
}

// Routes registers every endpoint on a fresh mux.
func (s *BoundaryServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/seasons", s.handleSeasons)
	mux.HandleFunc("GET /api/v1/outcomes", s.handleOutcomes)
	mux.HandleFunc("GET /api/v1/outcomes/compare", s.handleCompare)
	mux.HandleFunc("GET /api/v1/totals", s.handleTotals)
	mux.HandleFunc("POST /api/v1/ingest", s.handleIngest)
	return mux
}

func (s *BoundaryServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *BoundaryServer) handleSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.statsSvc.Seasons(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if seasons == nil {
		seasons = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"seasons": seasons})
}

func (s *BoundaryServer) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	season, err := intParam(r, "season")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	boundary, err := boundaryParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.statsSvc.Distribution(r.Context(), season, boundary)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.AggregateRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"season":        season,
		"boundary_type": boundary,
		"outcomes":      rows,
	})
}

func (s *BoundaryServer) handleCompare(w http.ResponseWriter, r *http.Request) {
	seasonA, err := intParam(r, "season_a")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seasonB, err := intParam(r, "season_b")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	boundary, err := boundaryParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comparison, err := s.statsSvc.Compare(r.Context(), seasonA, seasonB, boundary)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (s *BoundaryServer) handleTotals(w http.ResponseWriter, r *http.Request) {
	season, err := intParam(r, "season")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := s.statsSvc.Totals(r.Context(), season)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if totals == nil {
		writeError(w, http.StatusNotFound, "season not found")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *BoundaryServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"

	run, err := s.ingestSvc.Run(r.Context(), refresh)
	if err != nil {
		var dataErr *domain.DataError
		if errors.As(err, &dataErr) {
			writeError(w, http.StatusUnprocessableEntity, dataErr.Error())
			return
		}
		s.serverError(w, r, err)
		return
	}

	resp := map[string]any{"status": "ok"}
	if run != nil {
		resp["run_id"] = run.ID
		resp["deliveries"] = run.Deliveries
		resp["boundaries"] = run.Boundaries
		resp["skipped"] = run.Skipped
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *BoundaryServer) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func boundaryParam(r *http.Request) (int, error) {
	boundary, err := intParam(r, "boundary")
	if err != nil {
		return 0, err
	}
	if boundary != 4 && boundary != 6 {
		return 0, errors.New("boundary must be 4 or 6")
	}
	return boundary, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(name + " query parameter is required")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
