package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/timescale/TimescaleDB-HybridSearch/internal/metrics"
	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`

	// Optional per-request overrides; config defaults apply when nil.
	VectorWeight *float64 `json:"vector_weight,omitempty"`
	TextWeight   *float64 `json:"text_weight,omitempty"`

	// TimeWindow only applies to the temporal operation, e.g. "12 months".
	TimeWindow string `json:"time_window,omitempty"`
}

func (s *Server) decodeSearchRequest(w http.ResponseWriter, r *http.Request) (searchRequest, bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Limit <= 0 {
		req.Limit = s.searchCfg.DefaultLimit
	}
	return req, true
}

func (s *Server) weights(req searchRequest) search.Weights {
	w := search.Weights{
		Vector: s.searchCfg.VectorWeight,
		Text:   s.searchCfg.TextWeight,
	}
	if req.VectorWeight != nil {
		w.Vector = *req.VectorWeight
	}
	if req.TextWeight != nil {
		w.Text = *req.TextWeight
	}
	return w
}

func (s *Server) embedQuery(w http.ResponseWriter, r *http.Request, query string) ([]float32, bool) {
	vec, err := s.embedder.EmbedText(r.Context(), query)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "query embedding failed")
		return nil, false
	}
	return vec, true
}

func (s *Server) respondSearch(w http.ResponseWriter, resp *search.SearchResponse, err error) {
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidTimeWindow),
			errors.Is(err, search.ErrInvalidVectorDimension):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, search.ErrStorageUnavailable):
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		default:
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	metrics.ObserveSearch(resp.Method, resp.ElapsedMs, len(resp.Results))
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}
	vec, ok := s.embedQuery(w, r, req.Query)
	if !ok {
		return
	}
	resp, err := s.engine.VectorSearch(r.Context(), vec, req.Limit)
	s.respondSearch(w, resp, err)
}

func (s *Server) handleTextSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.engine.TextSearch(r.Context(), req.Query, req.Limit)
	s.respondSearch(w, resp, err)
}

func (s *Server) handleHybridSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}
	vec, ok := s.embedQuery(w, r, req.Query)
	if !ok {
		return
	}
	resp, err := s.engine.HybridSearch(r.Context(), req.Query, vec, req.Limit, s.weights(req))
	s.respondSearch(w, resp, err)
}

func (s *Server) handleTemporalSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}
	window := req.TimeWindow
	if window == "" {
		window = s.searchCfg.DefaultTimeWindow
	}
	vec, ok := s.embedQuery(w, r, req.Query)
	if !ok {
		return
	}
	resp, err := s.engine.HybridTemporalSearch(r.Context(), req.Query, vec, window, req.Limit, s.weights(req))
	s.respondSearch(w, resp, err)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.engine.GetDocumentByID(r.Context(), id)
	if err != nil {
		s.logger.Error("get document failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	if doc == nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListTrapSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.engine.ListTrapSets(r.Context())
	if err != nil {
		s.logger.Error("list trap sets failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"trap_sets": sets})
}

func (s *Server) handleGetTrapQuartet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	quartet, err := s.engine.GetTrapQuartet(r.Context(), name)
	if err != nil {
		s.logger.Error("get trap quartet failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	if len(quartet) == 0 {
		s.respondError(w, http.StatusNotFound, "trap set not found")
		return
	}
	s.respondJSON(w, http.StatusOK, quartet)
}

func (s *Server) handleTypeahead(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		s.respondError(w, http.StatusNotFound, "typeahead not configured")
		return
	}
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = s.searchCfg.DefaultLimit
	}
	hits, err := s.suggester.Typeahead(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("typeahead failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"suggestions": hits})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
