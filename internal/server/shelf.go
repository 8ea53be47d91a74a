package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"boardgame-shelf/internal/api"
	"boardgame-shelf/internal/domain"
	"boardgame-shelf/internal/middleware"
	"boardgame-shelf/internal/service"
	"boardgame-shelf/internal/store"

	"github.com/rs/zerolog"
)

// ShelfServer exposes the collection over JSON HTTP.
type ShelfServer struct {
	svc    *service.CollectionService
	store  *store.CollectionStore
	logger zerolog.Logger
}

func NewShelfServer(svc *service.CollectionService, st *store.CollectionStore, logger zerolog.Logger) *ShelfServer {
	return &ShelfServer{svc: svc, store: st, logger: logger}
}

// Routes registers the API endpoints on mux.
func (s *ShelfServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.Health)
	mux.HandleFunc("/api/collection/refresh", s.Refresh)
	mux.HandleFunc("/api/collection/watch", s.Watch)
	mux.HandleFunc("/api/collection", s.List)
}

func (s *ShelfServer) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type refreshRequest struct {
	Username string `json:"username"`
}

type refreshResponse struct {
	Games   int    `json:"games"`
	Warning string `json:"warning,omitempty"`
}

// Refresh runs a fetch cycle for the submitted username. An enrichment
// failure still answers 200 with a warning: the seeded collection is valid,
// just not fully enriched.
func (s *ShelfServer) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		s.writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}

	result, err := s.svc.Refresh(r.Context(), req.Username)
	if err != nil {
		if cerr, ok := api.AsCollectionError(err); ok {
			s.writeError(w, r, http.StatusBadGateway, cerr.Reason)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "refresh failed")
		return
	}

	s.writeJSON(w, http.StatusOK, refreshResponse{Games: result.Games, Warning: result.Warning})
}

type listResponse struct {
	Version uint64              `json:"version"`
	Games   []domain.GameRecord `json:"games"`
}

// List returns the snapshot filtered by ?min=&max=&mode=.
func (s *ShelfServer) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	playerRange, mode, err := parseFilterParams(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	games, err := s.svc.Games(playerRange, mode)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, listResponse{Version: s.store.Version(), Games: games})
}

// Watch pushes the filtered snapshot as newline-delimited JSON: one line
// immediately, then one per store change, until the client goes away.
func (s *ShelfServer) Watch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	playerRange, mode, err := parseFilterParams(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	changes, cancel := s.store.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	writeSnapshot := func() bool {
		games, err := s.svc.Games(playerRange, mode)
		if err != nil {
			return false
		}
		if err := encoder.Encode(listResponse{Version: s.store.Version(), Games: games}); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeSnapshot() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			if !writeSnapshot() {
				return
			}
		}
	}
}

func parseFilterParams(r *http.Request) (domain.PlayerRange, domain.FilterMode, error) {
	playerRange := domain.PlayerRange{Min: 1, Max: 8}

	if raw := r.URL.Query().Get("min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return playerRange, domain.BestOnly, fmt.Errorf("invalid value for min")
		}
		playerRange.Min = n
	}
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return playerRange, domain.BestOnly, fmt.Errorf("invalid value for max")
		}
		playerRange.Max = n
	}

	mode, err := domain.ParseFilterMode(r.URL.Query().Get("mode"))
	if err != nil {
		return playerRange, mode, err
	}
	return playerRange, mode, nil
}

func (s *ShelfServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *ShelfServer) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := map[string]string{"error": message}
	if reqID := middleware.GetRequestID(r.Context()); reqID != "" {
		body["requestId"] = reqID
	}
	s.writeJSON(w, status, body)
}
