package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/l1jgo/pooling/internal/pool"
)

type errorResponse struct {
	Error string `json:"error"`
}

type poolsResponse struct {
	Tick    uint64       `json:"tick"`
	Pooling bool         `json:"pooling"`
	Pools   []pool.Stats `json:"pools"`
}

type acceptedResponse struct {
	Queued  string `json:"queued"`
	Enabled *bool  `json:"enabled,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	snap := s.board.Load()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tick":   snap.Tick,
	})
}

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) {
	snap := s.board.Load()
	pools := snap.Pools
	if pools == nil {
		pools = []pool.Stats{}
	}
	writeJSON(w, http.StatusOK, poolsResponse{Tick: snap.Tick, Pooling: snap.Pooling, Pools: pools})
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	st, ok := s.board.Load().Find(kind)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown pool kind " + strconv.Quote(kind)})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if !s.enqueue(Command{Kind: CommandReload}) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "command queue full"})
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Queued: CommandReload.String()})
}

func (s *Server) setPooling(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "enabled must be true or false"})
		return
	}
	if !s.enqueue(Command{Kind: CommandSetPooling, Enabled: enabled}) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "command queue full"})
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Queued: CommandSetPooling.String(), Enabled: &enabled})
}
