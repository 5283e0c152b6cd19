// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/trafficrobot/internal/domain/model"
)

// TickRunner runs one tick. Implemented by the app service.
type TickRunner interface {
	Tick(ctx context.Context, req model.TickRequest) (model.TickResult, error)
}

// Server wires HTTP routes for the integration.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	tickHandler     *TickHandler
	manifestHandler *ManifestHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(runner TickRunner, statsProvider StatsProvider, manifest Manifest) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(statsProvider),
		statsHandler:    NewStatsHandler(statsProvider),
		tickHandler:     NewTickHandler(runner),
		manifestHandler: NewManifestHandler(manifest),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/tick", MetricsMiddleware(RecoverMiddleware(s.tickHandler.HandleTick), "tick"))
	mux.HandleFunc("/integration.json", MetricsMiddleware(s.manifestHandler.HandleManifest, "manifest"))
	mux.HandleFunc("/traffic-robot.json", MetricsMiddleware(s.manifestHandler.HandleManifest, "manifest"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
