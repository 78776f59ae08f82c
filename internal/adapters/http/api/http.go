// Package api exposes the read-only HTTP surface of the tracker.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/battletrack/internal/app"
	"github.com/okian/battletrack/internal/domain/model"
)

// Dependencies is what the handlers need from the application. An
// interface bundle keeps this layer loosely coupled to internal/app.
type Dependencies interface {
	Leaderboard(ctx context.Context, limit, offset int) ([]model.User, error)
	QueueSnapshot(ctx context.Context, limit, offset int) ([]model.QueueEntry, error)
	Status(ctx context.Context) (app.Status, error)
}

// Server wires HTTP routes for the read-only API.
type Server struct {
	leaderboardHandler *LeaderboardHandler
	queueHandler       *QueueHandler
	statusHandler      *StatusHandler
	healthHandler      *HealthHandler
}

// NewServer creates the API server with all handlers.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		queueHandler:       NewQueueHandler(deps),
		statusHandler:      NewStatusHandler(deps),
		healthHandler:      NewHealthHandler(),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Instrument(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/leaderboard", Instrument(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/queue", Instrument(s.queueHandler.HandleGetQueue, "queue"))
	mux.HandleFunc("/status", Instrument(s.statusHandler.HandleGetStatus, "status"))
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
