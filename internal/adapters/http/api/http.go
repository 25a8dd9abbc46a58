// Package api exposes screening sessions over HTTP: caregiver controls for
// the running session, its live status, and the final risk assessment.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/neurolens/internal/app"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/session"
	"github.com/okian/neurolens/internal/session/module"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the session service.
type Dependencies interface {
	CreateSession(ctx context.Context, req model.SessionRequest) (string, error)
	Snapshot(ctx context.Context, id string) (model.SessionSnapshot, error)
	Start(ctx context.Context, id string) error
	CompleteEarly(ctx context.Context, id string) error
	Transcript(ctx context.Context, id, text string, final bool) error
	Retry(ctx context.Context, id string) error
	Skip(ctx context.Context, id string) error
	Result(ctx context.Context, id string) (model.RiskAssessment, error)
	Abandon(ctx context.Context, id string) error
}

// Server wires HTTP routes for the session API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	h := s.sessionsHandler
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /sessions", MetricsMiddleware(h.HandleCreate, "sessions_create"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(h.HandleSnapshot, "sessions_get"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(h.HandleAbandon, "sessions_delete"))
	mux.HandleFunc("POST /sessions/{id}/start", MetricsMiddleware(h.HandleStart, "sessions_start"))
	mux.HandleFunc("POST /sessions/{id}/complete", MetricsMiddleware(h.HandleComplete, "sessions_complete"))
	mux.HandleFunc("POST /sessions/{id}/transcript", MetricsMiddleware(h.HandleTranscript, "sessions_transcript"))
	mux.HandleFunc("POST /sessions/{id}/retry", MetricsMiddleware(h.HandleRetry, "sessions_retry"))
	mux.HandleFunc("POST /sessions/{id}/skip", MetricsMiddleware(h.HandleSkip, "sessions_skip"))
	mux.HandleFunc("GET /sessions/{id}/result", MetricsMiddleware(h.HandleResult, "sessions_result"))
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

// writeServiceError translates service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, module.ErrChildNameRequired):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotFinished), errors.Is(err, session.ErrNotActive):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
