package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 16

// SessionsHandler serves /sessions.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type createResponse struct {
	ID string `json:"id"`
}

type ackResponse struct {
	Status string `json:"status"`
}

type transcriptRequest struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := h.deps.CreateSession(r.Context(), req.SessionRequest)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	writeJSON(w, http.StatusCreated, createResponse{ID: id})
}

// HandleSnapshot handles GET /sessions/{id}.
func (h *SessionsHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleResult handles GET /sessions/{id}/result.
func (h *SessionsHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAbandon handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Abandon(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStart handles POST /sessions/{id}/start.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.ack(w, h.deps.Start(r.Context(), r.PathValue("id")))
}

// HandleComplete handles POST /sessions/{id}/complete.
func (h *SessionsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.ack(w, h.deps.CompleteEarly(r.Context(), r.PathValue("id")))
}

// HandleRetry handles POST /sessions/{id}/retry.
func (h *SessionsHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	h.ack(w, h.deps.Retry(r.Context(), r.PathValue("id")))
}

// HandleSkip handles POST /sessions/{id}/skip.
func (h *SessionsHandler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	h.ack(w, h.deps.Skip(r.Context(), r.PathValue("id")))
}

// HandleTranscript handles POST /sessions/{id}/transcript.
func (h *SessionsHandler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeServiceError(w, fmt.Errorf("%w: missing text", ErrBadRequest))
		return
	}
	h.ack(w, h.deps.Transcript(r.Context(), r.PathValue("id"), req.Text, req.Final))
}

func (h *SessionsHandler) ack(w http.ResponseWriter, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
