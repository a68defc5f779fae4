package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autopp/serverify/internal/httperr"
	"github.com/autopp/serverify/internal/model"
)

// SessionRecorder defines the recorder operations the control-plane needs.
type SessionRecorder interface {
	CreateSession(ctx context.Context, name string) error
	DeleteSession(ctx context.Context, name string) error
	GetSessionHistory(ctx context.Context, name string) ([]model.RequestLog, error)
}

// SessionHandler exposes the session control-plane: create, fetch history,
// delete.
type SessionHandler struct {
	Recorder SessionRecorder
}

type createSessionRequest struct {
	Session string `json:"session"`
}

// Create handles POST /session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !model.ValidSessionName(req.Session) {
		RespondError(w, http.StatusBadRequest, "session name should contains only alphanumeric, hyphen or underscore")
		return
	}

	if err := h.Recorder.CreateSession(r.Context(), req.Session); err != nil {
		if httperr.IsInvalidSession(err) {
			RespondError(w, http.StatusConflict, err.Error())
		} else {
			RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]string{"session": req.Session})
}

// Get handles GET /session/{name}, returning the session's recorded history.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	history, err := h.Recorder.GetSessionHistory(r.Context(), name)
	if err != nil {
		if httperr.IsInvalidSession(err) {
			RespondError(w, http.StatusNotFound, err.Error())
		} else {
			RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if history == nil {
		history = []model.RequestLog{}
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"histories": history})
}

// Delete handles DELETE /session/{name}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.Recorder.DeleteSession(r.Context(), name); err != nil {
		if httperr.IsInvalidSession(err) {
			RespondError(w, http.StatusNotFound, err.Error())
		} else {
			RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"session": name})
}
