package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dbchat/dbchat/internal/session"
)

// sessionHandler exposes session management endpoints.
// Session keys from chat clients are opaque strings; createSession mints
// server-generated keys for clients that want them.
type sessionHandler struct {
	logger *slog.Logger
	store  session.Store
}

// createdSession is the POST /api/sessions body.
type createdSession struct {
	SessionID string `json:"sessionId"`
}

// sessionStats is the GET /api/sessions body.
type sessionStats struct {
	Count int `json:"count"`
}

// create handles POST /api/sessions: mints a fresh session key and creates
// the (empty) session behind it.
func (sh *sessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	id, err := uuid.NewV7()
	if err != nil {
		sh.logger.Error("generating session id", "error", err)
		WriteError(w, http.StatusInternalServerError, "An error occurred", sh.logger)
		return
	}

	sess := sh.store.GetOrCreate(id.String())
	sh.logger.Info("session created", "session_id", sess.ID)
	WriteJSON(w, http.StatusCreated, createdSession{SessionID: sess.ID})
}

// stats handles GET /api/sessions: live session count.
func (sh *sessionHandler) stats(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, sessionStats{Count: sh.store.Len()})
}

// history handles GET /api/sessions/{id}/messages.
func (sh *sessionHandler) history(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := sh.store.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found", sh.logger)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"history":   sess.History.Messages(),
	})
}

// delete handles DELETE /api/sessions/{id}.
func (sh *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := sh.store.Delete(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "Session not found", sh.logger)
			return
		}
		sh.logger.Error("deleting session", "session_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "An error occurred", sh.logger)
		return
	}
	sh.logger.Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}
