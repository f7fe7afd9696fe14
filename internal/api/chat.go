package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/dbchat/dbchat/internal/chat"
	"github.com/dbchat/dbchat/internal/session"
)

// maxChatBodyBytes bounds the request body to keep a single request from
// exhausting memory.
const maxChatBodyBytes = 1 << 20 // 1 MB

// invalidRequestMessage is the exact error body clients receive for any
// malformed chat request.
const invalidRequestMessage = "Invalid request"

// chatRequest is the POST /chat body.
type chatRequest struct {
	SessionID string       `json:"sessionId"`
	Message   *chatMessage `json:"message"`
}

// chatMessage is the inbound user message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the 200 body: the final answer plus the items this turn
// produced. The full accumulated history stays server-side; clients fetch
// it via GET /api/sessions/{id}/messages.
type chatResponse struct {
	Result  string        `json:"result"`
	History []*ai.Message `json:"history"`
}

// chatHandler runs conversation turns over HTTP.
type chatHandler struct {
	logger   *slog.Logger
	agent    *chat.Agent
	sessions session.Store
}

// send handles POST /chat.
//
// Validation happens before any session lookup: a malformed request must
// not create a session or touch an existing one.
func (ch *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, invalidRequestMessage, ch.logger)
		return
	}
	if !validChatRequest(req) {
		WriteError(w, http.StatusBadRequest, invalidRequestMessage, ch.logger)
		return
	}

	sess := ch.sessions.GetOrCreate(req.SessionID)

	resp, err := ch.agent.Execute(r.Context(), sess, req.Message.Content)
	if err != nil {
		ch.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		if errors.Is(err, chat.ErrTurnLimit) {
			WriteError(w, http.StatusInternalServerError, "Turn limit exceeded", ch.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "An error occurred", ch.logger)
		return
	}

	WriteJSON(w, http.StatusOK, chatResponse{
		Result:  resp.FinalText,
		History: resp.NewItems,
	})
}

// validChatRequest checks the presence of every required field:
// sessionId, message, message.role, message.content.
func validChatRequest(req chatRequest) bool {
	if strings.TrimSpace(req.SessionID) == "" {
		return false
	}
	if req.Message == nil {
		return false
	}
	if strings.TrimSpace(req.Message.Role) == "" {
		return false
	}
	if strings.TrimSpace(req.Message.Content) == "" {
		return false
	}
	return true
}
