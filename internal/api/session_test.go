package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCreate(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	_, err := uuid.Parse(resp.SessionID)
	assert.NoError(t, err, "minted session keys are UUIDs")

	_, ok := ts.store.Get(resp.SessionID)
	assert.True(t, ok, "the session exists immediately")
}

func TestSessionStats(t *testing.T) {
	ts := newTestServer(t)
	ts.store.GetOrCreate("a")
	ts.store.GetOrCreate("b")

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 2}`, w.Body.String())
}

func TestSessionHistory(t *testing.T) {
	t.Run("existing session", func(t *testing.T) {
		ts := newTestServer(t)
		sess := ts.store.GetOrCreate("abc")
		sess.History.Add(ai.NewUserMessage(ai.NewTextPart("what tables exist?")))

		w := ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/abc/messages", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			SessionID string        `json:"sessionId"`
			History   []*ai.Message `json:"history"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "abc", resp.SessionID)
		require.Len(t, resp.History, 1)
		assert.Equal(t, "what tables exist?", resp.History[0].Text())
	})

	t.Run("unknown session", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(httptest.NewRequest(http.MethodGet, "/api/sessions/nope/messages", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error": "Session not found"}`, w.Body.String())
		assert.Zero(t, ts.store.Len(), "history lookup must not create sessions")
	})
}

func TestSessionDelete(t *testing.T) {
	t.Run("existing session", func(t *testing.T) {
		ts := newTestServer(t)
		ts.store.GetOrCreate("doomed")

		w := ts.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/doomed", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Zero(t, ts.store.Len())
	})

	t.Run("unknown session", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
