package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbchat/dbchat/internal/testutil"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]string{"key": "value"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, w.Header().Get("Content-Length"))
		assert.JSONEq(t, `{"key": "value"}`, w.Body.String())
	})

	t.Run("unencodable value falls back to 500", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]any{"fn": func() {}})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Header().Get("Content-Type"), "application/json",
			"headers must not claim JSON after an encode failure")
	})
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "Invalid request", testutil.DiscardLogger())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error": "Invalid request"}`, w.Body.String())
}
