package api

import (
	"log/slog"
	"net/http"

	"github.com/dbchat/dbchat/internal/tools"
)

// toolsHandler serves the capability listing: tool names, descriptions,
// and input schemas. Descriptors are computed once at construction.
type toolsHandler struct {
	logger      *slog.Logger
	descriptors []tools.Descriptor
}

// list handles GET /api/tools.
func (th *toolsHandler) list(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"tools": th.descriptors})
}
