package api

import (
	"net/http"
)

// QueueEntryResponse is the row shape returned by GET /queue.
type QueueEntryResponse struct {
	Position int    `json:"position"`
	Username string `json:"username"`
}

// QueueHandler handles queue reads.
type QueueHandler struct {
	deps Dependencies
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(deps Dependencies) *QueueHandler {
	return &QueueHandler{deps: deps}
}

// HandleGetQueue handles GET /queue?limit=N&offset=M.
func (h *QueueHandler) HandleGetQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, offset, err := pagination(r.URL.Query(), 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entries, err := h.deps.QueueSnapshot(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	out := make([]QueueEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = QueueEntryResponse{Position: e.Position, Username: e.Username}
	}
	writeJSON(w, http.StatusOK, out)
}
