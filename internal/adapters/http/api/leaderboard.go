package api

import (
	"net/http"
)

const defaultLeaderboardLimit = 10

// LeaderboardEntry is the row shape returned by GET /leaderboard.
type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	Username         string `json:"username"`
	TotalScore       int64  `json:"total_score"`
	RankedMatches    int64  `json:"ranked_matches"`
	NonRankedMatches int64  `json:"non_ranked_matches"`
}

// LeaderboardHandler handles leaderboard reads.
type LeaderboardHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N&offset=M.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, offset, err := pagination(r.URL.Query(), defaultLeaderboardLimit, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	users, err := h.deps.Leaderboard(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:             offset + i + 1,
			Username:         u.Username,
			TotalScore:       u.TotalScore,
			RankedMatches:    u.RankedMatches,
			NonRankedMatches: u.NonRankedMatches,
		}
	}
	writeJSON(w, http.StatusOK, entries)
}
