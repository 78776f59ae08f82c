// Package model contains domain models passed between layers.
package model

// User is one tracked Battleball player.
type User struct {
	ID               int64
	Username         string // case-normalized, unique
	BouncerPlayerID  string // external player id, cached once resolved
	TotalScore       int64  // cumulative ranked score, signed
	RankedMatches    int64
	NonRankedMatches int64
}

// QueueEntry is one pending update job.
type QueueEntry struct {
	ID          int64
	Username    string
	RequesterID string // Discord user id of whoever asked; empty for scheduled refreshes
	Position    int    // 1-based, dense
}

// ProcessedMatch is a row of the dedup ledger: match X already scored for user Y.
type ProcessedMatch struct {
	MatchID   string
	UserID    int64
	GameScore int64
	Ranked    bool
}
