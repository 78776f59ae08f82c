package habbo

// User is the public profile returned by GET /users?name=.
type User struct {
	UniqueID        string `json:"uniqueId"`
	Name            string `json:"name"`
	BouncerPlayerID string `json:"bouncerPlayerId"`
}

// MatchParticipant is one player's line in a match.
type MatchParticipant struct {
	GamePlayerID              string `json:"gamePlayerId"`
	GameScore                 int64  `json:"gameScore"`
	PlayerPlacement           int    `json:"playerPlacement"`
	TeamID                    int    `json:"teamId"`
	TeamPlacement             int    `json:"teamPlacement"`
	TimesStunned              int    `json:"timesStunned"`
	PowerUpPickups            int    `json:"powerUpPickups"`
	PowerUpActivations        int    `json:"powerUpActivations"`
	TilesCleaned              int    `json:"tilesCleaned"`
	TilesColoured             int    `json:"tilesColoured"`
	TilesStolen               int    `json:"tilesStolen"`
	TilesLocked               int    `json:"tilesLocked"`
	TilesColouredForOpponents int    `json:"tilesColouredForOpponents"`
}

// MatchMetadata identifies a match and its participants.
type MatchMetadata struct {
	MatchID              string   `json:"matchId"`
	ParticipantPlayerIDs []string `json:"participantPlayerIds"`
}

// MatchInfo carries the match outcome.
type MatchInfo struct {
	GameCreation int64              `json:"gameCreation"`
	GameDuration int64              `json:"gameDuration"`
	GameEnd      int64              `json:"gameEnd"`
	GameMode     string             `json:"gameMode"`
	MapID        int                `json:"mapId"`
	Ranked       bool               `json:"ranked"`
	Participants []MatchParticipant `json:"participants"`
}

// Match is the full detail for one match id.
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// Participant returns the participant entry for playerID, if present.
func (m *Match) Participant(playerID string) (MatchParticipant, bool) {
	for _, p := range m.Info.Participants {
		if p.GamePlayerID == playerID {
			return p, true
		}
	}
	return MatchParticipant{}, false
}
