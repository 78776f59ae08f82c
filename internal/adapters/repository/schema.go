package repository

// Schema is applied at open. The tables mirror the bot's long-lived
// layout; IF NOT EXISTS keeps reopening an existing database cheap.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	username           TEXT NOT NULL UNIQUE,
	bouncer_player_id  TEXT NOT NULL DEFAULT '',
	total_score        INTEGER NOT NULL DEFAULT 0,
	ranked_matches     INTEGER NOT NULL DEFAULT 0,
	non_ranked_matches INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS matches (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id   TEXT NOT NULL,
	user_id    INTEGER NOT NULL,
	game_score INTEGER NOT NULL,
	ranked     INTEGER NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id),
	UNIQUE(match_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_user ON matches(user_id);

CREATE TABLE IF NOT EXISTS queue (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	username     TEXT NOT NULL UNIQUE,
	requester_id TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL
);
`
