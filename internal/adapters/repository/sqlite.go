package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/battletrack/internal/domain/model"
)

const defaultBusyTimeout = 5 * time.Second

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	s := &SQLiteStore{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := fmt.Sprintf(
		"PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON; PRAGMA busy_timeout=%d;",
		s.busyTimeout.Milliseconds(),
	)
	if _, err := db.Exec(pragmas); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Normalize lowercases and trims a username, the canonical identity form.
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

const userColumns = "id, username, bouncer_player_id, total_score, ranked_matches, non_ranked_matches"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.BouncerPlayerID, &u.TotalScore, &u.RankedMatches, &u.NonRankedMatches)
	return u, err
}

// EnsureUser inserts the user if absent and returns the row either way.
func (s *SQLiteStore) EnsureUser(ctx context.Context, username string) (model.User, error) {
	username = Normalize(username)
	if username == "" {
		return model.User{}, errors.New("empty username")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (username) VALUES (?)`, username,
	); err != nil {
		return model.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return s.GetUser(ctx, username)
}

// GetUser looks up a user by normalized username.
func (s *SQLiteStore) GetUser(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, Normalize(username),
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SetBouncerID caches the external player id; an existing value wins.
func (s *SQLiteStore) SetBouncerID(ctx context.Context, userID int64, bouncerID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET bouncer_player_id = ? WHERE id = ? AND bouncer_player_id = ''`,
		bouncerID, userID,
	)
	if err != nil {
		return fmt.Errorf("set bouncer id: %w", err)
	}
	return nil
}

// ProcessedMatches returns the dedup ledger for a user.
func (s *SQLiteStore) ProcessedMatches(ctx context.Context, userID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id FROM matches WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("processed matches: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("processed matches: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("processed matches: %w", err)
	}
	return seen, nil
}

// RecordMatch writes the ledger row and the score delta in one transaction.
// Ranked matches move the total score and the ranked counter; non-ranked
// matches only bump their own counter. Deltas are signed and never clamped.
func (s *SQLiteStore) RecordMatch(ctx context.Context, m model.ProcessedMatch) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("record match: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO matches (match_id, user_id, game_score, ranked) VALUES (?, ?, ?, ?)`,
		m.MatchID, m.UserID, m.GameScore, boolToInt(m.Ranked),
	)
	if err != nil {
		return false, fmt.Errorf("record match: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record match: rows affected: %w", err)
	}
	if n == 0 {
		// Already in the ledger; the delta was applied when it was first seen.
		return false, nil
	}

	if m.Ranked {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET total_score = total_score + ?, ranked_matches = ranked_matches + 1 WHERE id = ?`,
			m.GameScore, m.UserID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET non_ranked_matches = non_ranked_matches + 1 WHERE id = ?`,
			m.UserID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("record match: apply delta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("record match: commit: %w", err)
	}
	return true, nil
}

// Leaderboard returns users by descending score, earliest row winning ties.
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY total_score DESC, id ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("leaderboard: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of tracked users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// PurgeUser removes the user and everything attached to them.
func (s *SQLiteStore) PurgeUser(ctx context.Context, username string) error {
	username = Normalize(username)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("purge user: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("purge user: lookup: %w", err)
	}

	for _, q := range []string{
		`DELETE FROM matches WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return fmt.Errorf("purge user: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE username = ?`, username); err != nil {
		return fmt.Errorf("purge user: %w", err)
	}
	if err := resequence(ctx, tx); err != nil {
		return fmt.Errorf("purge user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("purge user: commit: %w", err)
	}
	return nil
}

// Enqueue admits a job, returning the existing position for duplicates.
func (s *SQLiteStore) Enqueue(ctx context.Context, username, requesterID string) (int, bool, error) {
	username = Normalize(username)
	if username == "" {
		return 0, false, errors.New("empty username")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("enqueue: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var pos int
	err = tx.QueryRowContext(ctx, `SELECT position FROM queue WHERE username = ?`, username).Scan(&pos)
	if err == nil {
		return pos, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("enqueue: lookup: %w", err)
	}

	// Smallest free position. Positions are kept dense, so this is
	// normally len(queue)+1, but a hole is filled if one ever appears.
	rows, err := tx.QueryContext(ctx, `SELECT position FROM queue ORDER BY position`)
	if err != nil {
		return 0, false, fmt.Errorf("enqueue: positions: %w", err)
	}
	taken := make(map[int]struct{})
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, false, fmt.Errorf("enqueue: positions: %w", err)
		}
		taken[p] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, false, fmt.Errorf("enqueue: positions: %w", err)
	}
	pos = 1
	for {
		if _, used := taken[pos]; !used {
			break
		}
		pos++
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO queue (username, requester_id, position) VALUES (?, ?, ?)`,
		username, requesterID, pos,
	); err != nil {
		return 0, false, fmt.Errorf("enqueue: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("enqueue: commit: %w", err)
	}
	return pos, true, nil
}

// NextInQueue returns the head of the queue without removing it.
func (s *SQLiteStore) NextInQueue(ctx context.Context) (model.QueueEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, requester_id, position FROM queue ORDER BY position LIMIT 1`,
	)
	var e model.QueueEntry
	err := row.Scan(&e.ID, &e.Username, &e.RequesterID, &e.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return model.QueueEntry{}, ErrQueueEmpty
	}
	if err != nil {
		return model.QueueEntry{}, fmt.Errorf("next in queue: %w", err)
	}
	return e, nil
}

// RemoveFromQueue deletes the entry and closes the position gap.
func (s *SQLiteStore) RemoveFromQueue(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove from queue: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove from queue: %w", err)
	}
	if err := resequence(ctx, tx); err != nil {
		return fmt.Errorf("remove from queue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("remove from queue: commit: %w", err)
	}
	return nil
}

// resequence rewrites positions into a dense 1..N run, keeping order.
func resequence(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM queue ORDER BY position`)
	if err != nil {
		return fmt.Errorf("resequence: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("resequence: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("resequence: %w", err)
	}

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE queue SET position = ? WHERE id = ?`, i+1, id,
		); err != nil {
			return fmt.Errorf("resequence: %w", err)
		}
	}
	return nil
}

// QueueLen returns the number of pending entries.
func (s *SQLiteStore) QueueLen(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue len: %w", err)
	}
	return n, nil
}

// ListQueue returns pending entries ordered by position.
func (s *SQLiteStore) ListQueue(ctx context.Context, limit, offset int) ([]model.QueueEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, requester_id, position FROM queue ORDER BY position LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		var e model.QueueEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.RequesterID, &e.Position); err != nil {
			return nil, fmt.Errorf("list queue: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
