// Package repository defines the persistent store interface and errors.
package repository

import (
	"context"

	"github.com/okian/battletrack/internal/domain/model"
)

// Store provides durable access to users, the dedup ledger and the queue.
//
// RecordMatch is the only write that touches two tables at once; it must
// commit the ledger row and the score delta as a single transaction so a
// crash can never leave one without the other.
type Store interface {
	// EnsureUser inserts the user if absent and returns the row either way.
	// The username is case-normalized before the lookup.
	EnsureUser(ctx context.Context, username string) (model.User, error)

	// GetUser returns ErrUserNotFound for unknown usernames.
	GetUser(ctx context.Context, username string) (model.User, error)

	// SetBouncerID caches the resolved external player id. A non-empty
	// stored value is never overwritten.
	SetBouncerID(ctx context.Context, userID int64, bouncerID string) error

	// ProcessedMatches returns the dedup ledger for a user as a set.
	ProcessedMatches(ctx context.Context, userID int64) (map[string]struct{}, error)

	// RecordMatch writes the ledger row and applies the score/count delta
	// atomically. Returns false when the (match, user) pair already exists;
	// in that case nothing is changed.
	RecordMatch(ctx context.Context, m model.ProcessedMatch) (bool, error)

	// Leaderboard returns users ordered by total score descending,
	// insertion order breaking ties. limit <= 0 means no limit.
	Leaderboard(ctx context.Context, limit, offset int) ([]model.User, error)

	// CountUsers returns the number of tracked users.
	CountUsers(ctx context.Context) (int, error)

	// PurgeUser removes the user, their matches and any queue entry in one
	// transaction, then resequences the queue.
	PurgeUser(ctx context.Context, username string) error

	// Enqueue admits a job. If the username is already queued the existing
	// position is returned with created=false and nothing changes.
	// Otherwise the entry takes the smallest free position.
	Enqueue(ctx context.Context, username, requesterID string) (pos int, created bool, err error)

	// NextInQueue returns the lowest-position entry, or ErrQueueEmpty.
	NextInQueue(ctx context.Context) (model.QueueEntry, error)

	// RemoveFromQueue deletes an entry and resequences the remainder into
	// a dense 1..N ordering, preserving relative order.
	RemoveFromQueue(ctx context.Context, id int64) error

	// QueueLen returns the number of pending entries.
	QueueLen(ctx context.Context) (int, error)

	// ListQueue returns entries ordered by position. limit <= 0 means all.
	ListQueue(ctx context.Context, limit, offset int) ([]model.QueueEntry, error)

	// Close releases the underlying database handle.
	Close() error
}
