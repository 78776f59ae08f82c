// Package queue provides FIFO admission control for update jobs.
//
// The actual rows live in the persistent store; this layer owns the
// invariants: one entry per username, dense 1..N positions, stable order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/battletrack/internal/adapters/repository"
	"github.com/okian/battletrack/internal/domain/model"
	"github.com/okian/battletrack/pkg/logger"
	"github.com/okian/battletrack/pkg/metrics"
)

// Store is the slice of the repository the manager needs.
type Store interface {
	Enqueue(ctx context.Context, username, requesterID string) (pos int, created bool, err error)
	NextInQueue(ctx context.Context) (model.QueueEntry, error)
	RemoveFromQueue(ctx context.Context, id int64) error
	QueueLen(ctx context.Context) (int, error)
	ListQueue(ctx context.Context, limit, offset int) ([]model.QueueEntry, error)
}

// Manager fronts the persistent queue.
type Manager struct {
	store  Store
	logger logger.Logger
}

// NewManager builds a Manager over the given store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logger.Get().Named("queue"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue admits username, returning its 1-based position. Re-requesting
// a queued username returns the existing position unchanged.
func (m *Manager) Enqueue(ctx context.Context, username, requesterID string) (int, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return 0, ErrEmptyUsername
	}

	pos, created, err := m.store.Enqueue(ctx, username, requesterID)
	if err != nil {
		return 0, fmt.Errorf("enqueue %q: %w", username, err)
	}

	if created {
		metrics.RecordEnqueued()
		m.logger.Info(ctx, "queued for update",
			logger.String("username", username),
			logger.Int("position", pos),
		)
	} else {
		metrics.RecordEnqueueDuplicate()
		m.logger.Debug(ctx, "already queued",
			logger.String("username", username),
			logger.Int("position", pos),
		)
	}
	if n, err := m.store.QueueLen(ctx); err == nil {
		metrics.UpdateQueueDepth(n)
	}
	return pos, nil
}

// Next returns the head entry without removing it. A nil entry and nil
// error mean the queue is empty.
func (m *Manager) Next(ctx context.Context) (*model.QueueEntry, error) {
	e, err := m.store.NextInQueue(ctx)
	if errors.Is(err, repository.ErrQueueEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next: %w", err)
	}
	return &e, nil
}

// Remove deletes the entry; remaining positions close up to 1..N.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	if err := m.store.RemoveFromQueue(ctx, id); err != nil {
		return fmt.Errorf("remove %d: %w", id, err)
	}
	if n, err := m.store.QueueLen(ctx); err == nil {
		metrics.UpdateQueueDepth(n)
	}
	return nil
}

// Len returns the number of pending entries.
func (m *Manager) Len(ctx context.Context) (int, error) {
	n, err := m.store.QueueLen(ctx)
	if err != nil {
		return 0, fmt.Errorf("len: %w", err)
	}
	return n, nil
}

// List returns pending entries in position order.
func (m *Manager) List(ctx context.Context, limit, offset int) ([]model.QueueEntry, error) {
	entries, err := m.store.ListQueue(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return entries, nil
}
