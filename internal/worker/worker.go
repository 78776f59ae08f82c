// Package worker implements the single-flight update worker that drains
// the job queue and reconciles external match history into the store.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/battletrack/internal/adapters/habbo"
	"github.com/okian/battletrack/internal/domain/dedupe"
	"github.com/okian/battletrack/internal/domain/model"
	"github.com/okian/battletrack/internal/domain/scoring"
	"github.com/okian/battletrack/pkg/logger"
	"github.com/okian/battletrack/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultThrottle  = time.Second
	defaultBatchSize = 2
)

// Store is the slice of the repository the worker writes through.
type Store interface {
	EnsureUser(ctx context.Context, username string) (model.User, error)
	SetBouncerID(ctx context.Context, userID int64, bouncerID string) error
	ProcessedMatches(ctx context.Context, userID int64) (map[string]struct{}, error)
	RecordMatch(ctx context.Context, m model.ProcessedMatch) (bool, error)
}

// Queue is how the worker consumes pending jobs.
type Queue interface {
	// Next returns the head entry, or nil when the queue is empty.
	Next(ctx context.Context) (*model.QueueEntry, error)
	Remove(ctx context.Context, id int64) error
}

// API fetches external match history.
type API interface {
	ResolveUser(ctx context.Context, username string) (habbo.User, error)
	ListMatchIDs(ctx context.Context, playerID string) ([]string, error)
	FetchMatchBatch(ctx context.Context, ids []string) []habbo.Match
}

// Notifier delivers best-effort completion/failure messages to whoever
// requested the job. Failures are logged, never retried.
type Notifier interface {
	Notify(ctx context.Context, recipientID, message string) error
}

// Worker drains the queue one user at a time. At most one drain loop runs
// regardless of how many callers invoke Start; Stop is cooperative and
// observed between queue items only.
type Worker struct {
	store    Store
	queue    Queue
	api      API
	notifier Notifier

	throttle  time.Duration
	batchSize int

	mu      sync.Mutex
	running bool

	stopRequested atomic.Bool
	current       atomic.Value // string: username being processed
	remaining     atomic.Int64

	logger logger.Logger
}

// New builds a Worker with explicit dependencies.
func New(store Store, queue Queue, api API, notifier Notifier, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		queue:     queue,
		api:       api,
		notifier:  notifier,
		throttle:  defaultThrottle,
		batchSize: defaultBatchSize,
		logger:    logger.Get().Named("worker"),
	}
	w.current.Store("")
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the drain loop if the worker is idle. It returns true
// when a new loop was started and false when one is already running;
// concurrent callers race on a single flag so exactly one wins.
func (w *Worker) Start(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return false
	}
	w.running = true
	w.stopRequested.Store(false)

	go w.drain(ctx)
	return true
}

// Stop requests a cooperative stop. An in-flight job always completes;
// the loop exits before picking up the next queue item.
func (w *Worker) Stop() {
	w.stopRequested.Store(true)
}

// IsRunning reports whether a drain loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// CurrentUser returns the username being processed, or "" when idle.
func (w *Worker) CurrentUser() string {
	s, _ := w.current.Load().(string)
	return s
}

// RemainingMatches returns how many new matches are left in the current job.
func (w *Worker) RemainingMatches() int {
	return int(w.remaining.Load())
}

func (w *Worker) drain(ctx context.Context) {
	metrics.SetWorkerRunning(true)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		metrics.SetWorkerRunning(false)
		w.logger.Info(ctx, "drain loop finished")
	}()

	for {
		if ctx.Err() != nil || w.stopRequested.Load() {
			return
		}

		entry, err := w.queue.Next(ctx)
		if err != nil {
			w.logger.Error(ctx, "reading queue head", logger.Error(err))
			return
		}
		if entry == nil {
			return
		}

		if err := w.processEntry(ctx, entry); err != nil {
			// The job is still removed below: a failed job must not
			// stall the queue, and the user stays tracked for retries.
			w.logger.Error(ctx, "job failed",
				logger.String("username", entry.Username),
				logger.Error(err),
			)
		}
		if err := w.queue.Remove(ctx, entry.ID); err != nil {
			w.logger.Error(ctx, "removing queue entry",
				logger.Int64("id", entry.ID),
				logger.Error(err),
			)
			return
		}

		// Throttle between jobs to stay under upstream rate limits.
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.throttle):
		}
	}
}

// processEntry reconciles one user's external match history into the store.
func (w *Worker) processEntry(ctx context.Context, entry *model.QueueEntry) error {
	start := time.Now()
	w.current.Store(entry.Username)
	defer func() {
		w.current.Store("")
		w.remaining.Store(0)
		metrics.RecordJobDuration(time.Since(start).Seconds())
	}()

	user, err := w.store.EnsureUser(ctx, entry.Username)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	bouncerID := user.BouncerPlayerID
	if bouncerID == "" {
		resolved, err := w.api.ResolveUser(ctx, user.Username)
		if err != nil {
			metrics.RecordJobFailed()
			w.notify(ctx, entry.RequesterID,
				fmt.Sprintf("Could not resolve `%s` on the Battleball API; the job was dropped.", user.Username))
			return fmt.Errorf("resolve: %w", err)
		}
		bouncerID = resolved.BouncerPlayerID
		if err := w.store.SetBouncerID(ctx, user.ID, bouncerID); err != nil {
			return fmt.Errorf("cache bouncer id: %w", err)
		}
	}

	matchIDs, err := w.api.ListMatchIDs(ctx, bouncerID)
	if err != nil {
		metrics.RecordJobFailed()
		return fmt.Errorf("list match ids: %w", err)
	}

	seen, err := w.store.ProcessedMatches(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load dedup ledger: %w", err)
	}
	ledger := dedupe.NewLedger(seen)

	// Matches already in the ledger are never refetched or rescored;
	// the remainder keeps API order.
	newIDs := ledger.Filter(matchIDs)
	w.remaining.Store(int64(len(newIDs)))

	w.logger.Info(ctx, "processing matches",
		logger.String("username", user.Username),
		logger.Int("total", len(matchIDs)),
		logger.Int("new", len(newIDs)),
	)

	for i := 0; i < len(newIDs); i += w.batchSize {
		end := i + w.batchSize
		if end > len(newIDs) {
			end = len(newIDs)
		}
		batch := newIDs[i:end]

		fetched := w.api.FetchMatchBatch(ctx, batch)
		for range len(batch) - len(fetched) {
			// Unavailable matches stay out of the ledger and get
			// retried the next time this user is enqueued.
			metrics.RecordMatchSkipped()
		}

		for idx := range fetched {
			w.applyMatch(ctx, &user, bouncerID, &fetched[idx])
		}
		w.remaining.Add(-int64(len(batch)))
	}

	metrics.RecordJobProcessed()
	w.notify(ctx, entry.RequesterID,
		fmt.Sprintf("Job for user `%s` has been completed.", user.Username))

	w.logger.Info(ctx, "job done",
		logger.String("username", user.Username),
		logger.Int("matches", len(newIDs)),
		logger.Any("elapsed", time.Since(start)),
	)
	return nil
}

// applyMatch records one fetched match under the crediting policy.
func (w *Worker) applyMatch(ctx context.Context, user *model.User, bouncerID string, m *habbo.Match) {
	in := scoring.Input{Ranked: m.Info.Ranked}
	if p, ok := m.Participant(bouncerID); ok {
		in.Participated = true
		in.GameScore = p.GameScore
	}
	credit := scoring.Assess(in)

	applied, err := w.store.RecordMatch(ctx, model.ProcessedMatch{
		MatchID:   m.Metadata.MatchID,
		UserID:    user.ID,
		GameScore: credit.Delta,
		Ranked:    credit.Ranked,
	})
	if err != nil {
		// Fatal to this match only; it stays out of the ledger and is
		// retried on the next pass.
		w.logger.Error(ctx, "recording match",
			logger.String("matchID", m.Metadata.MatchID),
			logger.String("username", user.Username),
			logger.Error(err),
		)
		metrics.RecordMatchSkipped()
		return
	}
	if applied {
		metrics.RecordMatchScored()
	} else {
		metrics.RecordMatchDuplicate()
	}
}

func (w *Worker) notify(ctx context.Context, recipientID, message string) {
	if recipientID == "" || w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, recipientID, message); err != nil {
		w.logger.Warn(ctx, "notification failed",
			logger.String("recipient", recipientID),
			logger.Error(err),
		)
	}
}
