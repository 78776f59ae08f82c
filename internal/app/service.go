// Package app wires the store, queue, API client and worker into one
// service owned by the application root. Presentation layers (Discord,
// HTTP) only ever talk to this type.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/battletrack/internal/adapters/habbo"
	"github.com/okian/battletrack/internal/adapters/repository"
	"github.com/okian/battletrack/internal/config"
	"github.com/okian/battletrack/internal/domain/model"
	"github.com/okian/battletrack/internal/queue"
	"github.com/okian/battletrack/internal/worker"
	"github.com/okian/battletrack/pkg/logger"
)

// Service owns every long-lived component of the tracker.
type Service struct {
	mu sync.Mutex

	cfg      *config.Config
	store    repository.Store
	queue    *queue.Manager
	client   *habbo.Client
	worker   *worker.Worker
	notifier worker.Notifier

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithNotifier sets the completion-notification sink (normally the
// Discord DM sender).
func WithNotifier(n worker.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a pre-built store, mainly for tests.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// New constructs a Service from configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}
	return s
}

// Start opens the store, builds the pipeline and launches the scheduled
// loops. Calling Start on a started service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.store == nil {
		st, err := repository.NewSQLiteStore(s.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}

	proxies, err := s.cfg.LoadProxies()
	if err != nil {
		return err
	}
	client, err := habbo.NewClient(s.cfg.BaseURL, proxies,
		habbo.WithMaxAttempts(s.cfg.MaxAttempts),
		habbo.WithPageSize(s.cfg.PageSize),
		habbo.WithConcurrency(s.cfg.FetchConcurrency),
	)
	if err != nil {
		return fmt.Errorf("build api client: %w", err)
	}
	s.client = client

	s.queue = queue.NewManager(s.store)
	s.worker = worker.New(s.store, s.queue, s.client, s.notifier,
		worker.WithThrottle(time.Duration(s.cfg.ThrottleMS)*time.Millisecond),
		worker.WithBatchSize(s.cfg.BatchSize),
	)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	interval := time.Duration(s.cfg.RefreshIntervalMin) * time.Minute
	go s.refreshLoop(loopCtx, interval)
	if s.cfg.RetentionKeep > 0 {
		go s.retentionLoop(loopCtx, interval)
	}

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.String("db", s.cfg.DBPath),
		logger.Int("proxies", len(proxies)),
	)
	return nil
}

// Stop halts the loops and the worker and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.worker.Stop()
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "service stopped")
}

// RequestUpdate queues username for an update on behalf of requesterID
// and kicks the worker. Returns the queue position and whether this call
// started a fresh drain loop.
func (s *Service) RequestUpdate(ctx context.Context, username, requesterID string) (int, bool, error) {
	pos, err := s.queue.Enqueue(ctx, username, requesterID)
	if err != nil {
		return 0, false, err
	}
	started := s.worker.Start(ctx)
	return pos, started, nil
}

// StartWorker kicks the drain loop; true when a new loop was started.
func (s *Service) StartWorker(ctx context.Context) bool { return s.worker.Start(ctx) }

// StopWorker requests a cooperative worker stop.
func (s *Service) StopWorker() { s.worker.Stop() }

// Leaderboard returns the ranked user rows.
func (s *Service) Leaderboard(ctx context.Context, limit, offset int) ([]model.User, error) {
	return s.store.Leaderboard(ctx, limit, offset)
}

// QueueSnapshot returns pending queue entries in order.
func (s *Service) QueueSnapshot(ctx context.Context, limit, offset int) ([]model.QueueEntry, error) {
	return s.queue.List(ctx, limit, offset)
}

// Status summarizes worker and queue state for presentation layers.
type Status struct {
	WorkerRunning    bool   `json:"worker_running"`
	CurrentUser      string `json:"current_user,omitempty"`
	RemainingMatches int    `json:"remaining_matches"`
	QueueLength      int    `json:"queue_length"`
	TrackedUsers     int    `json:"tracked_users"`
}

// Status reports the current pipeline state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	qlen, err := s.queue.Len(ctx)
	if err != nil {
		return Status{}, err
	}
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		WorkerRunning:    s.worker.IsRunning(),
		CurrentUser:      s.worker.CurrentUser(),
		RemainingMatches: s.worker.RemainingMatches(),
		QueueLength:      qlen,
		TrackedUsers:     users,
	}, nil
}

// CurrentUser exposes the in-flight username for queue displays.
func (s *Service) CurrentUser() string { return s.worker.CurrentUser() }

// RemainingMatches exposes the in-flight match counter.
func (s *Service) RemainingMatches() int { return s.worker.RemainingMatches() }

// Purge removes a user and everything attached to them.
func (s *Service) Purge(ctx context.Context, username string) error {
	return s.store.PurgeUser(ctx, username)
}
