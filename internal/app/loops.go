package app

import (
	"context"
	"time"

	"github.com/okian/battletrack/pkg/logger"
)

// refreshLoop periodically re-enqueues the current top-N leaderboard
// users so their stats stay fresh without anyone asking. It talks to the
// worker only through the queue.
func (s *Service) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshTopUsers(ctx)
		}
	}
}

func (s *Service) refreshTopUsers(ctx context.Context) {
	users, err := s.store.Leaderboard(ctx, s.cfg.TopN, 0)
	if err != nil {
		s.logger.Error(ctx, "refresh: reading leaderboard", logger.Error(err))
		return
	}
	if len(users) == 0 {
		return
	}

	for _, u := range users {
		// Scheduled refreshes carry no requester; nobody gets a DM.
		if _, err := s.queue.Enqueue(ctx, u.Username, ""); err != nil {
			s.logger.Error(ctx, "refresh: enqueue",
				logger.String("username", u.Username),
				logger.Error(err),
			)
		}
	}
	s.worker.Start(ctx)
	s.logger.Info(ctx, "scheduled refresh queued", logger.Int("users", len(users)))
}

// retentionLoop drops users who have fallen out of the kept leaderboard
// range, bounding database growth the same way the sweep always has.
func (s *Service) retentionLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStaleUsers(ctx)
		}
	}
}

func (s *Service) sweepStaleUsers(ctx context.Context) {
	keep := s.cfg.RetentionKeep
	users, err := s.store.Leaderboard(ctx, 0, 0)
	if err != nil {
		s.logger.Error(ctx, "sweep: reading leaderboard", logger.Error(err))
		return
	}
	if len(users) <= keep {
		return
	}

	cutoff := users[keep-1].TotalScore
	for _, u := range users[keep:] {
		if u.TotalScore >= cutoff {
			continue
		}
		if err := s.store.PurgeUser(ctx, u.Username); err != nil {
			s.logger.Error(ctx, "sweep: purge",
				logger.String("username", u.Username),
				logger.Error(err),
			)
			continue
		}
		s.logger.Info(ctx, "swept stale user", logger.String("username", u.Username))
	}
}
