package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codetracker/internal/repository"
	"codetracker/pkg/logger"
	"codetracker/pkg/models"
)

// Sweeper periodically resubmits users whose records have gone stale
type Sweeper struct {
	stats      repository.StatsRepository
	users      repository.UserRepository
	scheduler  Scheduler
	staleAfter time.Duration
	interval   time.Duration
	batch      int
	now        func() time.Time
}

// NewSweeper creates a sweeper; zero durations fall back to 12h stale / 30m interval
func NewSweeper(stats repository.StatsRepository, users repository.UserRepository, scheduler Scheduler, staleAfter, interval time.Duration, batch int) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = 12 * time.Hour
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		stats:      stats,
		users:      users,
		scheduler:  scheduler,
		staleAfter: staleAfter,
		interval:   interval,
		batch:      batch,
		now:        time.Now,
	}
}

// Run sweeps every interval until ctx ends
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stale-record sweeper stopped")
			return
		case <-ticker.C:
			submitted, err := s.SweepOnce(ctx)
			if err != nil {
				logger.Warnf("stale sweep failed: %v", err)
				continue
			}
			if submitted > 0 {
				logger.Infof("stale sweep submitted %d refreshes", submitted)
			}
		}
	}
}

// SweepOnce submits one refresh per user owning a stale record and returns how
// many were submitted. Records no refresh would touch are retired so they stop
// occupying the oldest slots of the batch: a missing or inactive owner gets its
// records deactivated and platforms without a username are deleted.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	records, err := s.stats.ListStale(ctx, cutoff, s.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale records: %w", err)
	}

	seen := make(map[string]bool)
	submitted := 0
	for _, record := range records {
		if seen[record.UserID] {
			continue
		}
		seen[record.UserID] = true

		user, err := s.users.GetByID(ctx, record.UserID)
		if errors.Is(err, models.ErrUserNotFound) {
			if err := s.retire(ctx, record.UserID, "owner not found"); err != nil {
				return submitted, err
			}
			continue
		}
		if err != nil {
			return submitted, fmt.Errorf("failed to load user %s: %w", record.UserID, err)
		}
		if !user.IsActive {
			if err := s.retire(ctx, user.ID, "owner inactive"); err != nil {
				return submitted, err
			}
			continue
		}

		removed, err := s.stats.DeleteByUserAndPlatformsNotIn(ctx, user.ID, user.Platforms.ActivePlatforms())
		if err != nil {
			return submitted, fmt.Errorf("failed to clean up platforms for %s: %w", user.ID, err)
		}
		if len(removed) > 0 {
			logger.WithFields(map[string]interface{}{
				"user_id": user.ID,
				"removed": removed,
			}).Info("sweeper removed stats for unconfigured platforms")
		}

		accounts := user.Platforms.Accounts().Active()
		if len(accounts) == 0 {
			continue
		}

		if _, err := s.scheduler.Submit(ctx, RefreshRequest{
			UserID:   user.ID,
			Accounts: accounts,
			Reason:   "stale",
		}); err != nil {
			if errors.Is(err, ErrQueueFull) {
				logger.Warnf("refresh queue full, deferring remaining stale users")
				break
			}
			return submitted, fmt.Errorf("failed to submit refresh for %s: %w", user.ID, err)
		}
		submitted++
	}
	return submitted, nil
}

// retire deactivates every record of a user that can no longer be refreshed
func (s *Sweeper) retire(ctx context.Context, userID, cause string) error {
	n, err := s.stats.SetActiveFlag(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("failed to deactivate records for %s: %w", userID, err)
	}
	logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"records": n,
		"cause":   cause,
	}).Info("sweeper deactivated unrefreshable records")
	return nil
}
