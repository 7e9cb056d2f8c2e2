// Package core holds the protocol-agnostic tracker logic: the stats
// aggregator, the platform reconciler and bearer token validation.
package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"codetracker/internal/fetcher"
	"codetracker/internal/repository"
	"codetracker/pkg/logger"
	"codetracker/pkg/models"
	"codetracker/pkg/utils"
)

// StatsService is the aggregator: it fans out to the platform fetchers,
// persists every outcome and sums the stored records on read.
type StatsService interface {
	FetchAllUserStats(ctx context.Context, userID string, accounts models.PlatformAccounts) (*models.FetchResults, error)
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	RefreshUserStats(ctx context.Context, userID string, accounts models.PlatformAccounts) (*models.RefreshResults, error)
	CleanupRemovedPlatforms(ctx context.Context, userID string, current models.PlatformUsernames) (*models.CleanupResult, error)
	RecentActivity(ctx context.Context, platform models.Platform, username string) ([]models.Activity, error)
}

// StatsOptions tunes the fan-out
type StatsOptions struct {
	// Parallel runs platform fetches concurrently; results keep input order
	Parallel    bool
	MaxParallel int
	Clock       func() time.Time
}

type statsService struct {
	statsRepo repository.StatsRepository
	fetchers  *fetcher.Set
	opts      StatsOptions
}

// NewStatsService creates a new statistics aggregator
func NewStatsService(
	statsRepo repository.StatsRepository,
	fetchers *fetcher.Set,
	opts StatsOptions,
) StatsService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = len(models.Platforms)
	}
	return &statsService{
		statsRepo: statsRepo,
		fetchers:  fetchers,
		opts:      opts,
	}
}

// fetchOutcome is one platform's entry in the combined result
type fetchOutcome struct {
	success *models.FetchSuccess
	failure *models.FetchFailure
}

// FetchAllUserStats fetches every account with a non-empty username. A
// platform failure is recorded and reported; only a store failure aborts.
func (s *statsService) FetchAllUserStats(ctx context.Context, userID string, accounts models.PlatformAccounts) (*models.FetchResults, error) {
	active := accounts.Active()
	outcomes := make([]fetchOutcome, len(active))

	var err error
	if s.opts.Parallel && len(active) > 1 {
		err = s.fetchParallel(ctx, userID, active, outcomes)
	} else {
		err = s.fetchSequential(ctx, userID, active, outcomes)
	}

	results := models.NewFetchResults()
	for _, o := range outcomes {
		switch {
		case o.success != nil:
			results.Success = append(results.Success, *o.success)
		case o.failure != nil:
			results.Errors = append(results.Errors, *o.failure)
		}
	}
	if err != nil {
		return results, err
	}
	return results, nil
}

func (s *statsService) fetchSequential(ctx context.Context, userID string, accounts models.PlatformAccounts, outcomes []fetchOutcome) error {
	for i, acc := range accounts {
		outcome, err := s.fetchOne(ctx, userID, acc)
		if err != nil {
			return err
		}
		outcomes[i] = outcome
	}
	return nil
}

func (s *statsService) fetchParallel(ctx context.Context, userID string, accounts models.PlatformAccounts, outcomes []fetchOutcome) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxParallel)
	for i, acc := range accounts {
		i, acc := i, acc
		g.Go(func() error {
			outcome, err := s.fetchOne(gctx, userID, acc)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	return g.Wait()
}

// fetchOne runs and persists a single platform fetch. The returned error is
// reserved for store failures.
func (s *statsService) fetchOne(ctx context.Context, userID string, acc models.PlatformAccount) (fetchOutcome, error) {
	platform, err := models.ParsePlatform(acc.Platform)
	if err != nil {
		return fetchOutcome{failure: &models.FetchFailure{
			Platform: acc.Platform,
			Username: acc.Username,
			Error:    fmt.Sprintf("platform %s is not supported", acc.Platform),
		}}, nil
	}

	log := logger.WithFields(map[string]interface{}{
		"user_id":  userID,
		"platform": platform,
		"username": acc.Username,
	})

	start := time.Now()
	snap, fetchErr := s.fetch(ctx, platform, acc.Username)
	latency := int(time.Since(start).Milliseconds())
	now := s.opts.Clock().UTC()

	if fetchErr != nil {
		logger.Fetch(string(platform), acc.Username, "error", latency)
		log.With("error", fetchErr.Error()).Warn("platform fetch failed")

		if _, err := s.statsRepo.RecordFetchError(ctx, userID, platform, acc.Username, fetchErr.Error(), now); err != nil {
			return fetchOutcome{}, fmt.Errorf("failed to record %s fetch error: %w", platform, err)
		}
		return fetchOutcome{failure: &models.FetchFailure{
			Platform: string(platform),
			Username: acc.Username,
			Error:    fetchErr.Error(),
		}}, nil
	}

	logger.Fetch(string(platform), acc.Username, "ok", latency)
	record, err := s.statsRepo.ApplySnapshot(ctx, userID, platform, acc.Username, snap, now)
	if err != nil {
		return fetchOutcome{}, fmt.Errorf("failed to store %s stats: %w", platform, err)
	}
	return fetchOutcome{success: &models.FetchSuccess{
		Platform: platform,
		Username: acc.Username,
		Stats:    record.Stats,
	}}, nil
}

func (s *statsService) fetch(ctx context.Context, platform models.Platform, username string) (models.Snapshot, error) {
	f, err := s.fetchers.For(platform)
	if err != nil {
		return models.Snapshot{}, err
	}
	return f.FetchUserStats(ctx, username)
}

// GetUserStats sums the user's active records; it never calls a fetcher
func (s *statsService) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	records, err := s.statsRepo.FindAllActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return Aggregate(records), nil
}

// RefreshUserStats fetches, then attaches the recomputed view if anything
// succeeded. On a store failure the outcomes gathered so far are returned
// along with the error.
func (s *statsService) RefreshUserStats(ctx context.Context, userID string, accounts models.PlatformAccounts) (*models.RefreshResults, error) {
	fetched, err := s.FetchAllUserStats(ctx, userID, accounts)
	if fetched == nil {
		return nil, err
	}

	out := &models.RefreshResults{FetchResults: *fetched}
	if err != nil {
		return out, err
	}
	if len(fetched.Success) > 0 {
		view, err := s.GetUserStats(ctx, userID)
		if err != nil {
			return out, err
		}
		out.AggregatedStats = view
	}
	return out, nil
}

// CleanupRemovedPlatforms hard-deletes records for platforms without a username in current
func (s *statsService) CleanupRemovedPlatforms(ctx context.Context, userID string, current models.PlatformUsernames) (*models.CleanupResult, error) {
	active := current.ActivePlatforms()
	removed, err := s.statsRepo.DeleteByUserAndPlatformsNotIn(ctx, userID, active)
	if err != nil {
		return nil, fmt.Errorf("failed to clean up removed platforms: %w", err)
	}
	if len(removed) > 0 {
		logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"removed": removed,
		}).Info("removed stats for unconfigured platforms")
	}
	return &models.CleanupResult{
		RemovedPlatforms:   removed,
		RemainingPlatforms: active,
	}, nil
}

// RecentActivity delegates to the platform's fetcher
func (s *statsService) RecentActivity(ctx context.Context, platform models.Platform, username string) ([]models.Activity, error) {
	f, err := s.fetchers.For(platform)
	if err != nil {
		return nil, err
	}
	activity, err := f.FetchRecentActivity(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent activity: %w", err)
	}
	return activity, nil
}

// Aggregate builds the cross-platform view from stored records
func Aggregate(records []*models.StatsRecord) *models.UserStats {
	sorted := make([]*models.StatsRecord, 0, len(records))
	for _, r := range records {
		if r != nil && r.IsActive {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Platform < sorted[j].Platform })

	view := models.AggregatedView{Platforms: make(map[models.Platform]*models.StatsRecord, len(sorted))}
	fetched := make([]time.Time, 0, len(sorted))
	for _, r := range sorted {
		view.TotalProblems += r.Stats.TotalSolved
		view.TotalEasy += r.Stats.EasySolved
		view.TotalMedium += r.Stats.MediumSolved
		view.TotalHard += r.Stats.HardSolved
		view.TotalContests += r.Stats.ContestsParticipated
		view.Platforms[r.Platform] = r
		fetched = append(fetched, r.LastFetched)
	}

	return &models.UserStats{
		Aggregated:  view,
		Platforms:   sorted,
		LastUpdated: utils.MaxTime(fetched),
	}
}
