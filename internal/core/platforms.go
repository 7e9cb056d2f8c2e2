package core

import (
	"context"
	"fmt"
	"strings"

	"codetracker/internal/jobs"
	"codetracker/internal/repository"
	"codetracker/pkg/logger"
	"codetracker/pkg/models"
	"codetracker/pkg/utils"
)

const (
	noteRefreshing = "Platform usernames updated. Statistics will refresh in the background."
	noteNoRefresh  = "Platform usernames updated. No platforms are configured for refresh."
)

// PlatformService keeps stats records in sync with the user's configured platform usernames
type PlatformService interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	// UpdatePlatforms saves the profile, removes stale records and schedules a
	// background refresh. The returned task is nil when nothing was scheduled.
	UpdatePlatforms(ctx context.Context, userID string, raw map[string]string) (*models.UpdatePlatformsResponse, *jobs.Task, error)
	RefreshConfigured(ctx context.Context, userID string) (*models.RefreshResults, error)
	RecentActivity(ctx context.Context, userID, platform string) ([]models.Activity, error)
	DeactivateAccount(ctx context.Context, userID, confirm string) error
}

type platformService struct {
	userRepo  repository.UserRepository
	statsRepo repository.StatsRepository
	stats     StatsService
	scheduler jobs.Scheduler
}

// NewPlatformService creates the platform configuration reconciler
func NewPlatformService(
	userRepo repository.UserRepository,
	statsRepo repository.StatsRepository,
	stats StatsService,
	scheduler jobs.Scheduler,
) PlatformService {
	return &platformService{
		userRepo:  userRepo,
		statsRepo: statsRepo,
		stats:     stats,
		scheduler: scheduler,
	}
}

func (s *platformService) activeUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, models.ErrUserInactive
	}
	return user, nil
}

// GetProfile returns the user with the aggregated totals
func (s *platformService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := s.stats.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{
		User:        user,
		Stats:       view.Aggregated,
		LastUpdated: view.LastUpdated,
	}, nil
}

// UpdatePlatforms applies the new usernames, cleans up removed platforms and
// hands the active ones to the scheduler without waiting for them.
func (s *platformService) UpdatePlatforms(ctx context.Context, userID string, raw map[string]string) (*models.UpdatePlatformsResponse, *jobs.Task, error) {
	changes, err := models.NormalizePlatformUpdate(raw)
	if err != nil {
		return nil, nil, err
	}
	for _, platform := range models.Platforms {
		username := changes[platform]
		if username == "" {
			continue
		}
		if err := utils.ValidatePlatformUsername(username); err != nil {
			return nil, nil, fmt.Errorf("invalid %s username %q: %w", platform, username, err)
		}
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	merged := user.Platforms.Clone()
	for platform, username := range changes {
		merged[platform] = username
	}

	updated, err := s.userRepo.UpdatePlatforms(ctx, userID, merged)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update platforms: %w", err)
	}

	cleanup, err := s.stats.CleanupRemovedPlatforms(ctx, userID, updated.Platforms)
	if err != nil {
		return nil, nil, err
	}

	resp := &models.UpdatePlatformsResponse{
		User:    updated,
		Cleanup: cleanup,
		Note:    noteNoRefresh,
	}

	accounts := updated.Platforms.Accounts().Active()
	if len(accounts) == 0 {
		return resp, nil, nil
	}

	task, err := s.scheduler.Submit(ctx, jobs.RefreshRequest{
		UserID:   userID,
		Accounts: accounts,
		Reason:   "platforms_updated",
	})
	if err != nil {
		// the profile is saved; the sweeper picks the user up later
		logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		}).Error("failed to schedule background refresh")
		return resp, nil, nil
	}

	resp.RefreshTaskID = task.ID
	resp.Note = noteRefreshing
	return resp, task, nil
}

// RefreshConfigured refreshes every configured platform synchronously
func (s *platformService) RefreshConfigured(ctx context.Context, userID string) (*models.RefreshResults, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts := user.Platforms.Accounts().Active()
	if len(accounts) == 0 {
		return nil, models.ErrNoPlatformsConfigured
	}
	return s.stats.RefreshUserStats(ctx, userID, accounts)
}

// RecentActivity returns recent solves for the username configured on platform
func (s *platformService) RecentActivity(ctx context.Context, userID, platform string) ([]models.Activity, error) {
	p, err := models.ParsePlatform(platform)
	if err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(user.Platforms[p])
	if username == "" {
		return nil, fmt.Errorf("no %s username configured: %w", p, models.ErrInvalidInput)
	}
	return s.stats.RecentActivity(ctx, p, username)
}

// DeactivateAccount soft-deletes: the user and every stats record are flagged
// inactive, nothing is removed.
func (s *platformService) DeactivateAccount(ctx context.Context, userID, confirm string) error {
	if confirm != models.ConfirmDeleteToken {
		return fmt.Errorf("please type %s to confirm account deletion: %w", models.ConfirmDeleteToken, models.ErrInvalidInput)
	}
	if err := s.userRepo.SetActive(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	n, err := s.statsRepo.SetActiveFlag(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("failed to deactivate stats records: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"records": n,
	}).Info("account deactivated")
	return nil
}
