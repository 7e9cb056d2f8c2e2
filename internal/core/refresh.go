package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codetracker/internal/jobs"
	"codetracker/internal/repository"
	"codetracker/pkg/logger"
	"codetracker/pkg/models"
)

// NewRefreshHandler returns the scheduler's job function. The user is loaded
// again when the job runs: missing or inactive users are skipped and only
// accounts still matching the saved usernames are fetched.
func NewRefreshHandler(userRepo repository.UserRepository, stats StatsService) jobs.RefreshFunc {
	return func(ctx context.Context, req jobs.RefreshRequest) (*models.FetchResults, error) {
		log := logger.WithFields(map[string]interface{}{
			"user_id": req.UserID,
			"reason":  req.Reason,
		})

		user, err := userRepo.GetByID(ctx, req.UserID)
		if errors.Is(err, models.ErrUserNotFound) {
			log.Info("skipping refresh for deleted user")
			return models.NewFetchResults(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		if !user.IsActive {
			log.Info("skipping refresh for inactive user")
			return models.NewFetchResults(), nil
		}

		current := currentAccounts(user, req.Accounts)
		if dropped := len(req.Accounts.Active()) - len(current); dropped > 0 {
			log.With("dropped", dropped).Info("dropping outdated accounts from refresh")
		}
		if len(current) == 0 {
			return models.NewFetchResults(), nil
		}
		return stats.FetchAllUserStats(ctx, req.UserID, current)
	}
}

// currentAccounts keeps the requested accounts whose username is still the
// one saved on the user's profile
func currentAccounts(user *models.User, requested models.PlatformAccounts) models.PlatformAccounts {
	out := make(models.PlatformAccounts, 0, len(requested))
	for _, acc := range requested.Active() {
		platform, err := models.ParsePlatform(acc.Platform)
		if err != nil {
			continue
		}
		if strings.TrimSpace(user.Platforms[platform]) != acc.Username {
			continue
		}
		out = append(out, acc)
	}
	return out
}
