package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetracker/internal/jobs"
	"codetracker/pkg/models"
)

func newPlatformService(t *testing.T, env *testEnv) (PlatformService, *jobs.LocalScheduler) {
	t.Helper()
	scheduler := jobs.NewLocalScheduler(env.refreshHandler(), 2, 8)
	require.NoError(t, scheduler.Start(context.Background()))
	t.Cleanup(func() { scheduler.Close() })
	return NewPlatformService(env.userRepo, env.statsRepo, env.stats, scheduler), scheduler
}

// newQueuedPlatformService returns a service whose scheduler only runs once
// start is called, so several updates can queue up first
func newQueuedPlatformService(t *testing.T, env *testEnv) (PlatformService, func()) {
	t.Helper()
	scheduler := jobs.NewLocalScheduler(env.refreshHandler(), 1, 8)
	t.Cleanup(func() { scheduler.Close() })
	start := func() { require.NoError(t, scheduler.Start(context.Background())) }
	return NewPlatformService(env.userRepo, env.statsRepo, env.stats, scheduler), start
}

func waitTask(t *testing.T, task *jobs.Task) *models.FetchResults {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := task.Wait(ctx)
	require.NoError(t, err)
	return result
}

func TestUpdatePlatformsEndToEnd(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, _ := newPlatformService(t, env)
	ctx := context.Background()
	user := env.createUser(t, models.PlatformUsernames{})

	resp, task, err := svc.UpdatePlatforms(ctx, user.ID, map[string]string{
		"leetcode":   "alice",
		"codeforces": "alice_cf",
	})
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, task.ID, resp.RefreshTaskID)
	assert.Equal(t, noteRefreshing, resp.Note)
	assert.Empty(t, resp.Cleanup.RemovedPlatforms)

	result := waitTask(t, task)
	assert.Len(t, result.Success, 2)
	assert.Empty(t, result.Errors)

	view, err := env.stats.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 130, view.Aggregated.TotalProblems)

	// clearing codeforces removes its record right away
	resp, task, err = svc.UpdatePlatforms(ctx, user.ID, map[string]string{"codeforces": ""})
	require.NoError(t, err)
	assert.Equal(t, []models.Platform{models.PlatformCodeforces}, resp.Cleanup.RemovedPlatforms)
	assert.Equal(t, []models.Platform{models.PlatformLeetCode}, resp.Cleanup.RemainingPlatforms)
	assert.Equal(t, "alice", resp.User.Platforms[models.PlatformLeetCode])
	waitTask(t, task)

	view, err = env.stats.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Aggregated.TotalProblems)
	assert.Len(t, view.Platforms, 1)
}

func TestUpdatePlatformsValidation(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, _ := newPlatformService(t, env)
	user := env.createUser(t, models.PlatformUsernames{})

	_, _, err := svc.UpdatePlatforms(context.Background(), user.ID, map[string]string{
		"leetcode": strings.Repeat("x", models.MaxPlatformUsernameLength+1),
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, _, err = svc.UpdatePlatforms(context.Background(), user.ID, map[string]string{
		"leetcode":   "alice",
		"codeforces": "alice cf",
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	stored, err := env.userRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Platforms[models.PlatformLeetCode])

	resp, task, err := svc.UpdatePlatforms(context.Background(), user.ID, map[string]string{
		"hackerrank": "alice",
		"codechef":   "   ",
	})
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Equal(t, noteNoRefresh, resp.Note)
	assert.Empty(t, resp.RefreshTaskID)
	assert.NotContains(t, resp.User.Platforms, models.Platform("hackerrank"))
}

func TestUpdatePlatformsUnknownUser(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, _ := newPlatformService(t, env)

	_, _, err := svc.UpdatePlatforms(context.Background(), "missing", map[string]string{"leetcode": "alice"})
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestUpdatePlatformsSchedulerClosed(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, scheduler := newPlatformService(t, env)
	require.NoError(t, scheduler.Close())
	user := env.createUser(t, models.PlatformUsernames{})

	resp, task, err := svc.UpdatePlatforms(context.Background(), user.ID, map[string]string{"leetcode": "alice"})
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Equal(t, noteNoRefresh, resp.Note)
	assert.Equal(t, "alice", resp.User.Platforms[models.PlatformLeetCode])
}

func TestRefreshConfigured(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, _ := newPlatformService(t, env)
	ctx := context.Background()

	empty := env.createUser(t, models.PlatformUsernames{models.PlatformLeetCode: ""})
	_, err := svc.RefreshConfigured(ctx, empty.ID)
	assert.ErrorIs(t, err, models.ErrNoPlatformsConfigured)

	user := env.createUser(t, models.PlatformUsernames{models.PlatformCodeChef: "alice_cc"})
	refreshed, err := svc.RefreshConfigured(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, refreshed.Success, 1)
	require.NotNil(t, refreshed.AggregatedStats)
	assert.Equal(t, 20, refreshed.AggregatedStats.Aggregated.TotalProblems)
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, _ := newPlatformService(t, env)
	ctx := context.Background()
	user := env.createUser(t, models.PlatformUsernames{models.PlatformW3Schools: "alice_w3"})

	profile, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, profile.Stats.TotalProblems)
	assert.Nil(t, profile.LastUpdated)

	_, err = svc.RefreshConfigured(ctx, user.ID)
	require.NoError(t, err)

	profile, err = svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.User.ID)
	assert.Equal(t, 75, profile.Stats.TotalProblems)
	require.NotNil(t, profile.LastUpdated)
}

func TestRecentActivityForConfiguredUsername(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, _ := newPlatformService(t, env)
	ctx := context.Background()
	user := env.createUser(t, models.PlatformUsernames{models.PlatformLeetCode: "alice"})

	activity, err := svc.RecentActivity(ctx, user.ID, "LeetCode")
	require.NoError(t, err)
	assert.NotEmpty(t, activity)

	_, err = svc.RecentActivity(ctx, user.ID, "codeforces")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.RecentActivity(ctx, user.ID, "topcoder")
	assert.ErrorIs(t, err, models.ErrUnsupportedPlatform)
}

func TestDeactivateAccountKeepsRecords(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, _ := newPlatformService(t, env)
	ctx := context.Background()
	user := env.createUser(t, models.PlatformUsernames{models.PlatformLeetCode: "alice"})

	_, err := svc.RefreshConfigured(ctx, user.ID)
	require.NoError(t, err)

	err = svc.DeactivateAccount(ctx, user.ID, "delete")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	require.NoError(t, svc.DeactivateAccount(ctx, user.ID, models.ConfirmDeleteToken))

	record, err := env.statsRepo.FindByUserAndPlatform(ctx, user.ID, models.PlatformLeetCode)
	require.NoError(t, err)
	assert.False(t, record.IsActive)
	assert.Equal(t, 100, record.Stats.TotalSolved)

	view, err := env.stats.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Aggregated.TotalProblems)

	_, err = svc.GetProfile(ctx, user.ID)
	assert.ErrorIs(t, err, models.ErrUserInactive)
	_, _, err = svc.UpdatePlatforms(ctx, user.ID, map[string]string{"leetcode": "bob"})
	assert.ErrorIs(t, err, models.ErrUserInactive)
}

func TestQueuedRefreshSkipsClearedPlatform(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, start := newQueuedPlatformService(t, env)
	ctx := context.Background()
	user := env.createUser(t, models.PlatformUsernames{})

	_, first, err := svc.UpdatePlatforms(ctx, user.ID, map[string]string{
		"leetcode":   "alice",
		"codeforces": "alice_cf",
	})
	require.NoError(t, err)
	require.NotNil(t, first)
	_, second, err := svc.UpdatePlatforms(ctx, user.ID, map[string]string{"codeforces": ""})
	require.NoError(t, err)
	require.NotNil(t, second)

	start()
	result := waitTask(t, first)
	require.Len(t, result.Success, 1)
	assert.Equal(t, models.PlatformLeetCode, result.Success[0].Platform)
	waitTask(t, second)

	assert.Zero(t, env.cf.Calls())
	_, err = env.statsRepo.FindByUserAndPlatform(ctx, user.ID, models.PlatformCodeforces)
	assert.ErrorIs(t, err, models.ErrNotFound)

	view, err := env.stats.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Aggregated.TotalProblems)
	assert.Len(t, view.Platforms, 1)
}

func TestQueuedRefreshSkipsRenamedAccount(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, start := newQueuedPlatformService(t, env)
	ctx := context.Background()
	user := env.createUser(t, models.PlatformUsernames{})

	_, first, err := svc.UpdatePlatforms(ctx, user.ID, map[string]string{"leetcode": "bob"})
	require.NoError(t, err)
	_, second, err := svc.UpdatePlatforms(ctx, user.ID, map[string]string{"leetcode": "alice"})
	require.NoError(t, err)

	start()
	assert.Empty(t, waitTask(t, first).Success)
	assert.Len(t, waitTask(t, second).Success, 1)
	assert.Equal(t, 1, env.leetcode.Calls())

	record, err := env.statsRepo.FindByUserAndPlatform(ctx, user.ID, models.PlatformLeetCode)
	require.NoError(t, err)
	assert.Equal(t, "alice", record.Username)
}

func TestQueuedRefreshSkipsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	svc, start := newQueuedPlatformService(t, env)
	ctx := context.Background()
	user := env.createUser(t, models.PlatformUsernames{})

	_, task, err := svc.UpdatePlatforms(ctx, user.ID, map[string]string{"leetcode": "alice"})
	require.NoError(t, err)
	require.NotNil(t, task)
	require.NoError(t, svc.DeactivateAccount(ctx, user.ID, models.ConfirmDeleteToken))

	start()
	result := waitTask(t, task)
	assert.Empty(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Zero(t, env.leetcode.Calls())

	_, err = env.statsRepo.FindByUserAndPlatform(ctx, user.ID, models.PlatformLeetCode)
	assert.ErrorIs(t, err, models.ErrNotFound)
	view, err := env.stats.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Aggregated.TotalProblems)
}

func TestRefreshHandlerSkipsMissingUser(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})

	result, err := env.refreshHandler()(context.Background(), jobs.RefreshRequest{
		UserID:   "missing",
		Accounts: accounts("leetcode", "alice"),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Success)
	assert.Zero(t, env.leetcode.Calls())
}
