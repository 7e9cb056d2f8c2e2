package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codetracker/internal/fetcher"
	"codetracker/internal/jobs"
	"codetracker/internal/repository"
	"codetracker/pkg/database"
	"codetracker/pkg/models"
)

var errPlatformDown = errors.New("platform unreachable")

type stubFetcher struct {
	snapshots map[string]models.Snapshot
	err       error
	delay     time.Duration
	calls     int32
}

func (f *stubFetcher) FetchUserStats(ctx context.Context, username string) (models.Snapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.Snapshot{}, ctx.Err()
		}
	}
	if f.err != nil {
		return models.Snapshot{}, f.err
	}
	return f.snapshots[username], nil
}

func (f *stubFetcher) FetchRecentActivity(ctx context.Context, username string) ([]models.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Activity{{ProblemName: "Two Sum", Solved: true}}, nil
}

func (f *stubFetcher) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

type testEnv struct {
	statsRepo repository.StatsRepository
	userRepo  repository.UserRepository
	fetchers  *fetcher.Set
	leetcode  *stubFetcher
	cf        *stubFetcher
	codechef  *stubFetcher
	w3        *stubFetcher
	stats     StatsService
	clock     time.Time
}

func newTestEnv(t *testing.T, opts StatsOptions) *testEnv {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	env := &testEnv{
		statsRepo: repository.NewSQLiteStatsRepository(db),
		userRepo:  repository.NewSQLiteUserRepository(db),
		leetcode: &stubFetcher{snapshots: map[string]models.Snapshot{
			"alice": {TotalSolved: 100, EasySolved: 50, MediumSolved: 40, HardSolved: 10, Rank: models.NumericRank(1200), ContestsParticipated: 3},
		}},
		cf: &stubFetcher{snapshots: map[string]models.Snapshot{
			"alice_cf": {TotalSolved: 30, EasySolved: 20, MediumSolved: 7, HardSolved: 3, Rating: 1500, MaxRating: 1600, Rank: models.LabelRank("specialist"), ContestsParticipated: 12},
		}},
		codechef: &stubFetcher{snapshots: map[string]models.Snapshot{
			"alice_cc": {TotalSolved: 20, EasySolved: 10, MediumSolved: 8, HardSolved: 2, Rating: 1700, ContestsParticipated: 5},
		}},
		w3: &stubFetcher{snapshots: map[string]models.Snapshot{
			"alice_w3": {TotalSolved: 75, EasySolved: 30, MediumSolved: 30, HardSolved: 15, Rating: 80},
		}},
		clock: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	env.fetchers = &fetcher.Set{
		LeetCode:   env.leetcode,
		Codeforces: env.cf,
		CodeChef:   env.codechef,
		W3Schools:  env.w3,
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return env.clock }
	}
	env.stats = NewStatsService(env.statsRepo, env.fetchers, opts)
	return env
}

func (e *testEnv) refreshHandler() jobs.RefreshFunc {
	return NewRefreshHandler(e.userRepo, e.stats)
}

func (e *testEnv) createUser(t *testing.T, platforms models.PlatformUsernames) *models.User {
	t.Helper()
	user := &models.User{Name: "Alice", Email: "alice@example.com", Platforms: platforms, IsActive: true}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

func accounts(pairs ...string) models.PlatformAccounts {
	out := models.PlatformAccounts{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.PlatformAccount{Platform: pairs[i], Username: pairs[i+1]})
	}
	return out
}

// failingStatsRepo simulates an unreachable store for writes
type failingStatsRepo struct {
	repository.StatsRepository
}

func (r failingStatsRepo) ApplySnapshot(ctx context.Context, userID string, platform models.Platform, username string, snap models.Snapshot, now time.Time) (*models.StatsRecord, error) {
	return nil, models.ErrStoreUnavailable
}

func (r failingStatsRepo) FindAllActiveByUser(ctx context.Context, userID string) ([]*models.StatsRecord, error) {
	return nil, models.ErrStoreUnavailable
}

// brokenPlatformRepo fails writes for a single platform only
type brokenPlatformRepo struct {
	repository.StatsRepository
	platform models.Platform
}

func (r brokenPlatformRepo) ApplySnapshot(ctx context.Context, userID string, platform models.Platform, username string, snap models.Snapshot, now time.Time) (*models.StatsRecord, error) {
	if platform == r.platform {
		return nil, models.ErrStoreUnavailable
	}
	return r.StatsRepository.ApplySnapshot(ctx, userID, platform, username, snap, now)
}
