package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetracker/pkg/database"
	"codetracker/pkg/models"
	"codetracker/pkg/utils"
)

func newSQLiteDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func TestSQLiteStatsRepository(t *testing.T) {
	runStatsRepositoryContract(t, func(t *testing.T) StatsRepository {
		return NewSQLiteStatsRepository(newSQLiteDB(t))
	})
}

func TestSQLiteUserRepository(t *testing.T) {
	runUserRepositoryContract(t, func(t *testing.T) UserRepository {
		return NewSQLiteUserRepository(newSQLiteDB(t))
	})
}

func runStatsRepositoryContract(t *testing.T, newRepo func(t *testing.T) StatsRepository) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("upsert never duplicates a user platform pair", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		first, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "alice",
			models.Snapshot{TotalSolved: 10}, base)
		require.NoError(t, err)
		second, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "alice",
			models.Snapshot{TotalSolved: 12}, base.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)

		records, err := repo.FindAllActiveByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 12, records[0].Stats.TotalSolved)
		assert.Len(t, records[0].History, 2)
	})

	t.Run("new records are stamped with the caller's time", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		created, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "alice",
			models.Snapshot{TotalSolved: 3}, base)
		require.NoError(t, err)
		assert.True(t, created.CreatedAt.Equal(base), "created at %s", created.CreatedAt)
		assert.True(t, created.LastFetched.Equal(created.CreatedAt))

		bare, err := repo.Upsert(ctx, userID, models.PlatformCodeChef, "alice_cc", base, nil)
		require.NoError(t, err)
		assert.True(t, bare.LastFetched.Equal(base))

		stored, err := repo.FindByUserAndPlatform(ctx, userID, models.PlatformCodeChef)
		require.NoError(t, err)
		assert.True(t, stored.CreatedAt.Equal(base))

		stale, err := repo.ListStale(ctx, base.Add(time.Minute), 1000)
		require.NoError(t, err)
		mine := 0
		for _, r := range stale {
			if r.UserID == userID {
				mine++
			}
		}
		assert.Equal(t, 2, mine)
	})

	t.Run("history keeps the 30 most recent entries", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		for i := 1; i <= 35; i++ {
			_, err := repo.ApplySnapshot(ctx, userID, models.PlatformCodeforces, "tourist",
				models.Snapshot{TotalSolved: i, Rank: models.LabelRank(models.RankUnrated)},
				base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		record, err := repo.FindByUserAndPlatform(ctx, userID, models.PlatformCodeforces)
		require.NoError(t, err)
		require.Len(t, record.History, models.MaxHistoryEntries)
		assert.Equal(t, 6, record.History[0].TotalSolved)
		assert.Equal(t, 35, record.History[len(record.History)-1].TotalSolved)
		for i := 1; i < len(record.History); i++ {
			assert.True(t, record.History[i].Date.After(record.History[i-1].Date))
		}
		assert.Equal(t, models.LabelRank(models.RankUnrated), record.Stats.Rank)
	})

	t.Run("fetch errors leave snapshot and history untouched", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		_, err := repo.ApplySnapshot(ctx, userID, models.PlatformCodeChef, "chef",
			models.Snapshot{TotalSolved: 40, Rating: 1800}, base)
		require.NoError(t, err)

		_, err = repo.RecordFetchError(ctx, userID, models.PlatformCodeChef, "chef", "timeout", base.Add(time.Hour))
		require.NoError(t, err)
		record, err := repo.RecordFetchError(ctx, userID, models.PlatformCodeChef, "chef", "status 503", base.Add(2*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, 2, record.FetchErrors)
		assert.Equal(t, "status 503", record.LastError)
		assert.Equal(t, 40, record.Stats.TotalSolved)
		assert.Len(t, record.History, 1)
		assert.True(t, record.LastFetched.Equal(base.Add(2*time.Hour)))

		record, err = repo.ApplySnapshot(ctx, userID, models.PlatformCodeChef, "chef",
			models.Snapshot{TotalSolved: 41}, base.Add(3*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, record.FetchErrors)
		assert.Empty(t, record.LastError)
	})

	t.Run("first failed fetch creates the record", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		record, err := repo.RecordFetchError(ctx, userID, models.PlatformW3Schools, "learner", "down", base)
		require.NoError(t, err)
		assert.True(t, record.IsActive)
		assert.Equal(t, 1, record.FetchErrors)
		assert.Empty(t, record.History)
	})

	t.Run("rename updates the username in place", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		before, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "old_name", models.Snapshot{TotalSolved: 1}, base)
		require.NoError(t, err)
		after, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "new_name", models.Snapshot{TotalSolved: 2}, base.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, "new_name", after.Username)
		assert.Len(t, after.History, 2)
	})

	t.Run("active records are sorted by platform name", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		for _, p := range []models.Platform{models.PlatformW3Schools, models.PlatformLeetCode, models.PlatformCodeChef} {
			_, err := repo.ApplySnapshot(ctx, userID, p, "me", models.Snapshot{TotalSolved: 1}, base)
			require.NoError(t, err)
		}

		records, err := repo.FindAllActiveByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, models.PlatformCodeChef, records[0].Platform)
		assert.Equal(t, models.PlatformLeetCode, records[1].Platform)
		assert.Equal(t, models.PlatformW3Schools, records[2].Platform)
	})

	t.Run("cleanup deletes only platforms outside the keep set", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()
		otherUser := utils.GenerateUserID()

		for _, p := range models.Platforms {
			_, err := repo.ApplySnapshot(ctx, userID, p, "me", models.Snapshot{TotalSolved: 1}, base)
			require.NoError(t, err)
		}
		_, err := repo.ApplySnapshot(ctx, otherUser, models.PlatformCodeforces, "them", models.Snapshot{}, base)
		require.NoError(t, err)

		keep := []models.Platform{models.PlatformLeetCode}
		removed, err := repo.DeleteByUserAndPlatformsNotIn(ctx, userID, keep)
		require.NoError(t, err)
		assert.ElementsMatch(t, []models.Platform{
			models.PlatformCodeforces, models.PlatformCodeChef, models.PlatformW3Schools,
		}, removed)

		removed, err = repo.DeleteByUserAndPlatformsNotIn(ctx, userID, keep)
		require.NoError(t, err)
		assert.Empty(t, removed)

		_, err = repo.FindByUserAndPlatform(ctx, userID, models.PlatformCodeforces)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = repo.FindByUserAndPlatform(ctx, otherUser, models.PlatformCodeforces)
		assert.NoError(t, err)
	})

	t.Run("empty keep set removes everything", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		_, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "me", models.Snapshot{}, base)
		require.NoError(t, err)

		removed, err := repo.DeleteByUserAndPlatformsNotIn(ctx, userID, nil)
		require.NoError(t, err)
		assert.Equal(t, []models.Platform{models.PlatformLeetCode}, removed)
	})

	t.Run("inactive records are kept but excluded", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		_, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "me", models.Snapshot{TotalSolved: 5}, base)
		require.NoError(t, err)

		n, err := repo.SetActiveFlag(ctx, userID, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		records, err := repo.FindAllActiveByUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, records)

		record, err := repo.FindByUserAndPlatform(ctx, userID, models.PlatformLeetCode)
		require.NoError(t, err)
		assert.False(t, record.IsActive)
		assert.Equal(t, 5, record.Stats.TotalSolved)
	})

	t.Run("stale listing is ordered oldest first", func(t *testing.T) {
		repo := newRepo(t)
		userID := utils.GenerateUserID()

		_, err := repo.ApplySnapshot(ctx, userID, models.PlatformLeetCode, "me", models.Snapshot{}, base.Add(-48*time.Hour))
		require.NoError(t, err)
		_, err = repo.ApplySnapshot(ctx, userID, models.PlatformCodeChef, "me", models.Snapshot{}, base.Add(-72*time.Hour))
		require.NoError(t, err)
		_, err = repo.ApplySnapshot(ctx, userID, models.PlatformW3Schools, "me", models.Snapshot{}, base)
		require.NoError(t, err)

		stale, err := repo.ListStale(ctx, base.Add(-24*time.Hour), 1000)
		require.NoError(t, err)

		var mine []*models.StatsRecord
		for _, r := range stale {
			if r.UserID == userID {
				mine = append(mine, r)
			}
		}
		require.Len(t, mine, 2)
		assert.Equal(t, models.PlatformCodeChef, mine[0].Platform)
		assert.Equal(t, models.PlatformLeetCode, mine[1].Platform)
	})

	t.Run("unsupported platform is rejected by the store", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.ApplySnapshot(ctx, utils.GenerateUserID(), models.Platform("topcoder"), "me", models.Snapshot{}, base)
		assert.ErrorIs(t, err, models.ErrUnsupportedPlatform)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}

func runUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) UserRepository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		user := &models.User{
			Name:      "Alice",
			Email:     "alice@example.com",
			Platforms: models.PlatformUsernames{models.PlatformLeetCode: "alice"},
			IsActive:  true,
		}
		require.NoError(t, repo.Create(ctx, user))
		assert.NotEmpty(t, user.ID)

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, "alice", got.Platforms[models.PlatformLeetCode])
		assert.True(t, got.IsActive)
	})

	t.Run("update platforms", func(t *testing.T) {
		repo := newRepo(t)
		user := &models.User{Name: "Bob", IsActive: true}
		require.NoError(t, repo.Create(ctx, user))

		updated, err := repo.UpdatePlatforms(ctx, user.ID, models.PlatformUsernames{
			models.PlatformCodeforces: "bob_cf",
			models.PlatformCodeChef:   "",
		})
		require.NoError(t, err)
		assert.Equal(t, "bob_cf", updated.Platforms[models.PlatformCodeforces])
		assert.Equal(t, []models.Platform{models.PlatformCodeforces}, updated.Platforms.ActivePlatforms())
	})

	t.Run("deactivate", func(t *testing.T) {
		repo := newRepo(t)
		user := &models.User{Name: "Carol", IsActive: true}
		require.NoError(t, repo.Create(ctx, user))

		require.NoError(t, repo.SetActive(ctx, user.ID, false))
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(ctx, "user-missing")
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		_, err = repo.UpdatePlatforms(ctx, "user-missing", models.PlatformUsernames{})
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		err = repo.SetActive(ctx, "user-missing", false)
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})
}
