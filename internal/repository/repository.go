// Package repository persists stats records and the user directory. Each
// repository has a PostgreSQL (pgx) and a SQLite (database/sql) implementation.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"codetracker/pkg/models"
)

// StatsRepository is the stats record store, keyed by (user, platform)
type StatsRepository interface {
	FindByUserAndPlatform(ctx context.Context, userID string, platform models.Platform) (*models.StatsRecord, error)
	// FindAllActiveByUser returns active records sorted by platform name
	FindAllActiveByUser(ctx context.Context, userID string) ([]*models.StatsRecord, error)

	// Upsert creates the record if absent, stamped with now, then applies
	// mutate and saves it. The stored username is replaced by username.
	Upsert(ctx context.Context, userID string, platform models.Platform, username string, now time.Time, mutate func(*models.StatsRecord)) (*models.StatsRecord, error)
	ApplySnapshot(ctx context.Context, userID string, platform models.Platform, username string, snap models.Snapshot, now time.Time) (*models.StatsRecord, error)
	RecordFetchError(ctx context.Context, userID string, platform models.Platform, username, message string, now time.Time) (*models.StatsRecord, error)

	// DeleteByUserAndPlatformsNotIn hard-deletes every record of the user whose
	// platform is not in keep and returns the deleted platforms.
	DeleteByUserAndPlatformsNotIn(ctx context.Context, userID string, keep []models.Platform) ([]models.Platform, error)
	// SetActiveFlag flips is_active on every record of the user
	SetActiveFlag(ctx context.Context, userID string, active bool) (int64, error)

	// ListStale returns active records last fetched before olderThan, oldest first
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.StatsRecord, error)

	Ping(ctx context.Context) error
}

// UserRepository is the slice of the user directory the tracker needs
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePlatforms(ctx context.Context, id string, platforms models.PlatformUsernames) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

func applySnapshotMutation(snap models.Snapshot, now time.Time) func(*models.StatsRecord) {
	return func(r *models.StatsRecord) { r.ApplySnapshot(snap, now) }
}

func recordErrorMutation(message string, now time.Time) func(*models.StatsRecord) {
	return func(r *models.StatsRecord) { r.RecordFetchError(message, now) }
}

func platformStrings(platforms []models.Platform) []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}

func sortPlatforms(platforms []models.Platform) {
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
}

// recordColumns is the column order every scan relies on
const recordColumns = `id, user_id, platform, username, snapshot, history, last_fetched,
		is_active, fetch_errors, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.StatsRecord, error) {
	var (
		r        models.StatsRecord
		platform string
		snapshot []byte
		history  []byte
	)
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&platform,
		&r.Username,
		&snapshot,
		&history,
		&r.LastFetched,
		&r.IsActive,
		&r.FetchErrors,
		&r.LastError,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Platform = models.Platform(platform)
	if err := decodeRecordJSON(&r, snapshot, history); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeRecordJSON(r *models.StatsRecord, snapshot, history []byte) error {
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &r.Stats); err != nil {
			return fmt.Errorf("failed to decode snapshot: %w", err)
		}
	}
	r.History = []models.HistoryEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &r.History); err != nil {
			return fmt.Errorf("failed to decode history: %w", err)
		}
	}
	return nil
}

func encodeRecordJSON(r *models.StatsRecord) (snapshot string, history string, err error) {
	s, err := json.Marshal(r.Stats)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	entries := r.History
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	h, err := json.Marshal(entries)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode history: %w", err)
	}
	return string(s), string(h), nil
}

func encodePlatforms(p models.PlatformUsernames) (string, error) {
	if p == nil {
		p = models.PlatformUsernames{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode platforms: %w", err)
	}
	return string(data), nil
}

func decodePlatforms(data []byte) (models.PlatformUsernames, error) {
	out := models.PlatformUsernames{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode platforms: %w", err)
	}
	return out, nil
}
