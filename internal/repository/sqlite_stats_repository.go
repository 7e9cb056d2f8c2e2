package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"codetracker/pkg/database"
	"codetracker/pkg/models"
)

type sqliteStatsRepository struct {
	db *database.DB
}

// NewSQLiteStatsRepository creates a stats repository over SQLite
func NewSQLiteStatsRepository(db *database.DB) StatsRepository {
	return &sqliteStatsRepository{db: db}
}

func (r *sqliteStatsRepository) FindByUserAndPlatform(ctx context.Context, userID string, platform models.Platform) (*models.StatsRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE user_id = ? AND platform = ?`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, userID, string(platform)))
	if err != nil {
		return nil, mapSQLiteError(err, "find_stats_record", "stats record not found")
	}
	return record, nil
}

func (r *sqliteStatsRepository) FindAllActiveByUser(ctx context.Context, userID string) ([]*models.StatsRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE user_id = ? AND is_active = 1
		ORDER BY platform ASC`

	return r.queryRecords(ctx, "find_active_stats_records", query, userID)
}

func (r *sqliteStatsRepository) Upsert(ctx context.Context, userID string, platform models.Platform, username string, now time.Time, mutate func(*models.StatsRecord)) (*models.StatsRecord, error) {
	var saved *models.StatsRecord
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		record, err := r.getOrCreate(ctx, tx, userID, platform, username, now)
		if err != nil {
			return err
		}

		record.Username = username
		if mutate != nil {
			mutate(record)
		}

		snapshot, history, err := encodeRecordJSON(record)
		if err != nil {
			return err
		}

		query := `
			UPDATE stats_records
			SET username = ?, snapshot = ?, history = ?, last_fetched = ?,
			    is_active = ?, fetch_errors = ?, last_error = ?, updated_at = ?
			WHERE id = ?
		`
		if _, err := tx.ExecContext(ctx, query,
			record.Username,
			snapshot,
			history,
			record.LastFetched.UTC(),
			record.IsActive,
			record.FetchErrors,
			record.LastError,
			record.UpdatedAt.UTC(),
			record.ID,
		); err != nil {
			return mapSQLiteError(err, "update_stats_record", "stats record not found")
		}

		saved = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *sqliteStatsRepository) getOrCreate(ctx context.Context, tx *sql.Tx, userID string, platform models.Platform, username string, now time.Time) (*models.StatsRecord, error) {
	selectQuery := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE user_id = ? AND platform = ?`

	record, err := scanRecord(tx.QueryRowContext(ctx, selectQuery, userID, string(platform)))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapSQLiteError(err, "find_stats_record", "stats record not found")
	}

	fresh := models.NewStatsRecord(userID, platform, username, now.UTC())
	fresh.ID = newRecordID()
	snapshot, history, err := encodeRecordJSON(fresh)
	if err != nil {
		return nil, err
	}

	insertQuery := `
		INSERT INTO stats_records (id, user_id, platform, username, snapshot, history,
			last_fetched, is_active, fetch_errors, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, platform) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insertQuery,
		fresh.ID,
		fresh.UserID,
		string(fresh.Platform),
		fresh.Username,
		snapshot,
		history,
		fresh.LastFetched,
		fresh.IsActive,
		fresh.FetchErrors,
		fresh.LastError,
		fresh.CreatedAt,
		fresh.UpdatedAt,
	); err != nil {
		return nil, mapSQLiteError(err, "create_stats_record", "stats record not found")
	}

	record, err = scanRecord(tx.QueryRowContext(ctx, selectQuery, userID, string(platform)))
	if err != nil {
		return nil, mapSQLiteError(err, "find_stats_record", "stats record not found")
	}
	return record, nil
}

func (r *sqliteStatsRepository) ApplySnapshot(ctx context.Context, userID string, platform models.Platform, username string, snap models.Snapshot, now time.Time) (*models.StatsRecord, error) {
	return r.Upsert(ctx, userID, platform, username, now, applySnapshotMutation(snap, now))
}

func (r *sqliteStatsRepository) RecordFetchError(ctx context.Context, userID string, platform models.Platform, username, message string, now time.Time) (*models.StatsRecord, error) {
	return r.Upsert(ctx, userID, platform, username, now, recordErrorMutation(message, now))
}

func (r *sqliteStatsRepository) DeleteByUserAndPlatformsNotIn(ctx context.Context, userID string, keep []models.Platform) ([]models.Platform, error) {
	kept := make(map[models.Platform]bool, len(keep))
	for _, p := range keep {
		kept[p] = true
	}

	removed := []models.Platform{}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT platform FROM stats_records WHERE user_id = ?`, userID)
		if err != nil {
			return mapSQLiteError(err, "list_user_platforms", "stats record not found")
		}
		var stale []models.Platform
		for rows.Next() {
			var platform string
			if err := rows.Scan(&platform); err != nil {
				rows.Close()
				return mapSQLiteError(err, "scan_user_platform", "stats record not found")
			}
			if !kept[models.Platform(platform)] {
				stale = append(stale, models.Platform(platform))
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return mapSQLiteError(err, "list_user_platforms", "stats record not found")
		}

		for _, platform := range stale {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM stats_records WHERE user_id = ? AND platform = ?`, userID, string(platform)); err != nil {
				return mapSQLiteError(err, "delete_stats_records", "stats record not found")
			}
			removed = append(removed, platform)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortPlatforms(removed)
	return removed, nil
}

func (r *sqliteStatsRepository) SetActiveFlag(ctx context.Context, userID string, active bool) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stats_records SET is_active = ?, updated_at = ? WHERE user_id = ?`,
		active, time.Now().UTC(), userID)
	if err != nil {
		return 0, mapSQLiteError(err, "set_active_flag", "stats record not found")
	}
	return result.RowsAffected()
}

func (r *sqliteStatsRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.StatsRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE is_active = 1 AND last_fetched < ?
		ORDER BY last_fetched ASC
		LIMIT ?`

	return r.queryRecords(ctx, "list_stale_stats_records", query, olderThan.UTC(), limit)
}

func (r *sqliteStatsRepository) Ping(ctx context.Context) error {
	if err := r.db.HealthCheck(ctx); err != nil {
		return mapSQLiteError(err, "ping", "")
	}
	return nil
}

func (r *sqliteStatsRepository) queryRecords(ctx context.Context, operation, query string, args ...interface{}) ([]*models.StatsRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err, operation, "stats record not found")
	}
	defer rows.Close()

	records := []*models.StatsRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, mapSQLiteError(err, operation, "stats record not found")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err, operation, "stats record not found")
	}
	return records, nil
}

func (r *sqliteStatsRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return withSQLTx(ctx, r.db, fn)
}

func withSQLTx(ctx context.Context, db *database.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteError(err, "begin_transaction", "")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteError(err, "commit_transaction", "")
	}
	return nil
}

// mapSQLiteError maps database/sql and SQLite constraint errors to API errors
func mapSQLiteError(err error, operation, notFoundMessage string) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewHTTPError(models.ErrCodeNotFound, notFoundMessage, 404, errors.Join(models.ErrNotFound, err))
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return models.NewHTTPError(models.ErrCodeConflict, "resource already exists", 409, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return models.NewHTTPError(models.ErrCodeValidation, "unsupported platform", 400, errors.Join(models.ErrUnsupportedPlatform, err))
	}

	return models.NewHTTPError(models.ErrCodeInternal, "database error during "+operation, 500,
		errors.Join(models.ErrStoreUnavailable, err))
}
