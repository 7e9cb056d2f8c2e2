package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"codetracker/pkg/models"
)

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new PostgreSQL stats repository
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

// FindByUserAndPlatform retrieves one record
func (r *statsRepository) FindByUserAndPlatform(ctx context.Context, userID string, platform models.Platform) (*models.StatsRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE user_id = $1 AND platform = $2`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, userID, string(platform)))
	if err != nil {
		return nil, r.mapDBError(err, "find_stats_record")
	}
	return record, nil
}

// FindAllActiveByUser retrieves the user's active records ordered by platform
func (r *statsRepository) FindAllActiveByUser(ctx context.Context, userID string) ([]*models.StatsRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY platform ASC`

	return r.queryRecords(ctx, "find_active_stats_records", query, userID)
}

// Upsert locks (or creates) the record, mutates it and writes it back
func (r *statsRepository) Upsert(ctx context.Context, userID string, platform models.Platform, username string, now time.Time, mutate func(*models.StatsRecord)) (*models.StatsRecord, error) {
	var saved *models.StatsRecord
	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		record, err := r.getRecordForUpdate(ctx, tx, userID, platform, username, now)
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
			SET username = $2,
			    snapshot = $3,
			    history = $4,
			    last_fetched = $5,
			    is_active = $6,
			    fetch_errors = $7,
			    last_error = $8,
			    updated_at = $9
			WHERE id = $1
		`
		result, err := tx.Exec(ctx, query,
			record.ID,
			record.Username,
			snapshot,
			history,
			record.LastFetched,
			record.IsActive,
			record.FetchErrors,
			record.LastError,
			record.UpdatedAt,
		)
		if err != nil {
			return r.mapDBError(err, "update_stats_record")
		}
		if result.RowsAffected() == 0 {
			return r.mapDBError(pgx.ErrNoRows, "update_stats_record")
		}

		saved = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// getRecordForUpdate selects the row FOR UPDATE, inserting an empty one first if needed
func (r *statsRepository) getRecordForUpdate(ctx context.Context, tx pgx.Tx, userID string, platform models.Platform, username string, now time.Time) (*models.StatsRecord, error) {
	selectQuery := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE user_id = $1 AND platform = $2
		FOR UPDATE`

	record, err := scanRecord(tx.QueryRow(ctx, selectQuery, userID, string(platform)))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, r.mapDBError(err, "lock_stats_record")
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, platform) DO NOTHING
	`
	_, err = tx.Exec(ctx, insertQuery,
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
	)
	if err != nil {
		return nil, r.mapDBError(err, "create_stats_record")
	}

	// a concurrent insert may have won; either way the row exists now
	record, err = scanRecord(tx.QueryRow(ctx, selectQuery, userID, string(platform)))
	if err != nil {
		return nil, r.mapDBError(err, "lock_stats_record")
	}
	return record, nil
}

// ApplySnapshot stores a successful fetch
func (r *statsRepository) ApplySnapshot(ctx context.Context, userID string, platform models.Platform, username string, snap models.Snapshot, now time.Time) (*models.StatsRecord, error) {
	return r.Upsert(ctx, userID, platform, username, now, applySnapshotMutation(snap, now))
}

// RecordFetchError stores a failed fetch
func (r *statsRepository) RecordFetchError(ctx context.Context, userID string, platform models.Platform, username, message string, now time.Time) (*models.StatsRecord, error) {
	return r.Upsert(ctx, userID, platform, username, now, recordErrorMutation(message, now))
}

// DeleteByUserAndPlatformsNotIn removes records for platforms outside keep
func (r *statsRepository) DeleteByUserAndPlatformsNotIn(ctx context.Context, userID string, keep []models.Platform) ([]models.Platform, error) {
	query := `
		DELETE FROM stats_records
		WHERE user_id = $1 AND NOT (platform = ANY($2))
		RETURNING platform
	`
	rows, err := r.pool.Query(ctx, query, userID, platformStrings(keep))
	if err != nil {
		return nil, r.mapDBError(err, "delete_stats_records")
	}
	defer rows.Close()

	removed := []models.Platform{}
	for rows.Next() {
		var platform string
		if err := rows.Scan(&platform); err != nil {
			return nil, r.mapDBError(err, "scan_deleted_platform")
		}
		removed = append(removed, models.Platform(platform))
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapDBError(err, "delete_stats_records")
	}
	sortPlatforms(removed)
	return removed, nil
}

// SetActiveFlag bulk-updates is_active for the user
func (r *statsRepository) SetActiveFlag(ctx context.Context, userID string, active bool) (int64, error) {
	query := `
		UPDATE stats_records
		SET is_active = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`
	result, err := r.pool.Exec(ctx, query, userID, active)
	if err != nil {
		return 0, r.mapDBError(err, "set_active_flag")
	}
	return result.RowsAffected(), nil
}

// ListStale uses the last_fetched index to find records due for a refresh
func (r *statsRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.StatsRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM stats_records
		WHERE is_active = TRUE AND last_fetched < $1
		ORDER BY last_fetched ASC
		LIMIT $2`

	return r.queryRecords(ctx, "list_stale_stats_records", query, olderThan, limit)
}

// Ping checks store liveness
func (r *statsRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return r.mapDBError(err, "ping")
	}
	return nil
}

func (r *statsRepository) queryRecords(ctx context.Context, operation, query string, args ...interface{}) ([]*models.StatsRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapDBError(err, operation)
	}
	defer rows.Close()

	records := []*models.StatsRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, r.mapDBError(err, operation)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapDBError(err, operation)
	}
	return records, nil
}

// WithTransaction executes a function within a database transaction
func (r *statsRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.mapDBError(err, "begin_transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return r.mapDBError(err, "commit_transaction")
	}
	return nil
}

// mapDBError maps database errors to API errors
func (r *statsRepository) mapDBError(err error, operation string) error {
	return mapPgError(err, operation, "stats record not found")
}

func mapPgError(err error, operation, notFoundMessage string) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewHTTPError(models.ErrCodeNotFound, notFoundMessage, 404, errors.Join(models.ErrNotFound, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.NewHTTPError(models.ErrCodeConflict, "resource already exists", 409, err)
		case "23503": // foreign_key_violation
			return models.NewHTTPError(models.ErrCodeBadRequest, "invalid relationship", 400, err)
		case "23514": // check_violation
			return models.NewHTTPError(models.ErrCodeValidation, "unsupported platform", 400, errors.Join(models.ErrUnsupportedPlatform, err))
		case "22P02": // invalid_text_representation
			return models.NewHTTPError(models.ErrCodeBadRequest, "invalid input format", 400, err)
		}
	}

	return models.NewHTTPError(models.ErrCodeInternal, "database error during "+operation, 500,
		errors.Join(models.ErrStoreUnavailable, err))
}
