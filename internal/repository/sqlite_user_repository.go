package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codetracker/pkg/database"
	"codetracker/pkg/models"
)

type sqliteUserRepository struct {
	db *database.DB
}

// NewSQLiteUserRepository creates a user repository over SQLite
func NewSQLiteUserRepository(db *database.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newUserID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	platforms, err := encodePlatforms(user.Platforms)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, platforms, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		platforms,
		user.IsActive,
		user.CreatedAt.UTC(),
		user.UpdatedAt,
	)
	if err != nil {
		return r.mapDBError(err, "create_user")
	}
	return nil
}

func (r *sqliteUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, platforms, is_active, created_at, updated_at
		FROM users
		WHERE id = ?`, id))
	if err != nil {
		return nil, r.mapDBError(err, "get_user_by_id")
	}
	return user, nil
}

func (r *sqliteUserRepository) UpdatePlatforms(ctx context.Context, id string, platforms models.PlatformUsernames) (*models.User, error) {
	encoded, err := encodePlatforms(platforms)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET platforms = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), id)
	if err != nil {
		return nil, r.mapDBError(err, "update_user_platforms")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, r.mapDBError(sql.ErrNoRows, "update_user_platforms")
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return r.mapDBError(err, "set_user_active")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return r.mapDBError(sql.ErrNoRows, "set_user_active")
	}
	return nil
}

func (r *sqliteUserRepository) mapDBError(err error, operation string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, errors.Join(models.ErrUserNotFound, err))
	}
	return mapSQLiteError(err, operation, "user not found")
}
