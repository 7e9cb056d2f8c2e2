package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codetracker/pkg/models"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Create inserts a new user; an empty ID is generated
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
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

	query := `
		INSERT INTO users (id, name, email, platforms, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		platforms,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return r.mapDBError(err, "create_user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, email, platforms, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.mapDBError(err, "get_user_by_id")
	}
	return user, nil
}

// UpdatePlatforms replaces the stored platform map
func (r *userRepository) UpdatePlatforms(ctx context.Context, id string, platforms models.PlatformUsernames) (*models.User, error) {
	encoded, err := encodePlatforms(platforms)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE users
		SET platforms = $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING id, name, email, platforms, is_active, created_at, updated_at
	`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id, encoded, time.Now().UTC()))
	if err != nil {
		return nil, r.mapDBError(err, "update_user_platforms")
	}
	return user, nil
}

// SetActive flips the account flag
func (r *userRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE users
		SET is_active = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return r.mapDBError(err, "set_user_active")
	}
	if result.RowsAffected() == 0 {
		return r.mapDBError(pgx.ErrNoRows, "set_user_active")
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		platforms []byte
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&platforms,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	decoded, err := decodePlatforms(platforms)
	if err != nil {
		return nil, err
	}
	user.Platforms = decoded
	return &user, nil
}

// mapDBError maps database errors, reporting missing rows as ErrUserNotFound
func (r *userRepository) mapDBError(err error, operation string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, errors.Join(models.ErrUserNotFound, err))
	}
	return mapPgError(err, operation, "user not found")
}
