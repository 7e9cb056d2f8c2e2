package models

import (
	"fmt"
	"strings"
	"time"
)

// User is the slice of the user directory the tracker consumes
type User struct {
	ID        string            `json:"id" db:"id"`
	Name      string            `json:"name" db:"name"`
	Email     string            `json:"email" db:"email"`
	Platforms PlatformUsernames `json:"platforms" db:"platforms"`
	IsActive  bool              `json:"isActive" db:"is_active"`
	CreatedAt time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time         `json:"updatedAt" db:"updated_at"`
}

// UpdatePlatformsRequest is the body of PUT /user/platforms
type UpdatePlatformsRequest struct {
	Platforms map[string]string `json:"platforms" binding:"required"`
}

// DeleteAccountRequest is the body of DELETE /user/account
type DeleteAccountRequest struct {
	ConfirmDelete string `json:"confirmDelete"`
}

// ConfirmDeleteToken must be echoed back to deactivate an account
const ConfirmDeleteToken = "DELETE"

// UserProfile bundles the user with the aggregated totals
type UserProfile struct {
	User        *User          `json:"user"`
	Stats       AggregatedView `json:"stats"`
	LastUpdated *time.Time     `json:"lastUpdated"`
}

// NormalizePlatformUpdate keeps only supported platform keys, trims usernames
// and enforces the length cap.
func NormalizePlatformUpdate(raw map[string]string) (PlatformUsernames, error) {
	out := make(PlatformUsernames, len(raw))
	for key, username := range raw {
		platform, err := ParsePlatform(key)
		if err != nil {
			continue
		}
		username = strings.TrimSpace(username)
		if len(username) > MaxPlatformUsernameLength {
			return nil, fmt.Errorf("%s username cannot exceed %d characters: %w",
				platform, MaxPlatformUsernameLength, ErrInvalidInput)
		}
		out[platform] = username
	}
	return out, nil
}
