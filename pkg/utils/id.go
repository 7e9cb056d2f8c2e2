package utils

import "github.com/google/uuid"

// GenerateID returns a prefixed random ID (e.g. "stats-6f1c...")
func GenerateID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// GenerateStatsID creates a stats-record ID
func GenerateStatsID() string {
	return GenerateID("stats")
}

// GenerateUserID creates a user ID
func GenerateUserID() string {
	return GenerateID("user")
}

// GenerateTaskID creates a background task ID
func GenerateTaskID() string {
	return GenerateID("task")
}
