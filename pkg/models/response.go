package models

import "time"

// APIResponse is the generic REST envelope
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// UpdatePlatformsResponse is returned once the profile is saved; stats refresh in the background
type UpdatePlatformsResponse struct {
	User          *User          `json:"user"`
	Cleanup       *CleanupResult `json:"cleanup"`
	RefreshTaskID string         `json:"refreshTaskId,omitempty"`
	Note          string         `json:"note"`
}

// HealthStatus is returned by /health
type HealthStatus struct {
	Status string    `json:"status"`
	Store  string    `json:"store"`
	Time   time.Time `json:"time"`
}
