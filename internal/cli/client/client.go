// Package client is the tracker CLI's REST client
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"codetracker/pkg/models"
)

// ErrNotLoggedIn is returned when no token is configured
var ErrNotLoggedIn = errors.New("no token configured, run: tracker config set user.token <token>")

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the tracker REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// New creates a client for baseURL authenticating with token
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// FromConfig builds a client from the CLI's viper settings
func FromConfig() (*Client, error) {
	token := viper.GetString("user.token")
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	return New(viper.GetString("server.url"), token), nil
}

// Do sends a request and decodes the envelope's data into out
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) (string, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "unreadable response"}
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return env.Message, nil
}

// Stats returns the stored cross-platform view
func (c *Client) Stats(ctx context.Context) (*models.UserStats, error) {
	var view models.UserStats
	if _, err := c.Do(ctx, http.MethodGet, "/api/v1/user/stats", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Refresh fetches every configured platform now
func (c *Client) Refresh(ctx context.Context) (*models.RefreshResults, error) {
	var out models.RefreshResults
	if _, err := c.Do(ctx, http.MethodPost, "/api/v1/user/refresh-stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePlatforms sets platform usernames; an empty username removes the platform
func (c *Client) UpdatePlatforms(ctx context.Context, platforms map[string]string) (*models.UpdatePlatformsResponse, error) {
	var out models.UpdatePlatformsResponse
	body := models.UpdatePlatformsRequest{Platforms: platforms}
	if _, err := c.Do(ctx, http.MethodPut, "/api/v1/user/platforms", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the user and aggregated totals
func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	var out models.UserProfile
	if _, err := c.Do(ctx, http.MethodGet, "/api/v1/user/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activity lists recent solves on platform
func (c *Client) Activity(ctx context.Context, platform string) ([]models.Activity, error) {
	var out struct {
		Activity []models.Activity `json:"activity"`
	}
	if _, err := c.Do(ctx, http.MethodGet, "/api/v1/user/activity/"+platform, nil, &out); err != nil {
		return nil, err
	}
	return out.Activity, nil
}

// DeleteAccount deactivates the account; confirm must be "DELETE"
func (c *Client) DeleteAccount(ctx context.Context, confirm string) error {
	body := models.DeleteAccountRequest{ConfirmDelete: confirm}
	_, err := c.Do(ctx, http.MethodDelete, "/api/v1/user/account", body, nil)
	return err
}
