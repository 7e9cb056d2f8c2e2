// Package fetcher turns a platform username into a normalized statistics
// snapshot. Each platform has its own Fetcher; Set binds the closed
// models.Platform enum to them.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codetracker/pkg/models"
)

// Fetcher is the uniform contract every platform implementation satisfies
type Fetcher interface {
	FetchUserStats(ctx context.Context, username string) (models.Snapshot, error)
	FetchRecentActivity(ctx context.Context, username string) ([]models.Activity, error)
}

var (
	ErrUserNotFound   = errors.New("user not found on platform")
	ErrUpstream       = errors.New("upstream request failed")
	ErrMalformed      = errors.New("malformed upstream response")
	ErrEmptyUsername  = errors.New("username is required")
	ErrNoFetcherBound = errors.New("no fetcher bound for platform")
)

// Error wraps every failure a fetcher returns
type Error struct {
	Platform models.Platform
	Username string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s for %q: %v", e.Platform, e.Op, e.Username, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(platform models.Platform, username, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Platform: platform, Username: username, Op: op, Err: err}
}

// Options configures the HTTP-backed fetchers
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	LeetCodeAlfaURL   string
	LeetCodeGraphQL   string
	CodeforcesAPI     string
	CodeChefURL       string
	// Placeholders enables the deterministic last-resort tier
	Placeholders bool
}

// DefaultOptions points at the public endpoints
func DefaultOptions() Options {
	return Options{
		Timeout:           15 * time.Second,
		RequestsPerSecond: 2,
		UserAgent:         "CodeTracker/1.0",
		LeetCodeAlfaURL:   "https://alfa-leetcode-api.onrender.com",
		LeetCodeGraphQL:   "https://leetcode.com/graphql",
		CodeforcesAPI:     "https://codeforces.com/api",
		CodeChefURL:       "https://www.codechef.com",
		Placeholders:      true,
	}
}

// Set holds exactly one Fetcher per supported platform
type Set struct {
	LeetCode   Fetcher
	Codeforces Fetcher
	CodeChef   Fetcher
	W3Schools  Fetcher
}

// NewSet builds the production fetchers from opts
func NewSet(opts Options) *Set {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Set{
		LeetCode:   NewLeetCode(opts),
		Codeforces: NewCodeforces(opts),
		CodeChef:   NewCodeChef(opts),
		W3Schools:  NewW3Schools(opts),
	}
}

// For returns the fetcher bound to platform
func (s *Set) For(platform models.Platform) (Fetcher, error) {
	var f Fetcher
	switch platform {
	case models.PlatformLeetCode:
		f = s.LeetCode
	case models.PlatformCodeforces:
		f = s.Codeforces
	case models.PlatformCodeChef:
		f = s.CodeChef
	case models.PlatformW3Schools:
		f = s.W3Schools
	default:
		return nil, fmt.Errorf("platform %s is not supported: %w", platform, models.ErrUnsupportedPlatform)
	}
	if f == nil {
		return nil, fmt.Errorf("%s: %w", platform, ErrNoFetcherBound)
	}
	return f, nil
}

// withTimeout bounds a single fetcher call
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultOptions().Timeout
	}
	return context.WithTimeout(ctx, d)
}
