package fetcher

import (
	"context"
	"strings"
	"time"

	"codetracker/pkg/models"
)

// W3Schools has no public API; progress is a deterministic function of the username
type W3Schools struct {
	placeholders bool
}

// NewW3Schools creates the W3Schools fetcher
func NewW3Schools(opts Options) *W3Schools {
	return &W3Schools{placeholders: opts.Placeholders}
}

// FetchUserStats derives lesson progress from the username
func (f *W3Schools) FetchUserStats(ctx context.Context, username string) (models.Snapshot, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Snapshot{}, wrap(models.PlatformW3Schools, username, "fetch_stats", ErrEmptyUsername)
	}
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, wrap(models.PlatformW3Schools, username, "fetch_stats", err)
	}
	if !f.placeholders {
		return models.Snapshot{}, wrap(models.PlatformW3Schools, username, "fetch_stats", ErrUpstream)
	}
	return w3SchoolsPlaceholder(username), nil
}

// FetchRecentActivity returns the first lessons of the tutorial track
func (f *W3Schools) FetchRecentActivity(ctx context.Context, username string) ([]models.Activity, error) {
	if strings.TrimSpace(username) == "" {
		return nil, wrap(models.PlatformW3Schools, username, "fetch_activity", ErrEmptyUsername)
	}
	lessons := []string{"HTML Basic Tutorial", "CSS Flexbox", "JavaScript Arrays"}
	now := time.Now()
	out := make([]models.Activity, 0, len(lessons))
	for i, lesson := range lessons {
		out = append(out, models.Activity{
			Platform:    models.PlatformW3Schools,
			ProblemName: lesson,
			ContestID:   strings.ToLower(strings.Fields(lesson)[0]),
			Timestamp:   now.Add(-time.Duration(i+1) * 24 * time.Hour),
			Solved:      true,
		})
	}
	return out, nil
}
