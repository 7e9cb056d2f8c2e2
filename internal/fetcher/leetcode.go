package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"codetracker/pkg/logger"
	"codetracker/pkg/models"
)

const leetCodeProfileQuery = `
query getUserProfile($username: String!) {
  matchedUser(username: $username) {
    username
    submitStats {
      acSubmissionNum {
        difficulty
        count
      }
    }
    profile {
      ranking
    }
  }
}`

// LeetCode tries the community alfa API, then the official GraphQL
// endpoint, then (if enabled) a deterministic placeholder.
type LeetCode struct {
	client       *client
	alfaURL      string
	graphqlURL   string
	timeout      time.Duration
	placeholders bool
}

// NewLeetCode creates the LeetCode fetcher
func NewLeetCode(opts Options) *LeetCode {
	return &LeetCode{
		client:       newClient(opts),
		alfaURL:      strings.TrimRight(opts.LeetCodeAlfaURL, "/"),
		graphqlURL:   opts.LeetCodeGraphQL,
		timeout:      opts.Timeout,
		placeholders: opts.Placeholders,
	}
}

type alfaProfile struct {
	Username      string `json:"username"`
	TotalSolved   int    `json:"totalSolved"`
	EasySolved    int    `json:"easySolved"`
	MediumSolved  int    `json:"mediumSolved"`
	HardSolved    int    `json:"hardSolved"`
	Ranking       int64  `json:"ranking"`
	ContestAttend int    `json:"contestAttend"`
}

type graphqlResponse struct {
	Data struct {
		MatchedUser *struct {
			Username    string `json:"username"`
			SubmitStats struct {
				AcSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStats"`
			Profile struct {
				Ranking int64 `json:"ranking"`
			} `json:"profile"`
		} `json:"matchedUser"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchUserStats returns the first tier that produces data
func (f *LeetCode) FetchUserStats(ctx context.Context, username string) (models.Snapshot, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Snapshot{}, wrap(models.PlatformLeetCode, username, "fetch_stats", ErrEmptyUsername)
	}
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	snap, alfaErr := f.fromAlfa(ctx, username)
	if alfaErr == nil {
		return snap, nil
	}
	logger.WithFields(map[string]interface{}{
		"platform": models.PlatformLeetCode,
		"username": username,
		"error":    alfaErr.Error(),
	}).Debug("alfa api tier failed")

	snap, gqlErr := f.fromGraphQL(ctx, username)
	if gqlErr == nil {
		return snap, nil
	}
	logger.WithFields(map[string]interface{}{
		"platform": models.PlatformLeetCode,
		"username": username,
		"error":    gqlErr.Error(),
	}).Debug("graphql tier failed")

	if f.placeholders && ctx.Err() == nil {
		return leetCodePlaceholder(username), nil
	}
	return models.Snapshot{}, wrap(models.PlatformLeetCode, username, "fetch_stats", errors.Join(alfaErr, gqlErr))
}

func (f *LeetCode) fromAlfa(ctx context.Context, username string) (models.Snapshot, error) {
	if f.alfaURL == "" {
		return models.Snapshot{}, fmt.Errorf("alfa api disabled")
	}
	var profile alfaProfile
	if err := f.client.getJSON(ctx, f.alfaURL+"/userProfile/"+url.PathEscape(username), &profile); err != nil {
		return models.Snapshot{}, err
	}
	if profile.TotalSolved == 0 {
		return models.Snapshot{}, fmt.Errorf("%w: alfa api returned no solved count", ErrUserNotFound)
	}
	return models.Snapshot{
		TotalSolved:          profile.TotalSolved,
		EasySolved:           profile.EasySolved,
		MediumSolved:         profile.MediumSolved,
		HardSolved:           profile.HardSolved,
		Rank:                 models.NumericRank(profile.Ranking),
		ContestsParticipated: profile.ContestAttend,
	}.Normalize(), nil
}

func (f *LeetCode) fromGraphQL(ctx context.Context, username string) (models.Snapshot, error) {
	if f.graphqlURL == "" {
		return models.Snapshot{}, fmt.Errorf("graphql endpoint disabled")
	}
	body := map[string]interface{}{
		"query":     leetCodeProfileQuery,
		"variables": map[string]string{"username": username},
	}
	headers := map[string]string{"Referer": "https://leetcode.com"}

	var resp graphqlResponse
	if err := f.client.postJSON(ctx, f.graphqlURL, body, &resp, headers); err != nil {
		return models.Snapshot{}, err
	}
	if len(resp.Errors) > 0 {
		return models.Snapshot{}, fmt.Errorf("%w: graphql: %s", ErrUpstream, resp.Errors[0].Message)
	}
	user := resp.Data.MatchedUser
	if user == nil {
		return models.Snapshot{}, ErrUserNotFound
	}

	var snap models.Snapshot
	for _, stat := range user.SubmitStats.AcSubmissionNum {
		switch strings.ToLower(stat.Difficulty) {
		case "easy":
			snap.EasySolved = stat.Count
		case "medium":
			snap.MediumSolved = stat.Count
		case "hard":
			snap.HardSolved = stat.Count
		case "all":
			snap.TotalSolved = stat.Count
		}
	}
	if snap.TotalSolved == 0 {
		snap.TotalSolved = snap.EasySolved + snap.MediumSolved + snap.HardSolved
	}
	snap.Rank = models.NumericRank(user.Profile.Ranking)
	return snap.Normalize(), nil
}

var leetCodeRecent = []string{
	"Two Sum",
	"Add Two Numbers",
	"Longest Substring Without Repeating Characters",
}

// FetchRecentActivity has no upstream source; it returns a fixed sample
func (f *LeetCode) FetchRecentActivity(ctx context.Context, username string) ([]models.Activity, error) {
	if strings.TrimSpace(username) == "" {
		return nil, wrap(models.PlatformLeetCode, username, "fetch_activity", ErrEmptyUsername)
	}
	difficulties := []string{"Easy", "Medium", "Hard"}
	now := time.Now()
	out := make([]models.Activity, 0, len(leetCodeRecent))
	for i, name := range leetCodeRecent {
		out = append(out, models.Activity{
			Platform:    models.PlatformLeetCode,
			ProblemName: name,
			Difficulty:  difficulties[i%len(difficulties)],
			Timestamp:   now.Add(-time.Duration(i+1) * 24 * time.Hour),
			Solved:      true,
		})
	}
	return out, nil
}
