package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codetracker/pkg/logger"
	"codetracker/pkg/models"
)

// Codeforces difficulty buckets by problem rating
const (
	codeforcesEasyMax   = 1200
	codeforcesMediumMax = 1600

	codeforcesStatusCount   = 10000
	codeforcesActivityCount = 20
	codeforcesActivityLimit = 10
)

// Codeforces reads the official public API; it has no fallback tier
type Codeforces struct {
	client  *client
	baseURL string
	timeout time.Duration
}

// NewCodeforces creates the Codeforces fetcher
func NewCodeforces(opts Options) *Codeforces {
	return &Codeforces{
		client:  newClient(opts),
		baseURL: strings.TrimRight(opts.CodeforcesAPI, "/"),
		timeout: opts.Timeout,
	}
}

type cfEnvelope[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  T      `json:"result"`
}

type cfUser struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Rank      string `json:"rank"`
}

type cfSubmission struct {
	ContestID           int    `json:"contestId"`
	CreationTimeSeconds int64  `json:"creationTimeSeconds"`
	Verdict             string `json:"verdict"`
	Problem             struct {
		ContestID int    `json:"contestId"`
		Index     string `json:"index"`
		Name      string `json:"name"`
		Rating    int    `json:"rating"`
	} `json:"problem"`
}

type cfRatingChange struct {
	ContestID int `json:"contestId"`
}

func (f *Codeforces) endpoint(method string, params url.Values) string {
	return f.baseURL + "/" + method + "?" + params.Encode()
}

// FetchUserStats combines user.info, user.status and user.rating
func (f *Codeforces) FetchUserStats(ctx context.Context, username string) (models.Snapshot, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Snapshot{}, wrap(models.PlatformCodeforces, username, "fetch_stats", ErrEmptyUsername)
	}
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	var info cfEnvelope[[]cfUser]
	err := f.client.getJSON(ctx, f.endpoint("user.info", url.Values{"handles": {username}}), &info)
	if err != nil {
		return models.Snapshot{}, wrap(models.PlatformCodeforces, username, "user.info", err)
	}
	if info.Status != "OK" || len(info.Result) == 0 {
		return models.Snapshot{}, wrap(models.PlatformCodeforces, username, "user.info",
			fmt.Errorf("%w: %s", ErrUserNotFound, info.Comment))
	}
	user := info.Result[0]

	var status cfEnvelope[[]cfSubmission]
	params := url.Values{
		"handle": {username},
		"from":   {"1"},
		"count":  {strconv.Itoa(codeforcesStatusCount)},
	}
	if err := f.client.getJSON(ctx, f.endpoint("user.status", params), &status); err != nil {
		return models.Snapshot{}, wrap(models.PlatformCodeforces, username, "user.status", err)
	}

	snap := models.Snapshot{
		Rating:    user.Rating,
		MaxRating: user.MaxRating,
		Rank:      models.LabelRank(models.RankUnrated),
	}
	if user.Rank != "" {
		snap.Rank = models.LabelRank(user.Rank)
	}

	if status.Status == "OK" {
		solved := make(map[string]bool)
		for _, sub := range status.Result {
			if sub.Verdict != "OK" {
				continue
			}
			key := fmt.Sprintf("%d-%s", sub.Problem.ContestID, sub.Problem.Index)
			if solved[key] {
				continue
			}
			solved[key] = true
			switch {
			case sub.Problem.Rating <= codeforcesEasyMax:
				snap.EasySolved++
			case sub.Problem.Rating <= codeforcesMediumMax:
				snap.MediumSolved++
			default:
				snap.HardSolved++
			}
		}
		snap.TotalSolved = len(solved)
	}

	// contest history is optional; users without rated contests simply have none
	var rating cfEnvelope[[]cfRatingChange]
	if err := f.client.getJSON(ctx, f.endpoint("user.rating", url.Values{"handle": {username}}), &rating); err != nil {
		logger.WithFields(map[string]interface{}{
			"platform": models.PlatformCodeforces,
			"username": username,
			"error":    err.Error(),
		}).Debug("no contest data")
	} else if rating.Status == "OK" {
		snap.ContestsParticipated = len(rating.Result)
	}

	return snap.Normalize(), nil
}

// FetchRecentActivity lists recent accepted submissions; upstream failures yield an empty list
func (f *Codeforces) FetchRecentActivity(ctx context.Context, username string) ([]models.Activity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, wrap(models.PlatformCodeforces, username, "fetch_activity", ErrEmptyUsername)
	}
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	params := url.Values{
		"handle": {username},
		"from":   {"1"},
		"count":  {strconv.Itoa(codeforcesActivityCount)},
	}
	var status cfEnvelope[[]cfSubmission]
	if err := f.client.getJSON(ctx, f.endpoint("user.status", params), &status); err != nil || status.Status != "OK" {
		if err != nil {
			logger.Warnf("codeforces activity for %s unavailable: %v", username, err)
		}
		return []models.Activity{}, nil
	}

	out := make([]models.Activity, 0, codeforcesActivityLimit)
	for _, sub := range status.Result {
		if sub.Verdict != "OK" {
			continue
		}
		out = append(out, models.Activity{
			Platform:    models.PlatformCodeforces,
			ProblemName: sub.Problem.Name,
			ContestID:   strconv.Itoa(sub.Problem.ContestID),
			Rating:      sub.Problem.Rating,
			Timestamp:   time.Unix(sub.CreationTimeSeconds, 0).UTC(),
			Solved:      true,
		})
		if len(out) == codeforcesActivityLimit {
			break
		}
	}
	return out, nil
}
