package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"codetracker/pkg/logger"
	"codetracker/pkg/models"
)

var (
	firstNumber     = regexp.MustCompile(`\d+`)
	totalSolvedText = regexp.MustCompile(`(?i)total problems solved:\s*(\d+)`)
	contestsText    = regexp.MustCompile(`(?i)contests\s*\((\d+)\)`)
)

// CodeChef scrapes the public profile page and falls back to a placeholder
type CodeChef struct {
	client       *client
	baseURL      string
	timeout      time.Duration
	placeholders bool
}

// NewCodeChef creates the CodeChef fetcher
func NewCodeChef(opts Options) *CodeChef {
	return &CodeChef{
		client:       newClient(opts),
		baseURL:      strings.TrimRight(opts.CodeChefURL, "/"),
		timeout:      opts.Timeout,
		placeholders: opts.Placeholders,
	}
}

// FetchUserStats scrapes /users/{username}
func (f *CodeChef) FetchUserStats(ctx context.Context, username string) (models.Snapshot, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Snapshot{}, wrap(models.PlatformCodeChef, username, "fetch_stats", ErrEmptyUsername)
	}
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	snap, err := f.fromProfile(ctx, username)
	if err == nil {
		return snap, nil
	}
	if f.placeholders && ctx.Err() == nil {
		logger.WithFields(map[string]interface{}{
			"platform": models.PlatformCodeChef,
			"username": username,
			"error":    err.Error(),
		}).Debug("profile scrape failed, using placeholder")
		return codeChefPlaceholder(username), nil
	}
	return models.Snapshot{}, wrap(models.PlatformCodeChef, username, "scrape_profile", err)
}

func (f *CodeChef) fromProfile(ctx context.Context, username string) (models.Snapshot, error) {
	if f.baseURL == "" {
		return models.Snapshot{}, fmt.Errorf("profile scraping disabled")
	}
	doc, err := f.client.getHTML(ctx, f.baseURL+"/users/"+url.PathEscape(username))
	if err != nil {
		return models.Snapshot{}, err
	}
	return parseCodeChefProfile(doc)
}

func parseCodeChefProfile(doc *goquery.Document) (models.Snapshot, error) {
	ratingText := strings.TrimSpace(doc.Find(".rating-number").First().Text())
	if ratingText == "" {
		return models.Snapshot{}, fmt.Errorf("%w: rating block missing", ErrUserNotFound)
	}

	var snap models.Snapshot
	snap.Rating = atoiFirst(ratingText)
	snap.MaxRating = snap.Rating
	if highest := doc.Find(".rating-header small").First().Text(); highest != "" {
		if v := atoiFirst(highest); v > snap.MaxRating {
			snap.MaxRating = v
		}
	}

	snap.Rank = models.LabelRank(models.RankUnrated)
	if global := strings.TrimSpace(doc.Find(".rating-ranks ul li").First().Find("strong").Text()); global != "" {
		if v := atoiFirst(global); v > 0 {
			snap.Rank = models.NumericRank(int64(v))
		}
	}

	doc.Find("section.rating-data-section h3, section.problems-solved h3").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if m := totalSolvedText.FindStringSubmatch(text); m != nil {
			snap.TotalSolved, _ = strconv.Atoi(m[1])
		}
		if m := contestsText.FindStringSubmatch(text); m != nil {
			snap.ContestsParticipated, _ = strconv.Atoi(m[1])
		}
	})

	return snap.Normalize(), nil
}

func atoiFirst(s string) int {
	m := firstNumber.FindString(strings.ReplaceAll(s, ",", ""))
	if m == "" {
		return 0
	}
	v, _ := strconv.Atoi(m)
	return v
}

// FetchRecentActivity has no upstream source; it returns a fixed sample
func (f *CodeChef) FetchRecentActivity(ctx context.Context, username string) ([]models.Activity, error) {
	if strings.TrimSpace(username) == "" {
		return nil, wrap(models.PlatformCodeChef, username, "fetch_activity", ErrEmptyUsername)
	}
	now := time.Now()
	return []models.Activity{
		{
			Platform:    models.PlatformCodeChef,
			ProblemName: "Chef and Numbers",
			ContestID:   "PRACTICE",
			Difficulty:  "Easy",
			Timestamp:   now.Add(-24 * time.Hour),
			Solved:      true,
		},
		{
			Platform:    models.PlatformCodeChef,
			ProblemName: "Maximum Subarray",
			ContestID:   "LONG",
			Difficulty:  "Medium",
			Timestamp:   now.Add(-48 * time.Hour),
			Solved:      true,
		},
	}, nil
}
