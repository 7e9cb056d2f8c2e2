package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MaxHistoryEntries bounds StatsRecord.History; oldest entries are evicted first
const MaxHistoryEntries = 30

// RankUnrated is the sentinel used by platforms that have no rank for a user
const RankUnrated = "unrated"

// Rank is either a numeric position or a textual sentinel such as "unrated".
// It encodes to JSON as a number or a string accordingly.
type Rank struct {
	Value int64
	Label string
}

// NumericRank builds a numeric rank; negatives clamp to 0
func NumericRank(v int64) Rank {
	if v < 0 {
		v = 0
	}
	return Rank{Value: v}
}

// LabelRank builds a textual rank
func LabelRank(label string) Rank {
	return Rank{Label: label}
}

// IsNumeric reports whether the rank carries a number rather than a label
func (r Rank) IsNumeric() bool { return r.Label == "" }

func (r Rank) String() string {
	if r.IsNumeric() {
		return strconv.FormatInt(r.Value, 10)
	}
	return r.Label
}

func (r Rank) MarshalJSON() ([]byte, error) {
	if r.IsNumeric() {
		return []byte(strconv.FormatInt(r.Value, 10)), nil
	}
	return json.Marshal(r.Label)
}

func (r *Rank) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Rank{}
		return nil
	}
	if data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		if n, err := strconv.ParseInt(label, 10, 64); err == nil {
			*r = NumericRank(n)
			return nil
		}
		*r = LabelRank(label)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("rank must be a number or string: %w", err)
	}
	*r = NumericRank(int64(f))
	return nil
}

// Snapshot is one normalized statistics reading for a user on a platform
type Snapshot struct {
	TotalSolved          int  `json:"totalSolved"`
	EasySolved           int  `json:"easySolved"`
	MediumSolved         int  `json:"mediumSolved"`
	HardSolved           int  `json:"hardSolved"`
	Rating               int  `json:"rating"`
	MaxRating            int  `json:"maxRating"`
	Rank                 Rank `json:"rank"`
	Streak               int  `json:"streak"`
	ContestsParticipated int  `json:"contestsParticipated"`
}

// Normalize clamps every numeric field to be non-negative
func (s Snapshot) Normalize() Snapshot {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		return v
	}
	s.TotalSolved = clamp(s.TotalSolved)
	s.EasySolved = clamp(s.EasySolved)
	s.MediumSolved = clamp(s.MediumSolved)
	s.HardSolved = clamp(s.HardSolved)
	s.Rating = clamp(s.Rating)
	s.MaxRating = clamp(s.MaxRating)
	s.Streak = clamp(s.Streak)
	s.ContestsParticipated = clamp(s.ContestsParticipated)
	if s.Rank.IsNumeric() && s.Rank.Value < 0 {
		s.Rank.Value = 0
	}
	return s
}

// HistoryEntry is an archived snapshot kept for trend charts
type HistoryEntry struct {
	Date         time.Time `json:"date"`
	TotalSolved  int       `json:"totalSolved"`
	Rating       int       `json:"rating"`
	EasySolved   int       `json:"easySolved"`
	MediumSolved int       `json:"mediumSolved"`
	HardSolved   int       `json:"hardSolved"`
}

// StatsRecord holds one user's statistics on one platform
type StatsRecord struct {
	ID          string         `json:"id" db:"id"`
	UserID      string         `json:"userId" db:"user_id"`
	Platform    Platform       `json:"platform" db:"platform"`
	Username    string         `json:"username" db:"username"`
	Stats       Snapshot       `json:"stats" db:"snapshot"`
	History     []HistoryEntry `json:"history" db:"history"`
	LastFetched time.Time      `json:"lastFetched" db:"last_fetched"`
	IsActive    bool           `json:"isActive" db:"is_active"`
	FetchErrors int            `json:"fetchErrors" db:"fetch_errors"`
	LastError   string         `json:"lastError" db:"last_error"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// NewStatsRecord returns an empty active record
func NewStatsRecord(userID string, platform Platform, username string, now time.Time) *StatsRecord {
	return &StatsRecord{
		UserID:      userID,
		Platform:    platform,
		Username:    username,
		History:     []HistoryEntry{},
		LastFetched: now,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplySnapshot appends the new values to history, trims history to the most
// recent MaxHistoryEntries, replaces the snapshot field by field and clears
// the error state.
func (r *StatsRecord) ApplySnapshot(s Snapshot, now time.Time) {
	s = s.Normalize()

	r.History = append(r.History, HistoryEntry{
		Date:         now,
		TotalSolved:  s.TotalSolved,
		Rating:       s.Rating,
		EasySolved:   s.EasySolved,
		MediumSolved: s.MediumSolved,
		HardSolved:   s.HardSolved,
	})
	if over := len(r.History) - MaxHistoryEntries; over > 0 {
		trimmed := make([]HistoryEntry, MaxHistoryEntries)
		copy(trimmed, r.History[over:])
		r.History = trimmed
	}

	r.Stats = s
	r.LastFetched = now
	r.FetchErrors = 0
	r.LastError = ""
	r.UpdatedAt = now
}

// RecordFetchError bumps the consecutive failure counter; snapshot and history are untouched
func (r *StatsRecord) RecordFetchError(message string, now time.Time) {
	r.FetchErrors++
	r.LastError = message
	r.LastFetched = now
	r.UpdatedAt = now
}

// AggregatedView holds cross-platform sums; derived on read, never persisted
type AggregatedView struct {
	TotalProblems int                       `json:"totalProblems"`
	TotalEasy     int                       `json:"totalEasy"`
	TotalMedium   int                       `json:"totalMedium"`
	TotalHard     int                       `json:"totalHard"`
	TotalContests int                       `json:"totalContests"`
	Platforms     map[Platform]*StatsRecord `json:"platforms"`
}

// UserStats is the read-path result of getUserStats
type UserStats struct {
	Aggregated  AggregatedView `json:"aggregated"`
	Platforms   []*StatsRecord `json:"platforms"`
	LastUpdated *time.Time     `json:"lastUpdated"`
}

// FetchSuccess records one platform that fetched and persisted
type FetchSuccess struct {
	Platform Platform `json:"platform"`
	Username string   `json:"username"`
	Stats    Snapshot `json:"stats"`
}

// FetchFailure records one platform that failed; Platform stays raw for unsupported keys
type FetchFailure struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
	Error    string `json:"error"`
}

// FetchResults is the combined outcome of fetchAllUserStats
type FetchResults struct {
	Success []FetchSuccess `json:"success"`
	Errors  []FetchFailure `json:"errors"`
}

// NewFetchResults returns results with non-nil slices
func NewFetchResults() *FetchResults {
	return &FetchResults{
		Success: []FetchSuccess{},
		Errors:  []FetchFailure{},
	}
}

// RefreshResults is FetchResults plus the recomputed view when anything succeeded
type RefreshResults struct {
	FetchResults
	AggregatedStats *UserStats `json:"aggregatedStats,omitempty"`
}

// CleanupResult reports which platforms were deleted and which remain configured
type CleanupResult struct {
	RemovedPlatforms   []Platform `json:"removedPlatforms"`
	RemainingPlatforms []Platform `json:"remainingPlatforms"`
}
