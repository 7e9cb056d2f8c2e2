package models

import "time"

// Activity is one recent solve or lesson on a platform
type Activity struct {
	Platform    Platform  `json:"platform"`
	ProblemName string    `json:"problemName"`
	ContestID   string    `json:"contestId,omitempty"`
	Difficulty  string    `json:"difficulty,omitempty"`
	Rating      int       `json:"rating,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Solved      bool      `json:"solved"`
}
