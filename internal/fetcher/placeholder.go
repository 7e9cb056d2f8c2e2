package fetcher

import (
	"strings"

	"codetracker/pkg/models"
)

// usernameHash is a stable 31-multiplier string hash, folded to a non-negative int
func usernameHash(username string) int {
	var h int32
	for _, r := range username {
		h = h*31 + int32(r)
	}
	if h < 0 {
		if h == -h {
			return 0
		}
		h = -h
	}
	return int(h)
}

// placeholderSolved splits a derived total into easy/medium/hard shares
func placeholderSolved(hash int) (total, easy, medium, hard int) {
	total = 50 + hash%500
	easy = total * (40 + hash%20) / 100
	medium = total * (35 + hash%15) / 100
	hard = total - easy - medium
	return total, easy, medium, hard
}

func leetCodePlaceholder(username string) models.Snapshot {
	h := usernameHash(strings.ToLower(username))
	total, easy, medium, hard := placeholderSolved(h)
	return models.Snapshot{
		TotalSolved:          total,
		EasySolved:           easy,
		MediumSolved:         medium,
		HardSolved:           hard,
		Rank:                 models.NumericRank(int64(1000 + h%50000)),
		ContestsParticipated: h % 20,
		Streak:               h % 30,
	}
}

func codeChefPlaceholder(username string) models.Snapshot {
	h := usernameHash("codechef:" + strings.ToLower(username))
	easy := 20 + h%80
	medium := 15 + h%60
	hard := 5 + h%30
	rating := 1200 + h%1000
	return models.Snapshot{
		TotalSolved:          easy + medium + hard,
		EasySolved:           easy,
		MediumSolved:         medium,
		HardSolved:           hard,
		Rating:               rating,
		MaxRating:            rating + h%200,
		Rank:                 models.NumericRank(int64(1000 + h%10000)),
		ContestsParticipated: 5 + h%50,
		Streak:               h % 30,
	}
}

// w3Courses is the catalogue the W3Schools placeholder draws lessons from
var w3Courses = []string{
	"HTML", "CSS", "JavaScript", "Python", "Java", "C++",
	"PHP", "SQL", "React", "Node.js", "Angular", "Vue.js",
}

const w3LessonsPerCourse = 25

func w3SchoolsPlaceholder(username string) models.Snapshot {
	h := usernameHash("w3schools:" + strings.ToLower(username))
	courses := 2 + h%8
	totalLessons := courses * w3LessonsPerCourse
	completed := totalLessons * (70 + h%31) / 100
	completion := completed * 100 / totalLessons
	return models.Snapshot{
		TotalSolved:  completed,
		EasySolved:   completed * 40 / 100,
		MediumSolved: completed * 40 / 100,
		HardSolved:   completed * 20 / 100,
		Rating:       completion,
		MaxRating:    completion,
		Rank:         models.NumericRank(int64(1000 + h%5000)),
		Streak:       1 + h%15,
	}
}
