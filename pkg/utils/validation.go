package utils

import (
	"regexp"
	"strings"

	"codetracker/pkg/models"
)

// Handles on the supported platforms are letters, digits and . _ -
var platformUsernameRegex = regexp.MustCompile(`^[A-Za-z0-9._-]{1,50}$`)

// ValidatePlatformUsername checks a non-empty handle before it is sent upstream
func ValidatePlatformUsername(username string) error {
	if !platformUsernameRegex.MatchString(strings.TrimSpace(username)) {
		return models.ErrInvalidInput
	}
	return nil
}
