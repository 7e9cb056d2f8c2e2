package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxTime(t *testing.T) {
	assert.Nil(t, MaxTime(nil))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := MaxTime([]time.Time{base, base.Add(time.Hour), base.Add(-time.Hour)})
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(base.Add(time.Hour)))
}

func TestValidatePlatformUsername(t *testing.T) {
	assert.NoError(t, ValidatePlatformUsername("tourist"))
	assert.NoError(t, ValidatePlatformUsername("user.name_1-x"))
	assert.Error(t, ValidatePlatformUsername(""))
	assert.Error(t, ValidatePlatformUsername("has space"))
	assert.Error(t, ValidatePlatformUsername(strings.Repeat("a", 51)))
}

func TestGenerateIDIsPrefixedAndUnique(t *testing.T) {
	a, b := GenerateStatsID(), GenerateStatsID()
	assert.True(t, strings.HasPrefix(a, "stats-"))
	assert.NotEqual(t, a, b)
}
