package core

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetracker/pkg/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, issuer, userID string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	env := newTestEnv(t, StatsOptions{})
	user := env.createUser(t, models.PlatformUsernames{})
	auth := NewAuthService(env.userRepo, testSecret, "codetracker")
	ctx := context.Background()
	later := time.Now().Add(time.Hour)

	got, err := auth.ValidateToken(ctx, signToken(t, testSecret, "codetracker", user.ID, later))
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", signToken(t, "other", "codetracker", user.ID, later)},
		{"wrong issuer", signToken(t, testSecret, "someone-else", user.ID, later)},
		{"expired", signToken(t, testSecret, "codetracker", user.ID, time.Now().Add(-time.Minute))},
		{"unknown user", signToken(t, testSecret, "codetracker", "ghost", later)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ValidateToken(ctx, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
		})
	}
}
