package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"codetracker/internal/repository"
	"codetracker/pkg/models"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthService resolves bearer tokens issued by the identity service
type AuthService interface {
	ValidateToken(ctx context.Context, tokenString string) (*models.User, error)
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtIssuer string
}

// Claims carried by tracker tokens. Only the user id is consumed.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// NewAuthService creates a token validator; an empty issuer accepts any issuer
func NewAuthService(userRepo repository.UserRepository, jwtSecret, jwtIssuer string) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		jwtIssuer: jwtIssuer,
	}
}

// ValidateToken verifies a JWT token and returns the active user it names
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, models.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.Join(ErrInvalidToken, models.ErrUnauthorized)
	}
	if s.jwtIssuer != "" && !claims.VerifyIssuer(s.jwtIssuer, true) {
		return nil, errors.Join(ErrInvalidToken, models.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, errors.Join(ErrInvalidToken, models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}
	return user, nil
}
