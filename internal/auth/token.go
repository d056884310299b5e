// File: internal/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"wasa_admin_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are the JWT claims issued to admin accounts.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed tokens.
type TokenService interface {
	GenerateAccessToken(acc *Account) (string, time.Time, error)
	GenerateRefreshToken(acc *Account) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
	ParseRefreshToken(tokenString string) (*Claims, error)
}

type JWTService struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg *config.Config, logger *zap.Logger) TokenService {
	return &JWTService{cfg: cfg, logger: logger}
}

func (s *JWTService) GenerateAccessToken(acc *Account) (string, time.Time, error) {
	expiry := time.Duration(s.cfg.JWTAccessTokenExpiryMinutes) * time.Minute
	return s.sign(acc, tokenTypeAccess, expiry)
}

func (s *JWTService) GenerateRefreshToken(acc *Account) (string, time.Time, error) {
	expiry := time.Duration(s.cfg.JWTRefreshTokenExpiryDays) * 24 * time.Hour
	return s.sign(acc, tokenTypeRefresh, expiry)
}

func (s *JWTService) sign(acc *Account, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(ttl)
	claims := &Claims{
		UserID:    acc.ID,
		Email:     acc.Email,
		Role:      acc.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.JWTIssuer,
			Subject:   acc.ID.String(),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		s.logger.Error("Failed to sign token", zap.String("token_type", tokenType), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign %s token: %w", tokenType, err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken validates an access token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, tokenTypeAccess)
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (s *JWTService) ParseRefreshToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, tokenTypeRefresh)
}

func (s *JWTService) parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.cfg.JWTIssuer))
	if err != nil {
		s.logger.Debug("Failed to validate token", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("invalid token: expected %s token", wantType)
	}
	if claims.ID == "" {
		return nil, errors.New("invalid token: missing jti")
	}
	return claims, nil
}
