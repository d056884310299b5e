// File: internal/auth/service.go
package auth

import (
	"context"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements login, token refresh and logout.
type Service interface {
	Login(ctx context.Context, req LoginRequest, actor common.Actor) (*Account, *TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, actor common.Actor, accessJTI string, accessExpiresAt time.Time, refreshToken string) error
	Me(ctx context.Context, id uuid.UUID) (*Account, error)
}

type service struct {
	accounts  AccountProvider
	tokens    TokenService
	blocklist TokenBlocklistService
	audit     audit.Recorder
	logger    *zap.Logger
}

func NewService(accounts AccountProvider, tokens TokenService, blocklist TokenBlocklistService, auditRecorder audit.Recorder, logger *zap.Logger) Service {
	return &service{
		accounts:  accounts,
		tokens:    tokens,
		blocklist: blocklist,
		audit:     auditRecorder,
		logger:    logger.Named("auth"),
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest, actor common.Actor) (*Account, *TokenResponse, error) {
	acc, err := s.accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Info("Login failed", zap.String("email", req.Email), zap.String("ip", actor.IP))
		return nil, nil, err
	}
	if !acc.IsActive {
		return nil, nil, common.ErrForbidden.WithDetails("This account has been deactivated.")
	}

	tokens, err := s.issue(acc)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if err := s.accounts.RecordLogin(ctx, acc.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", zap.String("admin_id", acc.ID.String()), zap.Error(err))
	} else {
		acc.LastLoginAt = &now
	}

	actor.ID, actor.Email, actor.Role = acc.ID, acc.Email, acc.Role
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "auth.login", EntityType: "admin", EntityID: acc.ID.String()})
	s.logger.Info("Admin logged in", zap.String("admin_id", acc.ID.String()), zap.String("role", acc.Role))
	return acc, tokens, nil
}

// Refresh rotates the token pair. The presented refresh token is revoked.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired refresh token.")
	}
	revoked, err := s.blocklist.IsBlocklisted(ctx, claims.ID)
	if err != nil {
		s.logger.Error("Blocklist lookup failed", zap.Error(err))
		return nil, common.ErrServiceUnavailable.WithDetails("Could not verify token status.")
	}
	if revoked {
		return nil, common.ErrUnauthorized.WithDetails("Refresh token has been revoked.")
	}

	acc, err := s.accounts.GetAccount(ctx, claims.UserID)
	if err != nil {
		return nil, common.ErrUnauthorized.WithDetails("Account no longer exists.")
	}
	if !acc.IsActive {
		return nil, common.ErrForbidden.WithDetails("This account has been deactivated.")
	}

	tokens, err := s.issue(acc)
	if err != nil {
		return nil, err
	}
	if err := s.blocklist.AddToBlocklist(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Warn("Failed to revoke rotated refresh token", zap.Error(err))
	}
	return tokens, nil
}

// Logout revokes the access token of the current request and, when given,
// the refresh token of the same session.
func (s *service) Logout(ctx context.Context, actor common.Actor, accessJTI string, accessExpiresAt time.Time, refreshToken string) error {
	if accessJTI == "" {
		return common.ErrUnauthorized.WithDetails("Token has no identifier.")
	}
	if err := s.blocklist.AddToBlocklist(ctx, accessJTI, accessExpiresAt); err != nil {
		s.logger.Error("Failed to revoke access token", zap.Error(err))
		return common.ErrServiceUnavailable.WithDetails("Could not complete logout.")
	}
	if refreshToken != "" {
		claims, err := s.tokens.ParseRefreshToken(refreshToken)
		if err == nil && claims.UserID == actor.ID {
			if err := s.blocklist.AddToBlocklist(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				s.logger.Warn("Failed to revoke refresh token on logout", zap.Error(err))
			}
		}
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "auth.logout", EntityType: "admin", EntityID: actor.ID.String()})
	return nil
}

func (s *service) Me(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.accounts.GetAccount(ctx, id)
}

func (s *service) issue(acc *Account) (*TokenResponse, error) {
	accessToken, accessExp, err := s.tokens.GenerateAccessToken(acc)
	if err != nil {
		return nil, common.ErrInternalServer.WithDetails("Could not issue access token.")
	}
	refreshToken, refreshExp, err := s.tokens.GenerateRefreshToken(acc)
	if err != nil {
		return nil, common.ErrInternalServer.WithDetails("Could not issue refresh token.")
	}
	return &TokenResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        common.AuthorizationTypeBearer,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
