// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"wasa_admin_backend/internal/auth"
	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountLookup reloads the account behind a token so that deactivation and
// role changes apply to tokens that are already issued. admin.Service
// satisfies it.
type AccountLookup interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*auth.Account, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication. Tokens
// revoked by logout are rejected. Role and active state come from the stored
// account, not from the token claims.
func AuthMiddleware(tokenService auth.TokenService, blocklist auth.TokenBlocklistService, accounts AccountLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}

		revoked, err := blocklist.IsBlocklisted(c.Request.Context(), claims.ID)
		if err != nil {
			logger.Error("Token blocklist lookup failed", zap.Error(err))
			common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Could not verify token status."))
			return
		}
		if revoked {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Token has been revoked."))
			return
		}

		account, err := accounts.GetAccount(c.Request.Context(), claims.UserID)
		if err != nil {
			if apiErr, ok := common.IsAPIError(err); ok && apiErr.Is(common.ErrNotFound) {
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("The account for this token no longer exists."))
				return
			}
			logger.Error("Account lookup failed", zap.Error(err), zap.String("userID", claims.UserID.String()))
			common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Could not verify account status."))
			return
		}
		if !account.IsActive {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("This account has been deactivated."))
			return
		}
		if account.Role != claims.Role {
			logger.Info("Role changed since token was issued",
				zap.String("userID", account.ID.String()),
				zap.String("token_role", claims.Role),
				zap.String("role", account.Role),
			)
		}

		c.Set(common.UserIDKey, account.ID)
		c.Set(common.UserEmailKey, account.Email)
		c.Set(common.UserRoleKey, account.Role)
		c.Set(common.TokenIDKey, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(common.TokenExpiryKey, claims.ExpiresAt.Time)
		}

		logger.Debug("Admin authenticated",
			zap.String("userID", account.ID.String()),
			zap.String("role", account.Role),
		)

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware to check if the authenticated user has one of the required roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}

		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
