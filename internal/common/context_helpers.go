// File: internal/common/context_helpers.go
package common

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetTokenFromContext retrieves the JWT token string from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetUserIDFromContext retrieves the user ID from the Gin context.
// Returns uuid.Nil if not found or not a UUID.
func GetUserIDFromContext(c *gin.Context) uuid.UUID {
	val, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil
	}
	userID, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// GetUserRoleFromContext retrieves the user role from the Gin context.
func GetUserRoleFromContext(c *gin.Context) string {
	return c.GetString(UserRoleKey)
}

// GetUserEmailFromContext retrieves the user email from the Gin context.
func GetUserEmailFromContext(c *gin.Context) string {
	return c.GetString(UserEmailKey)
}

// GetTokenIDFromContext returns the jti and expiry of the access token used
// for the current request.
func GetTokenIDFromContext(c *gin.Context) (string, time.Time) {
	jti := c.GetString(TokenIDKey)
	exp, _ := c.Get(TokenExpiryKey)
	expiresAt, _ := exp.(time.Time)
	return jti, expiresAt
}

// GetRequestIDFromContext returns the request id set by the logger middleware.
func GetRequestIDFromContext(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Actor describes who performed a request; handlers pass it to services that
// record audit entries.
type Actor struct {
	ID        uuid.UUID
	Email     string
	Role      string
	IP        string
	UserAgent string
	RequestID string
}

// ActorFromContext builds an Actor from the authenticated request.
func ActorFromContext(c *gin.Context) Actor {
	return Actor{
		ID:        GetUserIDFromContext(c),
		Email:     GetUserEmailFromContext(c),
		Role:      GetUserRoleFromContext(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: GetRequestIDFromContext(c),
	}
}
