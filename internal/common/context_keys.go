// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// UserIDKey is the context key for storing the authenticated admin's ID
	UserIDKey = "userID"
	// UserEmailKey is the context key for storing the authenticated admin's email
	UserEmailKey = "userEmail"
	// UserRoleKey is the context key for storing the authenticated admin's role
	UserRoleKey = "userRole"
	// TokenIDKey is the context key for the access token's jti
	TokenIDKey = "tokenID"
	// TokenExpiryKey is the context key for the access token's expiry time
	TokenExpiryKey = "tokenExpiry"
	// RequestIDKey is the context key holding the X-Request-ID value
	RequestIDKey = "requestID"
	// LoggerKey is the context key for a request-scoped *zap.Logger
	LoggerKey = "logger"
)
