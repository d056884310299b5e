// File: internal/auth/handler.go
package auth

import (
	"errors"
	"io"

	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for authentication operations. loginMW
// runs in front of the credential endpoints (rate limiting).
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, loginMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", loginMW, h.login)
		authGroup.POST("/refresh-token", loginMW, h.refreshToken)
		authGroup.POST("/logout", authMW, h.logout)
		authGroup.GET("/me", authMW, h.me)
	}
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Login: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}

	acc, tokenResponse, err := h.service.Login(c.Request.Context(), req, common.ActorFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondOK(c, "Login successful.", gin.H{
		"admin": acc,
		"token": tokenResponse,
	})
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	tokenResponse, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Token refreshed successfully.", tokenResponse)
}

func (h *Handler) logout(c *gin.Context) {
	var req LogoutRequest
	// The body is optional.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	jti, expiresAt := common.GetTokenIDFromContext(c)
	if err := h.service.Logout(c.Request.Context(), common.ActorFromContext(c), jti, expiresAt, req.RefreshToken); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Logged out successfully.", nil)
}

func (h *Handler) me(c *gin.Context) {
	acc, err := h.service.Me(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Current admin retrieved successfully.", acc)
}
