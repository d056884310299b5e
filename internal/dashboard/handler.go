// File: internal/dashboard/handler.go
package dashboard

import (
	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /dashboard. Any authenticated admin may call it; the
// role decides which counters come back.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	group := router.Group("/dashboard", authMW)
	group.GET("/summary", h.summary)
}

func (h *Handler) summary(c *gin.Context) {
	role := common.GetUserRoleFromContext(c)
	sum, err := h.service.Summary(c.Request.Context(), role)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Dashboard summary retrieved successfully.", sum)
}
