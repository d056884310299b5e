// File: internal/admin/handler.go
package admin

import (
	"strconv"

	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for admin handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new admin handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for admin management. Changing one's own
// password only needs authentication; everything else needs manageMW.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, manageMW gin.HandlerFunc) {
	adminGroup := router.Group("/admins")
	adminGroup.Use(authMW)
	{
		adminGroup.PUT("/me/password", h.changeOwnPassword)

		managed := adminGroup.Group("")
		managed.Use(manageMW)
		{
			managed.POST("", h.createAdmin)
			managed.GET("", h.listAdmins)
			managed.GET("/:id", h.getAdmin)
			managed.PUT("/:id", h.updateAdmin)
			managed.DELETE("/:id", h.deleteAdmin)
			managed.POST("/:id/reset-password", h.resetPassword)
		}
	}
}

func (h *Handler) createAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create admin: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	adminModel, err := h.service.Create(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Admin created successfully.", ToAdminResponse(adminModel))
}

func (h *Handler) listAdmins(c *gin.Context) {
	q := ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Role:            c.Query("role"),
		Search:          c.Query("q"),
	}
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("is_active must be true or false."))
			return
		}
		q.IsActive = &v
	}
	if q.Role != "" && !common.IsValidRole(q.Role) {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Unknown role filter."))
		return
	}

	admins, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]AdminResponse, len(admins))
	for i := range admins {
		responses[i] = ToAdminResponse(&admins[i])
	}
	common.RespondPaginated(c, "Admins retrieved successfully.", responses, pagination)
}

func (h *Handler) getAdmin(c *gin.Context) {
	id, ok := parseAdminID(c)
	if !ok {
		return
	}
	adminModel, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Admin retrieved successfully.", ToAdminResponse(adminModel))
}

func (h *Handler) updateAdmin(c *gin.Context) {
	id, ok := parseAdminID(c)
	if !ok {
		return
	}
	var req UpdateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update admin: Invalid request body", zap.Error(err), zap.String("adminID", id.String()))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	adminModel, err := h.service.Update(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Admin updated successfully.", ToAdminResponse(adminModel))
}

func (h *Handler) deleteAdmin(c *gin.Context) {
	id, ok := parseAdminID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) resetPassword(c *gin.Context) {
	id, ok := parseAdminID(c)
	if !ok {
		return
	}
	password, err := h.service.ResetPassword(c.Request.Context(), common.ActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Password reset successfully. Share the temporary password securely.", ResetPasswordResponse{
		AdminID:           id,
		TemporaryPassword: password,
	})
}

func (h *Handler) changeOwnPassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), common.ActorFromContext(c), req); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Password changed successfully.", nil)
}

func parseAdminID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid admin ID format."))
		return uuid.Nil, false
	}
	return id, true
}
