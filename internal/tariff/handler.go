// File: internal/tariff/handler.go
package tariff

import (
	"strconv"

	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /tariff-category and /tariff-category-settings.
// Reads are open to any authenticated admin.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, writeMW gin.HandlerFunc) {
	categories := router.Group("/tariff-category")
	categories.Use(authMW)
	{
		categories.GET("", h.listCategories)
		categories.GET("/:id", h.getCategory)
		categories.GET("/:id/settings/active", h.activeSettings)
		categories.POST("", writeMW, h.createCategory)
		categories.PUT("/:id", writeMW, h.updateCategory)
		categories.DELETE("/:id", writeMW, h.deleteCategory)
	}

	settings := router.Group("/tariff-category-settings")
	settings.Use(authMW)
	{
		settings.GET("", h.listSettings)
		settings.GET("/:id", h.getSettings)
		settings.POST("", writeMW, h.createSettings)
		settings.PUT("/:id", writeMW, h.updateSettings)
		settings.DELETE("/:id", writeMW, h.deleteSettings)
		settings.POST("/:id/submit", writeMW, h.submitSettings)
	}
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid "+what+" ID format."))
		return uuid.Nil, false
	}
	return id, true
}

// --- Categories ---

func (h *Handler) listCategories(c *gin.Context) {
	q := CategoryListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		CustomerType:    c.Query("customer_type"),
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
	cats, pagination, err := h.service.ListCategories(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]CategoryResponse, len(cats))
	for i := range cats {
		out[i] = ToCategoryResponse(&cats[i])
	}
	common.RespondPaginated(c, "Tariff categories retrieved successfully.", out, pagination)
}

func (h *Handler) getCategory(c *gin.Context) {
	id, ok := parseID(c, "tariff category")
	if !ok {
		return
	}
	cat, err := h.service.GetCategory(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Tariff category retrieved successfully.", ToCategoryResponse(cat))
}

func (h *Handler) createCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create tariff category: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	cat, err := h.service.CreateCategory(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Tariff category created successfully.", ToCategoryResponse(cat))
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := parseID(c, "tariff category")
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	cat, err := h.service.UpdateCategory(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Tariff category updated successfully.", ToCategoryResponse(cat))
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := parseID(c, "tariff category")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) activeSettings(c *gin.Context) {
	id, ok := parseID(c, "tariff category")
	if !ok {
		return
	}
	st, err := h.service.ActiveSettings(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Active tariff settings retrieved successfully.", ToSettingsResponse(st))
}

// --- Settings ---

func (h *Handler) listSettings(c *gin.Context) {
	q := SettingsListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Status:          c.Query("status"),
	}
	if raw := c.Query("tariff_category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("tariff_category_id must be a valid UUID."))
			return
		}
		q.TariffCategoryID = &id
	}
	list, pagination, err := h.service.ListSettings(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]SettingsResponse, len(list))
	for i := range list {
		out[i] = ToSettingsResponse(&list[i])
	}
	common.RespondPaginated(c, "Tariff settings retrieved successfully.", out, pagination)
}

func (h *Handler) getSettings(c *gin.Context) {
	id, ok := parseID(c, "tariff settings")
	if !ok {
		return
	}
	st, err := h.service.GetSettings(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Tariff settings retrieved successfully.", ToSettingsResponse(st))
}

func (h *Handler) createSettings(c *gin.Context) {
	var req CreateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create tariff settings: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	st, err := h.service.CreateSettings(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Tariff settings created as draft.", ToSettingsResponse(st))
}

func (h *Handler) updateSettings(c *gin.Context) {
	id, ok := parseID(c, "tariff settings")
	if !ok {
		return
	}
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	st, err := h.service.UpdateSettings(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Tariff settings updated successfully.", ToSettingsResponse(st))
}

func (h *Handler) deleteSettings(c *gin.Context) {
	id, ok := parseID(c, "tariff settings")
	if !ok {
		return
	}
	if err := h.service.DeleteSettings(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) submitSettings(c *gin.Context) {
	id, ok := parseID(c, "tariff settings")
	if !ok {
		return
	}
	st, err := h.service.SubmitSettings(c.Request.Context(), common.ActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Tariff settings submitted for approval.", ToSettingsResponse(st))
}
