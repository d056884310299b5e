// File: internal/scoring/handler.go
package scoring

import (
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

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, readMW, writeMW gin.HandlerFunc) {
	group := router.Group("/zone-scoring")
	group.Use(authMW, readMW)
	{
		group.GET("", h.list)
		group.GET("/active", h.active)
		group.GET("/:id", h.get)
		group.POST("/:id/evaluate", h.evaluate)

		group.POST("", writeMW, h.create)
		group.PUT("/:id", writeMW, h.update)
		group.DELETE("/:id", writeMW, h.delete)
		group.POST("/:id/submit", writeMW, h.submit)
	}
}

func parseRuleSetID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid ruleset ID format."))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Status:          c.Query("status"),
		Search:          c.Query("q"),
	}
	if raw := c.Query("area_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("area_id must be a valid UUID."))
			return
		}
		q.AreaID = &id
	}
	list, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]RuleSetResponse, len(list))
	for i := range list {
		out[i] = ToRuleSetResponse(&list[i])
	}
	common.RespondPaginated(c, "Scoring rulesets retrieved successfully.", out, pagination)
}

func (h *Handler) active(c *gin.Context) {
	areaID, err := uuid.Parse(c.Query("area_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("area_id is required and must be a valid UUID."))
		return
	}
	rs, err := h.service.Active(c.Request.Context(), areaID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Active scoring ruleset retrieved successfully.", ToRuleSetResponse(rs))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseRuleSetID(c)
	if !ok {
		return
	}
	rs, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Scoring ruleset retrieved successfully.", ToRuleSetResponse(rs))
}

func (h *Handler) evaluate(c *gin.Context) {
	id, ok := parseRuleSetID(c)
	if !ok {
		return
	}
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	result, err := h.service.Evaluate(c.Request.Context(), id, req.Measurements)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Score computed successfully.", result)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRuleSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create ruleset: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	rs, err := h.service.Create(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Scoring ruleset created successfully.", ToRuleSetResponse(rs))
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseRuleSetID(c)
	if !ok {
		return
	}
	var req UpdateRuleSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	rs, err := h.service.Update(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Scoring ruleset updated successfully.", ToRuleSetResponse(rs))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseRuleSetID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) submit(c *gin.Context) {
	id, ok := parseRuleSetID(c)
	if !ok {
		return
	}
	rs, err := h.service.Submit(c.Request.Context(), common.ActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Scoring ruleset submitted for approval.", ToRuleSetResponse(rs))
}
