// File: internal/agent/handler.go
package agent

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

// RegisterRoutes mounts /users. readMW guards reads, writeMW guards mutations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, readMW, writeMW gin.HandlerFunc) {
	users := router.Group("/users")
	users.Use(authMW)
	{
		users.GET("", readMW, h.listAgents)
		users.GET("/:id", readMW, h.getAgent)
		users.POST("", writeMW, h.createAgent)
		users.PUT("/:id", writeMW, h.updateAgent)
		users.PATCH("/:id/status", writeMW, h.updateStatus)
		users.DELETE("/:id", writeMW, h.deleteAgent)
	}
}

func parseAgentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid user ID format."))
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(name+" must be a valid UUID."))
		return nil, false
	}
	return &id, true
}

func (h *Handler) listAgents(c *gin.Context) {
	q := ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Role:            c.Query("role"),
		Status:          c.Query("status"),
		Search:          c.Query("q"),
	}
	var ok bool
	if q.WasaID, ok = optionalUUID(c, "wasa_id"); !ok {
		return
	}
	if q.ZoneID, ok = optionalUUID(c, "zone_id"); !ok {
		return
	}
	if q.AreaID, ok = optionalUUID(c, "area_id"); !ok {
		return
	}

	agents, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]AgentResponse, len(agents))
	for i := range agents {
		responses[i] = ToAgentResponse(&agents[i])
	}
	common.RespondPaginated(c, "Users retrieved successfully.", responses, pagination)
}

func (h *Handler) getAgent(c *gin.Context) {
	id, ok := parseAgentID(c)
	if !ok {
		return
	}
	agent, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", ToAgentResponse(agent))
}

func (h *Handler) createAgent(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create user: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	agent, err := h.service.Create(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "User created successfully.", ToAgentResponse(agent))
}

func (h *Handler) updateAgent(c *gin.Context) {
	id, ok := parseAgentID(c)
	if !ok {
		return
	}
	var req UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	agent, err := h.service.Update(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User updated successfully.", ToAgentResponse(agent))
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := parseAgentID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	agent, err := h.service.UpdateStatus(c.Request.Context(), common.ActorFromContext(c), id, req.Status)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User status updated successfully.", ToAgentResponse(agent))
}

func (h *Handler) deleteAgent(c *gin.Context) {
	id, ok := parseAgentID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
