// File: internal/audit/handler.go
package audit

import (
	"time"

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

// RegisterRoutes mounts the read-only audit log endpoints.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, readMW gin.HandlerFunc) {
	group := router.Group("/audit-logs")
	group.Use(authMW, readMW)
	{
		group.GET("", h.list)
		group.GET("/:id", h.get)
	}
}

func (h *Handler) list(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	logs, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]AuditLogResponse, len(logs))
	for i := range logs {
		resp[i] = ToAuditLogResponse(&logs[i])
	}
	common.RespondPaginated(c, "Audit logs retrieved successfully.", resp, pagination)
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid audit log ID format."))
		return
	}
	l, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Audit log retrieved successfully.", ToAuditLogResponse(l))
}

func parseListQuery(c *gin.Context) (ListQuery, error) {
	q := ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Action:          c.Query("action"),
		EntityType:      c.Query("entity_type"),
		EntityID:        c.Query("entity_id"),
	}
	if raw := c.Query("actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, common.ErrBadRequest.WithDetails("Invalid actor_id format.")
		}
		q.ActorID = &id
	}
	for _, p := range []struct {
		name   string
		target **time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, common.ErrBadRequest.WithDetails("'" + p.name + "' must be an RFC3339 timestamp.")
		}
		*p.target = &t
	}
	return q, nil
}
