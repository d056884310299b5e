// File: internal/approval/handler.go
package approval

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

// RegisterRoutes mounts /approval-requests. reviewMW guards listing and
// review; any authenticated admin may see and cancel their own requests.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, reviewMW gin.HandlerFunc) {
	group := router.Group("/approval-requests")
	group.Use(authMW)
	{
		group.GET("/mine", h.listMine)
		group.GET("/:id", h.get)
		group.POST("/:id/cancel", h.cancel)

		group.GET("", reviewMW, h.list)
		group.POST("/:id/approve", reviewMW, h.approve)
		group.POST("/:id/reject", reviewMW, h.reject)
	}
}

func parseRequestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid approval request ID format."))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondList(c *gin.Context, q ListQuery) {
	reqs, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]ApprovalRequestResponse, len(reqs))
	for i := range reqs {
		out[i] = ToApprovalRequestResponse(&reqs[i])
	}
	common.RespondPaginated(c, "Approval requests retrieved successfully.", out, pagination)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Status:          c.Query("status"),
		EntityType:      c.Query("entity_type"),
	}
	if raw := c.Query("requested_by"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("requested_by must be a valid UUID."))
			return
		}
		q.RequestedBy = &id
	}
	h.respondList(c, q)
}

func (h *Handler) listMine(c *gin.Context) {
	me := common.GetUserIDFromContext(c)
	h.respondList(c, ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Status:          c.Query("status"),
		EntityType:      c.Query("entity_type"),
		RequestedBy:     &me,
	})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseRequestID(c)
	if !ok {
		return
	}
	req, err := h.service.Get(c.Request.Context(), common.ActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Approval request retrieved successfully.", ToApprovalRequestResponse(req))
}

func (h *Handler) approve(c *gin.Context) {
	h.decide(c, true)
}

func (h *Handler) reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *Handler) decide(c *gin.Context, approve bool) {
	id, ok := parseRequestID(c)
	if !ok {
		return
	}
	var body ReviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			common.RespondWithError(c, common.NewBindingAPIError(err))
			return
		}
	}
	actor := common.ActorFromContext(c)
	var (
		req *ApprovalRequest
		err error
		msg string
	)
	if approve {
		req, err = h.service.Approve(c.Request.Context(), actor, id, body.Comment)
		msg = "Approval request approved."
	} else {
		req, err = h.service.Reject(c.Request.Context(), actor, id, body.Comment)
		msg = "Approval request rejected."
	}
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, msg, ToApprovalRequestResponse(req))
}

func (h *Handler) cancel(c *gin.Context) {
	id, ok := parseRequestID(c)
	if !ok {
		return
	}
	req, err := h.service.Cancel(c.Request.Context(), common.ActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Approval request cancelled.", ToApprovalRequestResponse(req))
}
