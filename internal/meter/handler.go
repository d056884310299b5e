// File: internal/meter/handler.go
package meter

import (
	"net/http"
	"strconv"

	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service        Service
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewHandler(service Service, logger *zap.Logger, cfg *config.Config) *Handler {
	limit := cfg.CSVMaxUploadMB << 20
	if limit <= 0 {
		limit = 20 << 20
	}
	return &Handler{service: service, logger: logger, maxUploadBytes: limit}
}

// RegisterRoutes mounts /meters. Reading capture has its own guard since
// meter reader admins record readings without managing meters.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, readMW, writeMW, readingMW gin.HandlerFunc) {
	meters := router.Group("/meters")
	meters.Use(authMW)
	{
		meters.GET("", readMW, h.listMeters)
		meters.GET("/:id", readMW, h.getMeter)
		meters.GET("/:id/readings", readMW, h.listReadings)
		meters.POST("", writeMW, h.createMeter)
		meters.POST("/import", writeMW, h.importMeters)
		meters.PUT("/:id", writeMW, h.updateMeter)
		meters.PUT("/:id/assign", writeMW, h.assignMeter)
		meters.DELETE("/:id", writeMW, h.deleteMeter)
		meters.POST("/:id/readings", readingMW, h.recordReading)
	}
}

func parseMeterID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid meter ID format."))
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

func (h *Handler) listMeters(c *gin.Context) {
	q := ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Status:          c.Query("status"),
		MeterType:       c.Query("meter_type"),
		Search:          c.Query("q"),
	}
	var ok bool
	if q.CustomerID, ok = optionalUUID(c, "customer_id"); !ok {
		return
	}
	if q.AreaID, ok = optionalUUID(c, "area_id"); !ok {
		return
	}
	meters, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]MeterResponse, len(meters))
	for i := range meters {
		responses[i] = ToMeterResponse(&meters[i])
	}
	common.RespondPaginated(c, "Meters retrieved successfully.", responses, pagination)
}

func (h *Handler) getMeter(c *gin.Context) {
	id, ok := parseMeterID(c)
	if !ok {
		return
	}
	m, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Meter retrieved successfully.", ToMeterResponse(m))
}

func (h *Handler) createMeter(c *gin.Context) {
	var req CreateMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create meter: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	m, err := h.service.Create(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Meter created successfully.", ToMeterResponse(m))
}

func (h *Handler) updateMeter(c *gin.Context) {
	id, ok := parseMeterID(c)
	if !ok {
		return
	}
	var req UpdateMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	m, err := h.service.Update(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Meter updated successfully.", ToMeterResponse(m))
}

func (h *Handler) assignMeter(c *gin.Context) {
	id, ok := parseMeterID(c)
	if !ok {
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	m, err := h.service.Assign(c.Request.Context(), common.ActorFromContext(c), id, req.CustomerID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Meter assignment updated successfully.", ToMeterResponse(m))
}

func (h *Handler) deleteMeter(c *gin.Context) {
	id, ok := parseMeterID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) recordReading(c *gin.Context) {
	id, ok := parseMeterID(c)
	if !ok {
		return
	}
	var req RecordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	reading, err := h.service.RecordReading(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Meter reading recorded successfully.", ToReadingResponse(reading))
}

func (h *Handler) listReadings(c *gin.Context) {
	id, ok := parseMeterID(c)
	if !ok {
		return
	}
	readings, pagination, err := h.service.ListReadings(c.Request.Context(), id, common.NewPaginationQuery(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]ReadingResponse, len(readings))
	for i := range readings {
		responses[i] = ToReadingResponse(&readings[i])
	}
	common.RespondPaginated(c, "Meter readings retrieved successfully.", responses, pagination)
}

func (h *Handler) importMeters(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondWithError(c, common.NewValidationAPIError(map[string]string{"file": "A CSV file is required."}))
		return
	}
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", c.DefaultPostForm("dry_run", "false")))
	report, err := h.service.ImportUpload(c.Request.Context(), common.ActorFromContext(c), fileHeader, dryRun)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Meter import completed.", report)
}
