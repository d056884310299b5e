// File: internal/location/handler.go
package location

import (
	"strconv"

	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for location handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new location handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for wasas, zones, areas and the
// hierarchy selector. Reads need authMW only, writes also need writeMW.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, writeMW gin.HandlerFunc) {
	wasaGroup := router.Group("/wasas", authMW)
	{
		wasaGroup.GET("", h.listWasas)
		wasaGroup.GET("/:id", h.getWasa)
		wasaGroup.POST("", writeMW, h.createWasa)
		wasaGroup.PUT("/:id", writeMW, h.updateWasa)
		wasaGroup.DELETE("/:id", writeMW, h.deleteWasa)
	}
	zoneGroup := router.Group("/zones", authMW)
	{
		zoneGroup.GET("", h.listZones)
		zoneGroup.GET("/:id", h.getZone)
		zoneGroup.POST("", writeMW, h.createZone)
		zoneGroup.PUT("/:id", writeMW, h.updateZone)
		zoneGroup.DELETE("/:id", writeMW, h.deleteZone)
	}
	areaGroup := router.Group("/areas", authMW)
	{
		areaGroup.GET("", h.listAreas)
		areaGroup.GET("/:id", h.getArea)
		areaGroup.POST("", writeMW, h.createArea)
		areaGroup.PUT("/:id", writeMW, h.updateArea)
		areaGroup.DELETE("/:id", writeMW, h.deleteArea)
	}
	locationGroup := router.Group("/locations", authMW)
	{
		locationGroup.GET("/hierarchy", h.hierarchy)
		locationGroup.GET("/options", h.options)
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

// optionalUUID reads a uuid query parameter. Empty means not set.
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

func parseListQuery(c *gin.Context) (ListQuery, bool) {
	q := ListQuery{PaginationQuery: common.NewPaginationQuery(c), Search: c.Query("q")}
	var ok bool
	if q.WasaID, ok = optionalUUID(c, "wasa_id"); !ok {
		return q, false
	}
	if q.ZoneID, ok = optionalUUID(c, "zone_id"); !ok {
		return q, false
	}
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("is_active must be true or false."))
			return q, false
		}
		q.IsActive = &v
	}
	return q, true
}

// --- Wasa ---

func (h *Handler) listWasas(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	wasas, pagination, err := h.service.ListWasas(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]WasaResponse, len(wasas))
	for i := range wasas {
		out[i] = ToWasaResponse(&wasas[i])
	}
	common.RespondPaginated(c, "WASAs retrieved successfully.", out, pagination)
}

func (h *Handler) getWasa(c *gin.Context) {
	id, ok := parseID(c, "WASA")
	if !ok {
		return
	}
	wasa, err := h.service.GetWasa(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "WASA retrieved successfully.", ToWasaResponse(wasa))
}

func (h *Handler) createWasa(c *gin.Context) {
	var req CreateWasaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create WASA: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	wasa, err := h.service.CreateWasa(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "WASA created successfully.", ToWasaResponse(wasa))
}

func (h *Handler) updateWasa(c *gin.Context) {
	id, ok := parseID(c, "WASA")
	if !ok {
		return
	}
	var req UpdateWasaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	wasa, err := h.service.UpdateWasa(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "WASA updated successfully.", ToWasaResponse(wasa))
}

func (h *Handler) deleteWasa(c *gin.Context) {
	id, ok := parseID(c, "WASA")
	if !ok {
		return
	}
	if err := h.service.DeleteWasa(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

// --- Zone ---

func (h *Handler) listZones(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	zones, pagination, err := h.service.ListZones(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]ZoneResponse, len(zones))
	for i := range zones {
		out[i] = ToZoneResponse(&zones[i])
	}
	common.RespondPaginated(c, "Zones retrieved successfully.", out, pagination)
}

func (h *Handler) getZone(c *gin.Context) {
	id, ok := parseID(c, "zone")
	if !ok {
		return
	}
	zone, err := h.service.GetZone(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Zone retrieved successfully.", ToZoneResponse(zone))
}

func (h *Handler) createZone(c *gin.Context) {
	var req CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create zone: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	zone, err := h.service.CreateZone(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Zone created successfully.", ToZoneResponse(zone))
}

func (h *Handler) updateZone(c *gin.Context) {
	id, ok := parseID(c, "zone")
	if !ok {
		return
	}
	var req UpdateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	zone, err := h.service.UpdateZone(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Zone updated successfully.", ToZoneResponse(zone))
}

func (h *Handler) deleteZone(c *gin.Context) {
	id, ok := parseID(c, "zone")
	if !ok {
		return
	}
	if err := h.service.DeleteZone(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

// --- Area ---

func (h *Handler) listAreas(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	areas, pagination, err := h.service.ListAreas(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]AreaResponse, len(areas))
	for i := range areas {
		out[i] = ToAreaResponse(&areas[i])
	}
	common.RespondPaginated(c, "Areas retrieved successfully.", out, pagination)
}

func (h *Handler) getArea(c *gin.Context) {
	id, ok := parseID(c, "area")
	if !ok {
		return
	}
	area, err := h.service.GetArea(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Area retrieved successfully.", ToAreaResponse(area))
}

func (h *Handler) createArea(c *gin.Context) {
	var req CreateAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create area: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	area, err := h.service.CreateArea(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Area created successfully.", ToAreaResponse(area))
}

func (h *Handler) updateArea(c *gin.Context) {
	id, ok := parseID(c, "area")
	if !ok {
		return
	}
	var req UpdateAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	area, err := h.service.UpdateArea(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Area updated successfully.", ToAreaResponse(area))
}

func (h *Handler) deleteArea(c *gin.Context) {
	id, ok := parseID(c, "area")
	if !ok {
		return
	}
	if err := h.service.DeleteArea(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

// --- Hierarchy ---

func (h *Handler) hierarchy(c *gin.Context) {
	tree, err := h.service.Hierarchy(c.Request.Context(), c.Query("include_inactive") == "true")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Location hierarchy retrieved successfully.", tree)
}

func (h *Handler) options(c *gin.Context) {
	var sel Selection
	var ok bool
	if sel.WasaID, ok = optionalUUID(c, "wasa_id"); !ok {
		return
	}
	if sel.ZoneID, ok = optionalUUID(c, "zone_id"); !ok {
		return
	}
	if sel.AreaID, ok = optionalUUID(c, "area_id"); !ok {
		return
	}
	opts, err := h.service.Options(c.Request.Context(), sel, c.Query("include_inactive") == "true")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Location options retrieved successfully.", opts)
}
