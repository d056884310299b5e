// File: internal/customer/handler.go
package customer

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

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

// RegisterRoutes mounts /customers. readMW guards reads, writeMW guards mutations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, readMW, writeMW gin.HandlerFunc) {
	customers := router.Group("/customers")
	customers.Use(authMW)
	{
		customers.GET("", readMW, h.listCustomers)
		customers.GET("/search", readMW, h.searchCustomers)
		customers.GET("/export", readMW, h.exportCustomers)
		customers.GET("/:id", readMW, h.getCustomer)
		customers.POST("", writeMW, h.createCustomer)
		customers.POST("/import", writeMW, h.importCustomers)
		customers.PUT("/:id", writeMW, h.updateCustomer)
		customers.DELETE("/:id", writeMW, h.deleteCustomer)
	}
}

func parseCustomerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid customer ID format."))
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

func bindListQuery(c *gin.Context) (ListQuery, bool) {
	q := ListQuery{
		PaginationQuery: common.NewPaginationQuery(c),
		Status:          c.Query("status"),
		ConnectionType:  c.Query("connection_type"),
		Search:          c.Query("q"),
	}
	var ok bool
	if q.WasaID, ok = optionalUUID(c, "wasa_id"); !ok {
		return q, false
	}
	if q.ZoneID, ok = optionalUUID(c, "zone_id"); !ok {
		return q, false
	}
	if q.AreaID, ok = optionalUUID(c, "area_id"); !ok {
		return q, false
	}
	if q.TariffCategoryID, ok = optionalUUID(c, "tariff_category_id"); !ok {
		return q, false
	}
	return q, true
}

func (h *Handler) listCustomers(c *gin.Context) {
	q, ok := bindListQuery(c)
	if !ok {
		return
	}
	customers, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Customers retrieved successfully.", toResponses(customers), pagination)
}

func (h *Handler) searchCustomers(c *gin.Context) {
	customers, pagination, err := h.service.Search(c.Request.Context(), c.Query("q"), common.NewPaginationQuery(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Customers retrieved successfully.", toResponses(customers), pagination)
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := parseCustomerID(c)
	if !ok {
		return
	}
	customer, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Customer retrieved successfully.", ToCustomerResponse(customer))
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create customer: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	customer, err := h.service.Create(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Customer created successfully.", ToCustomerResponse(customer))
}

func (h *Handler) updateCustomer(c *gin.Context) {
	id, ok := parseCustomerID(c)
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.NewBindingAPIError(err))
		return
	}
	customer, err := h.service.Update(c.Request.Context(), common.ActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Customer updated successfully.", ToCustomerResponse(customer))
}

func (h *Handler) deleteCustomer(c *gin.Context) {
	id, ok := parseCustomerID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) importCustomers(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Warn("Import customers: missing file", zap.Error(err))
		common.RespondWithError(c, common.NewValidationAPIError(map[string]string{"file": "A CSV file is required (max " + strconv.FormatInt(h.maxUploadBytes>>20, 10) + " MB)."}))
		return
	}
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", c.DefaultPostForm("dry_run", "false")))

	report, err := h.service.ImportUpload(c.Request.Context(), common.ActorFromContext(c), fileHeader, dryRun)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	msg := "Customer import completed."
	if dryRun {
		msg = "Customer import validated (dry run)."
	}
	common.RespondOK(c, msg, report)
}

func (h *Handler) exportCustomers(c *gin.Context) {
	q, ok := bindListQuery(c)
	if !ok {
		return
	}
	if archive, _ := strconv.ParseBool(c.Query("archive")); archive {
		result, err := h.service.ArchiveExport(c.Request.Context(), common.ActorFromContext(c), q)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondOK(c, "Customer export archived successfully.", result)
		return
	}

	filename := fmt.Sprintf("customers-%s.csv", time.Now().UTC().Format("20060102-150405"))
	common.StartAttachment(c, filename, "text/csv; charset=utf-8")
	rows, err := h.service.Export(c.Request.Context(), c.Writer, q)
	if err != nil {
		if !c.Writer.Written() {
			common.ClearAttachment(c)
			common.RespondWithError(c, err)
			return
		}
		h.logger.Error("Customer export failed mid-stream", zap.Error(err), zap.Int("rows", rows))
		return
	}
	h.logger.Info("Customer export streamed", zap.Int("rows", rows))
}
