// File: internal/common/response.go
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const statusSuccess = "success"

// Envelope is the body of every successful response. List endpoints also
// fill Pagination. Errors are rendered from APIError instead.
type Envelope struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
}

func respond(c *gin.Context, statusCode int, message string, data interface{}, pagination *Pagination) {
	c.JSON(statusCode, Envelope{
		Status:     statusSuccess,
		Message:    message,
		Data:       data,
		Pagination: pagination,
		RequestID:  GetRequestIDFromContext(c),
	})
}

// RespondWithError aborts the request with err rendered as an APIError.
// Anything that is not an APIError is logged and hidden behind a 500.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled internal error being wrapped",
					zap.Error(err),
					zap.String("request_id", GetRequestIDFromContext(c)),
				)
			}
		}
		apiErr = ErrInternalServer
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

func RespondOK(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, message, data, nil)
}

func RespondCreated(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, message, data, nil)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondPaginated sends one page of a list. A nil page is sent as an
// empty pagination block so clients can always read total_items.
func RespondPaginated(c *gin.Context, message string, data interface{}, pagination *Pagination) {
	if pagination == nil {
		pagination = NewPagination(0, DefaultPage, DefaultPageSize)
	}
	respond(c, http.StatusOK, message, data, pagination)
}

// StartAttachment sets the headers for a streamed file download. Call
// ClearAttachment before rendering an error if nothing was written yet.
func StartAttachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
}

func ClearAttachment(c *gin.Context) {
	c.Writer.Header().Del("Content-Type")
	c.Writer.Header().Del("Content-Disposition")
}
