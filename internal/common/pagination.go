// File: internal/common/pagination.go
package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PaginationQuery is the page/page_size pair every list endpoint accepts.
// Offset and Limit clamp the values, so a zero query means the first page.
type PaginationQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// NewPaginationQuery reads page and page_size from the request. Values that
// are missing, malformed or out of range fall back to the defaults.
func NewPaginationQuery(c *gin.Context) PaginationQuery {
	q := PaginationQuery{
		Page:     queryInt(c, "page", DefaultPage),
		PageSize: queryInt(c, "page_size", DefaultPageSize),
	}
	q.clamp()
	return q
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (pq *PaginationQuery) clamp() {
	if pq.Page <= 0 {
		pq.Page = DefaultPage
	}
	switch {
	case pq.PageSize <= 0:
		pq.PageSize = DefaultPageSize
	case pq.PageSize > MaxPageSize:
		pq.PageSize = MaxPageSize
	}
}

func (pq *PaginationQuery) Offset() int {
	pq.clamp()
	return (pq.Page - 1) * pq.PageSize
}

func (pq *PaginationQuery) Limit() int {
	pq.clamp()
	return pq.PageSize
}

// Pagination describes one page of a list response.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// NewPagination builds the page description for totalItems rows.
func NewPagination(totalItems int64, page, pageSize int) *Pagination {
	q := PaginationQuery{Page: page, PageSize: pageSize}
	q.clamp()

	totalPages := 0
	if totalItems > 0 {
		totalPages = int((totalItems + int64(q.PageSize) - 1) / int64(q.PageSize))
	}
	return &Pagination{
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		CurrentPage: q.Page,
		PageSize:    q.PageSize,
		HasNext:     q.Page < totalPages,
		HasPrev:     q.Page > 1,
	}
}
