package common

import "net/http"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination describes the window of a list response.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// ParsePagination reads page/pageSize query parameters with sane bounds.
func ParsePagination(r *http.Request) (page, pageSize int) {
	page = AtoiDefault(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = AtoiDefault(r.URL.Query().Get("pageSize"), defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// Offset converts a 1-based page into a row offset.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}
