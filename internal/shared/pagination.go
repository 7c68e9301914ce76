package shared

import "math"

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// PageRequest carries normalized paging inputs for list queries.
type PageRequest struct {
	Page    int
	PerPage int
}

// NewPageRequest clamps raw paging parameters to sane bounds.
func NewPageRequest(page, perPage int) PageRequest {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// Offset returns the row offset for the request.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"current_page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total_records"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(req PageRequest, total int) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(req.PerPage)))
	return Pagination{Page: req.Page, PerPage: req.PerPage, Total: total, TotalPages: totalPages}
}
